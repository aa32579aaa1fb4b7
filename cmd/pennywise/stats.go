package main

import (
	"fmt"

	"github.com/Veraticus/pennywise/internal/budget"
	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show spending totals per category",
		RunE:  runStats,
	}

	addFilterFlags(cmd)
	cmd.Flags().Bool("monthly", false, "break totals down by month")
	cmd.Flags().Bool("json", false, "print JSON instead of a table")

	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	monthly, _ := cmd.Flags().GetBool("monthly")
	asJSON, _ := cmd.Flags().GetBool("json")

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	expenses, err := store.ListExpenses(ctx, filter)
	if err != nil {
		return err
	}

	if monthly {
		months := budget.AggregateByMonth(expenses)
		if asJSON {
			return writeJSON(cmd, "", months)
		}
		fmt.Fprintln(out, cli.FormatTitle("Spending by month"))
		fmt.Fprintln(out, cli.RenderMonthly(months))
		return nil
	}

	aggregates := budget.Aggregate(expenses)
	if asJSON {
		total, count := budget.Total(aggregates)
		return writeJSON(cmd, "", struct {
			Categories  any     `json:"categories"`
			TotalAmount float64 `json:"totalAmount"`
			Count       int     `json:"count"`
		}{aggregates, total, count})
	}

	fmt.Fprintln(out, cli.FormatTitle("Spending by category"))
	fmt.Fprintln(out, cli.RenderAggregates(aggregates))
	return nil
}
