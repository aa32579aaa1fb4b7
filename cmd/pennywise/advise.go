package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/pennywise/internal/budget"
	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/llm"
	"github.com/Veraticus/pennywise/internal/service"
	"github.com/spf13/cobra"
)

// adviceRecentExpenses bounds how many recent expenses go into the prompt.
const adviceRecentExpenses = 20

func adviseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advise <question>",
		Short: "Ask the AI backend for advice about your spending",
		Long: `Ask a free-form question about your finances. The AI backend sees your
most recent expenses and your per-category totals.

Example:
  pennywise advise "Where could I cut back next month?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAdvise,
	}
}

func runAdvise(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.Join(args, " ")

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	expenses, err := store.ListExpenses(ctx, service.ExpenseFilter{})
	if err != nil {
		return err
	}
	aggregates := budget.Aggregate(expenses)
	total, count := budget.Total(aggregates)

	recent := expenses
	if len(recent) > adviceRecentExpenses {
		recent = recent[:adviceRecentExpenses]
	}

	cat, err := buildCategorizer(settings)
	if err != nil {
		return err
	}
	defer cat.Close()

	answer := cat.advisor.Advise(ctx, question, llm.SpendingContext{
		Recent:      recent,
		ByCategory:  aggregates,
		TotalAmount: total,
		Count:       count,
	})
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.RobotIcon+" Advice", answer))
	return nil
}
