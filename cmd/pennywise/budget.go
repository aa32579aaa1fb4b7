package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/pennywise/internal/budget"
	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
	"github.com/spf13/cobra"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage monthly category budgets",
	}

	setCmd := &cobra.Command{
		Use:   "set <category> <limit>",
		Short: "Create or replace the budget for a category",
		Args:  cobra.ExactArgs(2),
		RunE:  runBudgetSet,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		Args:  cobra.NoArgs,
		RunE:  runBudgetList,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <category>",
		Short: "Remove the budget for a category",
		Args:  cobra.ExactArgs(1),
		RunE:  runBudgetDelete,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Compare spending against budgets",
		Long: `Compare spending against each budget. A budget is near its limit at 80%
and over once spending exceeds the limit. Defaults to the current month.`,
		Args: cobra.NoArgs,
		RunE: runBudgetStatus,
	}
	statusCmd.Flags().String("month", "", "month to evaluate (YYYY-MM, default current month)")
	statusCmd.Flags().Bool("all", false, "evaluate against all recorded spending")
	statusCmd.Flags().Bool("json", false, "print JSON instead of a table")

	cmd.AddCommand(setCmd, listCmd, deleteCmd, statusCmd)
	return cmd
}

func runBudgetSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	category, err := resolveCategory(model.DefaultTaxonomy(), args[0])
	if err != nil {
		return err
	}
	limit, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	b := model.Budget{Category: category, Limit: limit}
	if err := b.Validate(); err != nil {
		return common.NewUserError("Invalid budget", err)
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SetBudget(ctx, b); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Budget for %s set to %s", b.Category, cli.FormatAmount(b.Limit))))
	return nil
}

func runBudgetList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	budgets, err := store.GetBudgets(ctx)
	if err != nil {
		return err
	}
	if len(budgets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No budgets set"))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBudgets(budgets))
	return nil
}

func runBudgetDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	category, err := resolveCategory(model.DefaultTaxonomy(), args[0])
	if err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.DeleteBudget(ctx, category); err != nil {
		if isNotFound(err) {
			return common.NewUserError("No budget set for "+string(category), err)
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Budget for "+string(category)+" removed"))
	return nil
}

func runBudgetStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	all, _ := cmd.Flags().GetBool("all")
	month, _ := cmd.Flags().GetString("month")
	asJSON, _ := cmd.Flags().GetBool("json")

	var filter service.ExpenseFilter
	period := "all time"
	if !all {
		if month == "" {
			month = time.Now().Format("2006-01")
		}
		start, end, err := monthRange(month)
		if err != nil {
			return err
		}
		filter.From, filter.To = &start, &end
		period = month
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	budgets, err := store.GetBudgets(ctx)
	if err != nil {
		return err
	}
	if len(budgets) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No budgets set. Add one with: pennywise budget set <category> <limit>"))
		return nil
	}

	expenses, err := store.ListExpenses(ctx, filter)
	if err != nil {
		return err
	}
	statuses := budget.Evaluate(budgets, budget.Aggregate(expenses))

	if asJSON {
		return writeJSON(cmd, "", statuses)
	}

	fmt.Fprintln(out, cli.FormatTitle("Budgets for "+period))
	fmt.Fprintln(out, cli.RenderBudgetStatuses(statuses))
	for _, s := range statuses {
		switch s.State {
		case model.BudgetOver:
			fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%s is over budget by %s", s.Category, cli.FormatAmount(s.Overage))))
		case model.BudgetNear:
			fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%s is at %.0f%% of its budget", s.Category, s.Percentage)))
		}
	}
	return nil
}
