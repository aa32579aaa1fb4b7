package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/importer"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
	"github.com/spf13/cobra"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title> <amount>",
		Short: "Record a new expense",
		Long: `Record a new expense. Unless --category is given, the expense is
categorized automatically: keyword rules first, then the AI backend.

Examples:
  pennywise add "Starbucks" 4.50
  pennywise add "Team dinner" 86.20 --date 2024-03-02 --category Food`,
		Args: cobra.ExactArgs(2),
		RunE: runAdd,
	}

	cmd.Flags().String("date", "", "expense date (YYYY-MM-DD, default today)")
	cmd.Flags().StringP("description", "d", "", "free-text description")
	cmd.Flags().StringP("category", "c", "", "category override")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if raw, _ := cmd.Flags().GetString("date"); raw != "" {
		if date, err = importer.ParseDate(raw); err != nil {
			return common.NewUserError("Invalid --date", err)
		}
	}
	description, _ := cmd.Flags().GetString("description")
	override, _ := cmd.Flags().GetString("category")

	expense := model.NewExpense(args[0], description, amount, date, model.OriginManual)
	if err := expense.Validate(); err != nil {
		return common.NewUserError("Invalid expense", err)
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cat, err := buildCategorizer(settings)
	if err != nil {
		return err
	}
	defer cat.Close()

	expense.Category = model.Category(strings.TrimSpace(override))
	decision := cat.engine.CategorizeExpense(ctx, &expense)

	if err := store.SaveExpense(ctx, &expense); err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %s %s → %s (%s)",
		expense.Title, cli.FormatAmount(expense.Amount), expense.Category, decision.Source)))
	fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("id: "+expense.ID))
	return nil
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		RunE:  runList,
	}

	addFilterFlags(cmd)
	cmd.Flags().IntP("limit", "n", 50, "maximum number of expenses (0 for all)")
	cmd.Flags().Bool("json", false, "print JSON instead of a table")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	filter.Limit, _ = cmd.Flags().GetInt("limit")
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

	if asJSON {
		return writeJSON(cmd, "", expenses)
	}

	out := cmd.OutOrStdout()
	if len(expenses) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No expenses found"))
		return nil
	}
	fmt.Fprintln(out, cli.RenderExpenses(expenses))
	return nil
}

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an existing expense",
		Long: `Change fields of an existing expense. Only the flags you pass are changed.
Use --recategorize to run automatic categorization again after editing.`,
		Args: cobra.ExactArgs(1),
		RunE: runEdit,
	}

	cmd.Flags().String("title", "", "new title")
	cmd.Flags().String("amount", "", "new amount")
	cmd.Flags().String("date", "", "new date (YYYY-MM-DD)")
	cmd.Flags().StringP("description", "d", "", "new description")
	cmd.Flags().StringP("category", "c", "", "new category")
	cmd.Flags().Bool("recategorize", false, "categorize again with rules and AI")

	return cmd
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	expense, err := store.GetExpense(ctx, args[0])
	if err != nil {
		if isNotFound(err) {
			return common.NewUserError("No expense with id "+args[0], err)
		}
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("title") {
		expense.Title, _ = flags.GetString("title")
	}
	if flags.Changed("amount") {
		raw, _ := flags.GetString("amount")
		if expense.Amount, err = parseAmount(raw); err != nil {
			return err
		}
	}
	if flags.Changed("date") {
		raw, _ := flags.GetString("date")
		if expense.Date, err = importer.ParseDate(raw); err != nil {
			return common.NewUserError("Invalid --date", err)
		}
	}
	if flags.Changed("description") {
		expense.Description, _ = flags.GetString("description")
	}
	if flags.Changed("category") {
		raw, _ := flags.GetString("category")
		expense.Category = model.Category(strings.TrimSpace(raw))
	}

	if recategorize, _ := flags.GetBool("recategorize"); recategorize {
		cat, err := buildCategorizer(settings)
		if err != nil {
			return err
		}
		defer cat.Close()

		override := model.Category("")
		if flags.Changed("category") {
			override = expense.Category
		}
		expense.Category = cat.engine.Categorize(ctx, expense.Title, expense.Description, override)
	}

	if err := expense.Validate(); err != nil {
		return common.NewUserError("Invalid expense", err)
	}
	if err := store.UpdateExpense(ctx, expense); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated %s: %s %s → %s",
		expense.ID, expense.Title, cli.FormatAmount(expense.Amount), expense.Category)))
	return nil
}

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete one or more expenses",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDelete,
	}

	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	return cmd
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		reader := cli.NewNonBlockingReader(cmd.InOrStdin())
		ok, err := cli.Confirm(ctx, reader, cmd.OutOrStdout(), fmt.Sprintf("Delete %d expense(s)?", len(args)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing deleted"))
			return nil
		}
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	deleted, err := store.DeleteExpenses(ctx, args)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted %d expense(s)", deleted)))
	if missing := len(args) - deleted; missing > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("%d id(s) did not match any expense", missing)))
	}
	return nil
}

// openStore loads settings and opens storage for commands that need nothing else.
func openStore(ctx context.Context) (service.Storage, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return initStorage(ctx, settings)
}

// writeJSON writes v as indented JSON to path, or stdout when path is empty.
func writeJSON(cmd *cobra.Command, path string, v any) error {
	out := cmd.OutOrStdout()
	if path != "" {
		f, err := os.Create(path) // #nosec G304 - user-provided output path
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
