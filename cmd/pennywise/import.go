package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/importer"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/ofx"
	"github.com/Veraticus/pennywise/internal/service"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import expenses from files",
	}

	csvCmd := &cobra.Command{
		Use:   "csv <file>",
		Short: "Import expenses from a CSV file",
		Long: `Import expenses from a CSV file with a header row. Recognized columns are
title, amount, date and description, in any order. Rows without a title or
amount are skipped. Every imported expense is categorized automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: runImportCSV,
	}

	ofxCmd := &cobra.Command{
		Use:   "ofx <files...>",
		Short: "Import debits from OFX/QFX files",
		Long: `Import debits from OFX or QFX (Quicken) files exported from your bank.
Credits are skipped. Re-importing a statement does not duplicate expenses.

Examples:
  pennywise import ofx ~/Downloads/chase_jan_2024.qfx
  pennywise import ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	for _, sub := range []*cobra.Command{csvCmd, ofxCmd} {
		sub.Flags().Bool("dry-run", false, "categorize and show expenses without saving")
		cmd.AddCommand(sub)
	}

	return cmd
}

func runImportCSV(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0]) // #nosec G304 - user-provided import path
	if err != nil {
		return common.NewUserError("Could not open "+args[0], err)
	}
	defer func() { _ = f.Close() }()

	result, err := importer.ParseCSV(f, time.Now().UTC().Truncate(24*time.Hour))
	if err != nil {
		return common.NewUserError("Could not parse "+args[0], err)
	}
	for _, skipped := range result.Skipped {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("line %d skipped: %s", skipped.Line, skipped.Reason)))
	}

	return importExpenses(cmd, result.Expenses)
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Expand globs and collect all files
	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			// If no glob matches, check if it's a direct file
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return common.NewUserError("No files found to import", nil)
	}

	parser := ofx.NewParser()
	seen := make(map[string]bool)
	var expenses []model.Expense
	for _, file := range files {
		parsed, err := parseOFXFile(ctx, parser, file)
		if err != nil {
			return common.NewUserError("Could not parse "+file, err)
		}
		for _, exp := range parsed {
			if seen[exp.ID] {
				continue
			}
			seen[exp.ID] = true
			expenses = append(expenses, exp)
		}
		slog.Info("Parsed OFX file", "file", file, "expenses", len(parsed))
	}

	return importExpenses(cmd, expenses)
}

func parseOFXFile(ctx context.Context, parser *ofx.Parser, path string) ([]model.Expense, error) {
	f, err := os.Open(path) // #nosec G304 - user-provided import path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return parser.ParseFile(ctx, f)
}

// importExpenses drops expenses that are already stored, categorizes the rest
// and saves them in one batch.
func importExpenses(cmd *cobra.Command, expenses []model.Expense) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	fresh, err := withoutStored(ctx, store, expenses)
	if err != nil {
		return err
	}
	if dup := len(expenses) - len(fresh); dup > 0 {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d expense(s) already imported", dup)))
	}
	if len(fresh) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("Nothing new to import"))
		return nil
	}

	cat, err := buildCategorizer(settings)
	if err != nil {
		return err
	}
	defer cat.Close()

	categorized, err := categorizeAll(ctx, cat, fresh, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintln(out, cli.RenderExpenses(categorized))
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run: %d expense(s) not saved", len(categorized))))
		return nil
	}

	if err := store.SaveExpenses(ctx, categorized); err != nil {
		return fmt.Errorf("failed to save imported expenses: %w", err)
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d expense(s)", len(categorized))))
	return nil
}

// categorizeAll runs the sweep over freshly parsed, uncategorized expenses and
// merges the results back in input order.
func categorizeAll(ctx context.Context, cat *categorizer, expenses []model.Expense, progressOut io.Writer) ([]model.Expense, error) {
	bar := cli.NewProgressBar(progressOut, len(expenses), "Categorizing expenses...")
	result, err := cat.engine.SweepWithProgress(ctx, expenses, cli.ProgressReporter(bar))
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Category, len(result.Updated))
	for _, exp := range result.Updated {
		byID[exp.ID] = exp.Category
	}

	categorized := make([]model.Expense, len(expenses))
	for i, exp := range expenses {
		if category, ok := byID[exp.ID]; ok {
			exp.Category = category
		}
		categorized[i] = exp
	}
	return categorized, nil
}

func withoutStored(ctx context.Context, store service.Storage, expenses []model.Expense) ([]model.Expense, error) {
	fresh := make([]model.Expense, 0, len(expenses))
	for _, exp := range expenses {
		_, err := store.GetExpense(ctx, exp.ID)
		switch {
		case err == nil:
			continue
		case isNotFound(err):
			fresh = append(fresh, exp)
		default:
			return nil, err
		}
	}
	return fresh, nil
}
