package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/service"
	"github.com/spf13/cobra"
)

// saveTimeout bounds persisting sweep results after an interrupt.
const saveTimeout = 30 * time.Second

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Re-categorize uncategorized and Other expenses",
		Long: `Run categorization again on every expense that is still Uncategorized or
Other, and save the ones whose category changed. Confidently categorized
expenses are never touched, so running analyze twice changes nothing the
second time.

Press Ctrl+C to stop early; updates completed so far are saved.`,
		RunE: runAnalyze,
	}

	cmd.Flags().Bool("dry-run", false, "show what would change without saving")
	cmd.Flags().Int("workers", 0, "concurrent categorizations (default sweep.workers)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	out := cmd.OutOrStdout()

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		settings.Sweep.Workers = workers
	}

	handler := cli.NewInterruptHandler(out, "Analysis")
	ctx := handler.HandleInterrupts(cmd.Context())

	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	expenses, err := store.ListExpenses(ctx, service.ExpenseFilter{})
	if err != nil {
		return err
	}

	unresolved := 0
	for i := range expenses {
		if expenses[i].IsUnresolved() {
			unresolved++
		}
	}
	if unresolved == 0 {
		fmt.Fprintln(out, cli.FormatSuccess("Every expense already has a category"))
		return nil
	}

	cat, err := buildCategorizer(settings)
	if err != nil {
		return err
	}
	defer cat.Close()
	if !cat.classifier.Enabled() {
		fmt.Fprintln(out, cli.FormatWarning("No AI backend configured; only keyword rules will apply"))
	}

	bar := cli.NewProgressBar(cmd.ErrOrStderr(), unresolved, "Analyzing expenses...")
	result, sweepErr := cat.engine.SweepWithProgress(ctx, expenses, cli.ProgressReporter(bar))
	if sweepErr != nil && !errors.Is(sweepErr, ctx.Err()) {
		return sweepErr
	}

	if dryRun {
		if len(result.Updated) > 0 {
			fmt.Fprintln(out, cli.RenderExpenses(result.Updated))
		}
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run: %d of %d expense(s) would change", result.UpdatedCount, result.Examined)))
		return sweepErr
	}

	// Persist whatever completed, even when interrupted. The interrupt cancels
	// ctx and its parent, so the save runs detached from both.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := store.UpdateExpenseCategories(saveCtx, result.Updated); err != nil {
		return fmt.Errorf("failed to save updated categories: %w", err)
	}

	slog.Info("Analysis complete",
		"examined", result.Examined,
		"updated", result.UpdatedCount,
		"failed", result.Failed)
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Re-categorized %d of %d expense(s)", result.UpdatedCount, result.Examined)))
	if result.Failed > 0 {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d expense(s) could not be categorized", result.Failed)))
	}
	return sweepErr
}
