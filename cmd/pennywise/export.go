package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/importer"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export expenses as CSV",
		Long: `Export expenses as CSV with the columns title, amount, category, date and
description. Writes to stdout unless --output is given.`,
		RunE: runExport,
	}

	addFilterFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	expenses, err := store.ListExpenses(ctx, filter)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output) // #nosec G304 - user-provided output path
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if err := importer.WriteCSV(w, expenses); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported %d expense(s) to %s", len(expenses), output)))
	}
	return nil
}
