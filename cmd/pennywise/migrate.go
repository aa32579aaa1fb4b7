package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Other commands migrate automatically; this command is useful to prepare a
database ahead of time or to check its schema version.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	slog.Info("Starting database migration",
		"database", settings.Database.Path,
		"status_only", status)

	store, err := storage.NewSQLiteStorage(settings.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if !status {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("Schema version %d (latest %d)", version, storage.ExpectedSchemaVersion)
	if version == storage.ExpectedSchemaVersion {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(msg))
	}
	return nil
}
