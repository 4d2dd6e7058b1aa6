package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/logging"
	"github.com/Veraticus/tally/internal/storage"
)

func migrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on open; this one is for setting up a database
ahead of time or checking its version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetBool("status")
			dbPath := opts.cfg.Database.Path

			store, err := storage.NewSQLiteStorage(dbPath, storage.WithLogger(opts.logger))
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			if status {
				current, err := store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Database:        %s\nCurrent version: %d\nLatest version:  %d\n", dbPath, current, storage.ExpectedSchemaVersion)
				return nil
			}

			opts.logger.Info("running database migrations", logging.F(logging.FieldFile, dbPath))
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("Database is at schema version %d", storage.ExpectedSchemaVersion)))
			return nil
		},
	}

	cmd.Flags().Bool("status", false, "Show the current schema version without applying changes")

	return cmd
}
