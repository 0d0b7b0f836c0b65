package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"papermind-backend/internal/shared/storage/db"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(cmd.Context(), func(database *sql.DB) error {
				if err := db.RunMigrations(cmd.Context(), database); err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
				version, err := db.MigrationVersion(cmd.Context(), database)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "database at version %d\n", version)
				return nil
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(cmd.Context(), func(database *sql.DB) error {
				version, err := db.MigrationVersion(cmd.Context(), database)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			})
		},
	})
	return cmd
}
