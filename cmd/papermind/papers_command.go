package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"papermind-backend/internal/papers"
)

func newPapersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "papers",
		Short: "List every registered paper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(cmd.Context(), func(database *sql.DB) error {
				repo := &papers.PGRepo{DB: database}
				listings, err := repo.ListAll(cmd.Context())
				if err != nil {
					return err
				}
				if len(listings) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No papers registered")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderPapers(listings))
				return nil
			})
		},
	}
}

func renderPapers(listings []papers.Listing) string {
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		origin := "-"
		if !l.Registered() {
			origin = l.AdoptedFrom
		}
		rows = append(rows, []string{
			l.ID,
			l.Title,
			l.Username,
			l.UploadedAt.UTC().Format(time.RFC3339),
			origin,
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Owner", "Uploaded", "Adopted From"},
		rows,
	)
}
