package cmd

import (
	"log/slog"

	"github.com/linskybing/zeera/internal/config/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.Init(cmd.Context()); err != nil {
			return err
		}
		if err := db.Migrate(db.DB); err != nil {
			return err
		}
		slog.Info("migration complete")
		return nil
	},
}
