package cmd

import (
	"log/slog"

	"github.com/linskybing/zeera/internal/application"
	"github.com/linskybing/zeera/internal/config"
	"github.com/linskybing/zeera/internal/config/db"
	"github.com/linskybing/zeera/internal/repository"
	"github.com/spf13/cobra"
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the default admin from DEFAULT_ADMIN_EMAIL and DEFAULT_ADMIN_PASSWORD",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := db.Init(ctx); err != nil {
			return err
		}
		if err := db.Migrate(db.DB); err != nil {
			return err
		}
		users := application.NewUserService(repository.NewRepositories(db.DB))
		created, err := users.EnsureDefaultAdmin(ctx, config.DefaultAdminName, config.DefaultAdminEmail, config.DefaultAdminPassword)
		if err != nil {
			return err
		}
		if !created {
			slog.Info("default admin already present or not configured", "email", config.DefaultAdminEmail)
		}
		return nil
	},
}
