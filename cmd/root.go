package cmd

import (
	"github.com/linskybing/zeera/internal/api/middleware"
	"github.com/linskybing/zeera/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "zeera",
	Short: "Zeera issue tracker API",
	Long: `zeera serves the issue tracking REST API: projects, members, issues,
comments, history and a live activity feed per project.`,
	SilenceUsage: true,
	RunE:         runServe,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadConfig()
		middleware.Init()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "Application environment (development, production, test)")
	_ = viper.BindPFlag("app_env", rootCmd.PersistentFlags().Lookup("env"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedAdminCmd)
}
