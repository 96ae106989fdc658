package cmd

import (
	"log"

	"community-hub/core/config"
	"community-hub/core/database"
	"community-hub/core/logger"

	membermodels "community-hub/feature/member/models"
	organizationmodels "community-hub/feature/organization/models"
	settingsmodels "community-hub/feature/settings/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Creates or updates the database schema for all features.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}

		var all []any
		all = append(all, settingsmodels.All()...)
		all = append(all, membermodels.All()...)
		all = append(all, organizationmodels.All()...)

		if err := db.AutoMigrate(all...); err != nil {
			return err
		}
		logg.Info("Migrations applied", zap.Int("models", len(all)))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
