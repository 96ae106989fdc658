package cmd

import (
	"context"
	"fmt"
	"log"

	"community-hub/core/cache"
	"community-hub/core/config"
	"community-hub/core/database"
	"community-hub/core/events"
	"community-hub/core/logger"
	"community-hub/core/storage"
	"community-hub/core/tenant"

	"community-hub/feature/member"
	"community-hub/feature/organization"
	"community-hub/feature/settings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var mergeTenant string

// mergeCmd represents the merge command
var mergeCmd = &cobra.Command{
	Use:   "merge <member|organization> <originalId> <toMergeId>",
	Short: "Merge two entities from the command line",
	Long: `Performs a one-shot merge of toMergeId into originalId. The first
entity survives, the second is soft-deleted. Runs with the full
production wiring, so sync events and snapshots fire if configured.`,
	Args: cobra.ExactArgs(3),
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

		tenantID, err := uuid.Parse(mergeTenant)
		if err != nil {
			return err
		}
		originalID, err := uuid.Parse(args[1])
		if err != nil {
			return err
		}
		toMergeID, err := uuid.Parse(args[2])
		if err != nil {
			return err
		}
		scope := tenant.New(tenantID)

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}

		var archive *storage.Archive
		if cfg.Storage.Enabled {
			store, err := storage.NewClient(cfg.Storage)
			if err != nil {
				return err
			}
			archive = storage.NewArchive(store, cfg.Storage.Bucket)
		}
		var emitter events.Emitter = events.NopEmitter{}
		if cfg.Events.Enabled {
			emitter = events.NewEmitter(cfg.Events)
		}
		defer emitter.Close()

		ctx := context.Background()

		switch args[0] {
		case "member":
			settingsSvc := settings.NewService(db, cache.New(cfg.Cache), logg)
			svc := member.NewService(db, member.NewGraph(db), settingsSvc, emitter, archive, logg)
			result, err := svc.Merge(ctx, scope, originalID, toMergeID)
			if err != nil {
				return err
			}
			logg.Info("Member merge finished",
				zap.String("status", string(result.Status)),
				zap.String("memberId", result.MemberID.String()))
		case "organization":
			svc := organization.NewService(db, organization.NewGraph(db), emitter, archive, logg)
			result, err := svc.Merge(ctx, scope, originalID, toMergeID)
			if err != nil {
				return err
			}
			logg.Info("Organization merge finished",
				zap.String("status", string(result.Status)),
				zap.String("organizationId", result.OrganizationID.String()))
		default:
			return fmt.Errorf("unknown entity type %q, want member or organization", args[0])
		}
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeTenant, "tenant", "", "tenant ID (required)")
	_ = mergeCmd.MarkFlagRequired("tenant")
	RootCmd.AddCommand(mergeCmd)
}
