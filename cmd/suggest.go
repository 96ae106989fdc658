package cmd

import (
	"context"
	"log"
	"time"

	"community-hub/core/config"
	"community-hub/core/database"
	"community-hub/core/events"
	"community-hub/core/logger"
	"community-hub/core/tenant"

	"community-hub/feature/member"
	"community-hub/feature/organization"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	suggestTenant   string
	suggestSegments []string
	suggestLookback float64
)

// suggestCmd represents the suggest command
var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Run the merge suggestion generators once",
	Long: `Scans recently changed members and organizations of one tenant for
likely duplicates and records them as merge suggestions.`,
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

		tenantID, err := uuid.Parse(suggestTenant)
		if err != nil {
			return err
		}
		segments := make([]uuid.UUID, 0, len(suggestSegments))
		for _, raw := range suggestSegments {
			segmentID, err := uuid.Parse(raw)
			if err != nil {
				return err
			}
			segments = append(segments, segmentID)
		}
		scope := tenant.New(tenantID, segments...)

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}

		lookbackHours := suggestLookback
		if lookbackHours <= 0 {
			lookbackHours = cfg.Server.SuggestionLookbackHours
		}
		lookback := time.Duration(lookbackHours * float64(time.Hour))

		ctx := context.Background()

		graph := member.NewGraph(db)
		engine := member.NewSuggestionEngine(db, graph, logg, lookback)
		memberEdges, err := engine.Run(ctx, scope)
		if err != nil {
			return err
		}

		orgs := organization.NewService(db, organization.NewGraph(db), events.NopEmitter{}, nil, logg)
		orgEdges, err := orgs.GenerateSuggestions(ctx, scope)
		if err != nil {
			return err
		}

		logg.Info("Suggestion run finished",
			zap.String("tenant", tenantID.String()),
			zap.Int("memberEdges", memberEdges),
			zap.Int("organizationEdges", orgEdges))
		return nil
	},
}

func init() {
	suggestCmd.Flags().StringVar(&suggestTenant, "tenant", "", "tenant ID to scan (required)")
	suggestCmd.Flags().StringSliceVar(&suggestSegments, "segments", nil, "segment IDs to scope the scan to")
	suggestCmd.Flags().Float64Var(&suggestLookback, "lookback-hours", 0, "override the configured lookback window")
	_ = suggestCmd.MarkFlagRequired("tenant")
	RootCmd.AddCommand(suggestCmd)
}
