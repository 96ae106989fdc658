package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"community-hub/core/cache"
	"community-hub/core/config"
	"community-hub/core/database"
	"community-hub/core/events"
	"community-hub/core/loader"
	"community-hub/core/logger"
	"community-hub/core/middleware/auth"
	"community-hub/core/middleware/rayid"
	"community-hub/core/storage"

	"community-hub/feature/member"
	"community-hub/feature/organization"
	"community-hub/feature/settings"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the community hub server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}

		// 4. Snapshot Archive (Optional)
		var archive *storage.Archive
		if cfg.Storage.Enabled {
			store, err := storage.NewClient(cfg.Storage)
			if err != nil {
				logg.Fatal("Failed to create storage client", zap.Error(err))
			}
			if err := storage.EnsureBucket(context.Background(), store, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
				logg.Fatal("Failed to prepare snapshot bucket", zap.Error(err))
			}
			archive = storage.NewArchive(store, cfg.Storage.Bucket)
			logg.Info("Merge snapshot archive enabled", zap.String("bucket", cfg.Storage.Bucket))
		}

		// 5. Event Emitter (Optional)
		var emitter events.Emitter = events.NopEmitter{}
		if cfg.Events.Enabled {
			emitter = events.NewEmitter(cfg.Events)
			logg.Info("Entity sync events enabled", zap.String("topic", cfg.Events.Topic))
		}
		defer emitter.Close()

		// 6. Settings Cache (Optional)
		settingsCache := cache.New(cfg.Cache)
		defer settingsCache.Close()

		// 7. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// 8. Initialize Feature Loader
		mgr := loader.NewManager()

		lookback := time.Duration(cfg.Server.SuggestionLookbackHours * float64(time.Hour))

		// Register Features
		settingsFeature := settings.NewFeature(db, settingsCache, logg)
		mgr.Register(settingsFeature)
		mgr.Register(member.NewFeature(db, settingsFeature.Service(), emitter, archive, logg, lookback))
		mgr.Register(organization.NewFeature(db, emitter, archive, logg))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 9. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 10. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 11. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
