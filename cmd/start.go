package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jancika1998-netizen/Water-Level/core/config"
	"github.com/jancika1998-netizen/Water-Level/core/database"
	"github.com/jancika1998-netizen/Water-Level/core/loader"
	"github.com/jancika1998-netizen/Water-Level/core/logger"
	"github.com/jancika1998-netizen/Water-Level/core/metrics"
	"github.com/jancika1998-netizen/Water-Level/core/middleware/auth"
	"github.com/jancika1998-netizen/Water-Level/core/middleware/rayid"
	"github.com/jancika1998-netizen/Water-Level/core/storage"

	"github.com/jancika1998-netizen/Water-Level/feature/gauges"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/alerts"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/archive"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/cache"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/feed"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/reconcile"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/scheduler"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gauge telemetry server",
	Long:  `Starts the HTTP server and the background sync scheduler.`,
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

		// 3. Connect to Database (Required)
		// Unlike an ephemeral cache, the store is the system of record;
		// without it there is nothing to serve.
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}

		m := metrics.New()

		st := store.New(db, logg)
		if err := st.EnsureSchema(context.Background()); err != nil {
			logg.Fatal("Failed to prepare store schema", zap.Error(err))
		}

		// 4. Assemble the Sync Pipeline
		feedClient := feed.NewClient(cfg.Feed, logg, m)
		engine := reconcile.New(st, logg, m)
		svc := gauges.NewService(feedClient, st, engine, logg, m)

		var alertPub *alerts.Publisher
		if cfg.Alerts.Enabled {
			alertPub = alerts.NewPublisher(cfg.Alerts, logg)
			svc.WithAlerts(alertPub)
			logg.Info("Flood alert publishing enabled", zap.String("topic", cfg.Alerts.Topic))
		}

		var snapCache *cache.Cache
		if cfg.Cache.Enabled {
			snapCache = cache.New(cfg.Cache, logg)
			svc.WithCache(snapCache)
			logg.Info("Snapshot cache enabled", zap.String("addr", cfg.Cache.Addr))
		}

		if cfg.Archive.Enabled {
			client, err := storage.NewClient(cfg.Storage)
			if err != nil {
				logg.Fatal("Failed to create storage client", zap.Error(err))
			}
			archiver := archive.New(client, cfg.Storage.Bucket, cfg.Archive, logg)
			if err := archiver.EnsureBucket(context.Background()); err != nil {
				logg.Fatal("Failed to prepare archive bucket", zap.Error(err))
			}
			svc.WithArchiver(archiver)
			logg.Info("History archiving enabled", zap.String("bucket", cfg.Storage.Bucket))
		}

		// 5. Start the Background Scheduler
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sched := scheduler.New(svc, cfg.Sync, clockwork.NewRealClock(), logg, m)
		go sched.Run(ctx)

		// 6. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

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

		// 2.5 Operational endpoints (Public)
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
		app.Get("/healthz", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"status": "ok"})
		})

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 7. Load Features
		mgr := loader.NewManager()
		mgr.Register(gauges.NewFeature(svc))
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 8. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 9. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		cancel()
		_ = app.Shutdown()
		if alertPub != nil {
			_ = alertPub.Close()
		}
		if snapCache != nil {
			_ = snapCache.Close()
		}
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
