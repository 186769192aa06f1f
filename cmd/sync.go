package cmd

import (
	"context"
	"log"

	"github.com/jancika1998-netizen/Water-Level/core/config"
	"github.com/jancika1998-netizen/Water-Level/core/database"
	"github.com/jancika1998-netizen/Water-Level/core/logger"
	"github.com/jancika1998-netizen/Water-Level/core/metrics"

	"github.com/jancika1998-netizen/Water-Level/feature/gauges"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/feed"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/models"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/reconcile"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncFull bool

// syncCmd runs a single sync cycle and exits. Useful for cron-style
// deployments and for backfilling after downtime.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync cycle and exit",
	Long:  `Fetches the feed once, reconciles it into the store and exits. Incremental by default.`,
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

		ctx := context.Background()
		m := metrics.New()

		st := store.New(db, logg)
		if err := st.EnsureSchema(ctx); err != nil {
			return err
		}

		svc := gauges.NewService(
			feed.NewClient(cfg.Feed, logg, m),
			st,
			reconcile.New(st, logg, m),
			logg,
			m,
		)

		mode := models.ModeIncremental
		if syncFull {
			mode = models.ModeFull
		}

		summary, err := svc.Sync(ctx, mode)
		if err != nil {
			return err
		}

		logg.Info("Sync finished",
			zap.String("mode", string(summary.Mode)),
			zap.Int("stations_updated", summary.StationsUpdated),
			zap.Int("rows_appended", summary.RowsAppended),
			zap.Int("skipped", summary.Skipped),
			zap.Bool("partial", summary.Partial),
		)
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "run a full-history cycle instead of incremental")
	RootCmd.AddCommand(syncCmd)
}
