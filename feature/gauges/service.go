package gauges

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"sync"
	"time"

	"github.com/jancika1998-netizen/Water-Level/core/metrics"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/alerts"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/archive"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/cache"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/models"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/reconcile"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/store"

	"go.uber.org/zap"
)

// Fetcher pulls raw features from the upstream service. Implemented by
// feed.Client; tests substitute a stub.
type Fetcher interface {
	Fetch(ctx context.Context, mode models.SyncMode, since time.Time) ([]models.RawFeature, error)
}

// Service orchestrates the sync pipeline and serves the read surface.
// All writers (the background scheduler, the manual trigger, the CLI)
// funnel through Sync's mutex, so reconciliations never interleave.
type Service struct {
	fetcher Fetcher
	store   *store.Store
	engine  *reconcile.Engine
	logger  *zap.Logger
	metrics *metrics.Metrics

	alerts   *alerts.Publisher
	cache    *cache.Cache
	archiver *archive.Archiver

	mu sync.Mutex
}

// NewService creates a gauges service over the given pipeline stages.
func NewService(fetcher Fetcher, st *store.Store, engine *reconcile.Engine, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		fetcher: fetcher,
		store:   st,
		engine:  engine,
		logger:  logger,
		metrics: m,
	}
}

// WithAlerts attaches the Kafka flood-alert publisher.
func (s *Service) WithAlerts(p *alerts.Publisher) *Service {
	s.alerts = p
	return s
}

// WithCache attaches the Redis snapshot cache.
func (s *Service) WithCache(c *cache.Cache) *Service {
	s.cache = c
	return s
}

// WithArchiver attaches the CSV export archiver.
func (s *Service) WithArchiver(a *archive.Archiver) *Service {
	s.archiver = a
	return s
}

// Sync runs one fetch, normalize, group, reconcile cycle. A truncated
// fetch is reconciled anyway (idempotence makes partial batches safe) but
// does not advance the cursor, so the next incremental cycle re-covers the
// range. Returns an error only when nothing could be fetched or the store
// aborted the cycle.
func (s *Service) Sync(ctx context.Context, mode models.SyncMode) (models.SyncSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	summary := models.SyncSummary{Mode: mode}

	var since time.Time
	if mode == models.ModeIncremental {
		cursor, err := s.store.Cursor(ctx)
		if err != nil {
			s.logger.Warn("sync cursor unavailable, falling back to trailing window", zap.Error(err))
		} else {
			since = cursor
		}
	}

	raws, fetchErr := s.fetcher.Fetch(ctx, mode, since)
	if fetchErr != nil {
		if len(raws) == 0 {
			s.metrics.SyncCycles.WithLabelValues(string(mode), "error").Inc()
			return summary, fetchErr
		}
		summary.Partial = true
	}

	readings := make([]models.Reading, 0, len(raws))
	for _, raw := range raws {
		r, ok := Normalize(raw)
		if !ok {
			summary.Skipped++
			continue
		}
		readings = append(readings, r)
	}

	grouped := GroupByStation(readings)
	result, err := s.engine.Reconcile(ctx, grouped)
	if err != nil {
		s.metrics.SyncCycles.WithLabelValues(string(mode), "error").Inc()
		return summary, err
	}
	summary.StationsUpdated = result.StationsUpdated
	summary.RowsAppended = result.RowsAppended

	if !summary.Partial {
		if err := s.store.SaveCursor(ctx, start); err != nil {
			s.logger.Warn("failed to persist sync cursor", zap.Error(err))
		}
	}

	s.afterSync(ctx, result)

	s.metrics.SyncCycles.WithLabelValues(string(mode), "success").Inc()
	s.metrics.SyncDuration.Observe(time.Since(start).Seconds())
	s.metrics.StationsPerSync.Observe(float64(len(grouped)))
	s.metrics.LastSyncTime.Set(float64(start.Unix()))

	s.logger.Info("sync cycle complete",
		zap.String("mode", string(mode)),
		zap.Int("stations_updated", summary.StationsUpdated),
		zap.Int("rows_appended", summary.RowsAppended),
		zap.Int("skipped", summary.Skipped),
		zap.Bool("partial", summary.Partial),
		zap.Int("station_errors", len(result.StationErrors)))

	return summary, nil
}

// afterSync runs the best-effort side channels for freshly appended rows.
// None of them can fail the cycle.
func (s *Service) afterSync(ctx context.Context, result reconcile.Result) {
	if len(result.Appended) == 0 {
		return
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	if s.alerts != nil {
		var fresh []models.Reading
		for _, readings := range result.Appended {
			fresh = append(fresh, readings...)
		}
		if err := s.alerts.Publish(ctx, fresh); err != nil {
			s.logger.Warn("alert publish failed", zap.Error(err))
		}
	}

	if s.archiver != nil {
		for station := range result.Appended {
			data, err := s.HistoryCSV(ctx, station)
			if err != nil {
				s.logger.Warn("archive export failed",
					zap.String("station", station), zap.Error(err))
				continue
			}
			if err := s.archiver.ArchiveCSV(ctx, station, data); err != nil {
				s.logger.Warn("archive upload failed",
					zap.String("station", station), zap.Error(err))
			}
		}
	}
}

// Snapshot returns the latest persisted reading per station, via the
// cache when one is configured.
func (s *Service) Snapshot(ctx context.Context) ([]models.StationStatus, error) {
	if s.cache != nil {
		if snapshot, ok := s.cache.GetSnapshot(ctx); ok {
			return snapshot, nil
		}
	}

	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetSnapshot(ctx, snapshot)
	}
	return snapshot, nil
}

// History returns a station's ordered reading log.
func (s *Service) History(ctx context.Context, station string) ([]models.HistoryRow, error) {
	return s.store.History(ctx, models.NormalizeStationKey(station))
}

// csvHeader is the fixed header row of every history export.
var csvHeader = []string{"DateTime", "Level (m)", "Status"}

// HistoryCSV renders a station's history as CSV, including the header row.
func (s *Service) HistoryCSV(ctx context.Context, station string) ([]byte, error) {
	rows, err := s.History(ctx, station)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.DateTime,
			strconv.FormatFloat(row.Level, 'f', -1, 64),
			row.Status,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
