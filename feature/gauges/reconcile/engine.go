package reconcile

import (
	"context"
	"sort"

	"github.com/jancika1998-netizen/Water-Level/core/metrics"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/models"

	"go.uber.org/zap"
)

// Store is the subset of the persistence layer the engine drives. The
// concrete implementation lives in feature/gauges/store.
type Store interface {
	Directory(ctx context.Context) ([]models.DirectoryEntry, error)
	ReplaceDirectory(ctx context.Context, entries []models.DirectoryEntry) error
	ExistingTimes(ctx context.Context, stationKey string) (map[string]struct{}, error)
	AppendHistory(ctx context.Context, stationKey string, readings []models.Reading) error
}

// Result reports what one reconciliation changed.
type Result struct {
	StationsUpdated int
	RowsAppended    int
	// Appended holds the readings persisted this cycle, per station, in
	// append order. Consumers (alert publisher, CSV archiver) only care
	// about rows that actually landed.
	Appended map[string][]models.Reading
	// StationErrors collects isolated per-station write failures; the
	// presence of entries here does not mean the cycle failed.
	StationErrors []*models.StationWriteError
}

// Engine merges grouped batches of readings into the durable store.
//
// Guarantees: at-most-once persistence of any (station, display time) pair,
// and no history entry is ever rewritten or removed. Directory replacement
// is wholesale and never regresses to stale metadata.
type Engine struct {
	store   Store
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a reconciliation engine over the given store.
func New(store Store, logger *zap.Logger, m *metrics.Metrics) *Engine {
	return &Engine{store: store, logger: logger, metrics: m}
}

// Reconcile merges one grouped batch. A directory read/write failure aborts
// the cycle (store unavailable); a failure on one station's history is
// isolated and the remaining stations still get processed.
func (e *Engine) Reconcile(ctx context.Context, grouped map[string][]models.Reading) (Result, error) {
	result := Result{Appended: make(map[string][]models.Reading)}
	if len(grouped) == 0 {
		return result, nil
	}

	if err := e.refreshDirectory(ctx, grouped); err != nil {
		return result, err
	}

	// Deterministic station order keeps logs and failures reproducible.
	stations := make([]string, 0, len(grouped))
	for station := range grouped {
		stations = append(stations, station)
	}
	sort.Strings(stations)

	for _, station := range stations {
		appended, err := e.appendStation(ctx, station, grouped[station])
		if err != nil {
			werr := &models.StationWriteError{Station: station, Err: err}
			result.StationErrors = append(result.StationErrors, werr)
			e.metrics.StationErrors.Inc()
			e.logger.Error("station write failed, continuing",
				zap.String("station", station), zap.Error(err))
			continue
		}
		if len(appended) > 0 {
			result.Appended[station] = appended
			result.StationsUpdated++
			result.RowsAppended += len(appended)
		}
	}

	e.metrics.RowsAppended.Add(float64(result.RowsAppended))
	return result, nil
}

// refreshDirectory rebuilds the full directory from the union of current
// entries and the batch's per-station latest readings. An entry is replaced
// only when the batch's latest ObservedAt is at least as new as the
// recorded high-water mark, so a windowed fetch can never regress metadata.
func (e *Engine) refreshDirectory(ctx context.Context, grouped map[string][]models.Reading) error {
	current, err := e.store.Directory(ctx)
	if err != nil {
		return err
	}

	index := make(map[string]models.DirectoryEntry, len(current))
	for _, entry := range current {
		index[entry.StationKey] = entry
	}

	for station, readings := range grouped {
		latest := latestReading(readings)
		existing, ok := index[station]
		if ok && latest.ObservedAt.Before(existing.ObservedAt) {
			continue
		}
		index[station] = models.DirectoryEntry{
			StationKey: station,
			Basin:      latest.Basin,
			Latitude:   latest.Latitude,
			Longitude:  latest.Longitude,
			ObservedAt: latest.ObservedAt,
		}
	}

	entries := make([]models.DirectoryEntry, 0, len(index))
	for _, entry := range index {
		entries = append(entries, entry)
	}
	return e.store.ReplaceDirectory(ctx, entries)
}

// appendStation marks readings not yet persisted for the station, orders
// them by display time, and appends them as one batch.
func (e *Engine) appendStation(ctx context.Context, station string, readings []models.Reading) ([]models.Reading, error) {
	existing, err := e.store.ExistingTimes(ctx, station)
	if err != nil {
		return nil, err
	}

	// Secondary sort by ObservedAt; stable so fetch order breaks ties.
	ordered := make([]models.Reading, len(readings))
	copy(ordered, readings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ObservedAt.Before(ordered[j].ObservedAt)
	})

	var fresh []models.Reading
	seen := make(map[string]struct{}, len(ordered))
	for _, r := range ordered {
		if _, dup := existing[r.DisplayTime]; dup {
			continue
		}
		if _, dup := seen[r.DisplayTime]; dup {
			continue
		}
		seen[r.DisplayTime] = struct{}{}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	// Lexicographic order on the zero-padded format equals time order, so
	// even out-of-order fetch results land in the log in time order
	// relative to each other.
	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].DisplayTime < fresh[j].DisplayTime
	})

	if err := e.store.AppendHistory(ctx, station, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// latestReading picks the reading with the maximum ObservedAt; later fetch
// position wins ties, matching the origin's edit-sequence ordering.
func latestReading(readings []models.Reading) models.Reading {
	latest := readings[0]
	for _, r := range readings[1:] {
		if !r.ObservedAt.Before(latest.ObservedAt) {
			latest = r
		}
	}
	return latest
}
