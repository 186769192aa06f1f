package gauges_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jancika1998-netizen/Water-Level/core/database"
	"github.com/jancika1998-netizen/Water-Level/core/metrics"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/models"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/reconcile"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/store"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// stubFetcher plays the upstream feed and records what was asked of it.
type stubFetcher struct {
	features []models.RawFeature
	err      error
	gotMode  models.SyncMode
	gotSince time.Time
}

func (f *stubFetcher) Fetch(ctx context.Context, mode models.SyncMode, since time.Time) ([]models.RawFeature, error) {
	f.gotMode = mode
	f.gotSince = since
	return f.features, f.err
}

func rawFeature(gauge string, level float64, editDate int64) models.RawFeature {
	return models.RawFeature{
		Attributes: models.FeatureAttributes{
			Gauge:      gauge,
			WaterLevel: ptr(level),
			AlertPull:  ptr(3.0),
			MinorPull:  ptr(4.5),
			MajorPull:  ptr(6.0),
			EditDate:   ptr(editDate),
		},
		Geometry: models.FeatureGeometry{X: 32.5, Y: 15.6},
	}
}

func newTestService(t *testing.T, fetcher gauges.Fetcher) (*gauges.Service, *store.Store) {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	assert.NoError(t, err)

	st := store.New(db, zap.NewNop())
	assert.NoError(t, st.EnsureSchema(context.Background()))

	m := metrics.NewForTesting()
	engine := reconcile.New(st, zap.NewNop(), m)
	return gauges.NewService(fetcher, st, engine, zap.NewNop(), m), st
}

func TestSyncFullCycle(t *testing.T) {
	fetcher := &stubFetcher{features: []models.RawFeature{
		rawFeature("Blue Nile/Station 1", 5.2, 1700000000000),
		rawFeature("Atbara", 2.0, 1700000000000),
		rawFeature("   ", 1.0, 1700000000000), // no gauge name, skipped
	}}
	svc, st := newTestService(t, fetcher)
	ctx := context.Background()

	summary, err := svc.Sync(ctx, models.ModeFull)
	assert.NoError(t, err)
	assert.Equal(t, models.ModeFull, summary.Mode)
	assert.Equal(t, 2, summary.StationsUpdated)
	assert.Equal(t, 2, summary.RowsAppended)
	assert.Equal(t, 1, summary.Skipped)
	assert.False(t, summary.Partial)
	assert.Equal(t, models.ModeFull, fetcher.gotMode)

	rows, err := st.History(ctx, "Blue Nile_Station 1")
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "MINOR FLOOD", rows[0].Status)

	// A completed cycle records the cursor.
	cursor, err := st.Cursor(ctx)
	assert.NoError(t, err)
	assert.False(t, cursor.IsZero())
}

func TestSyncIdempotentAcrossCycles(t *testing.T) {
	fetcher := &stubFetcher{features: []models.RawFeature{
		rawFeature("Atbara", 2.0, 1700000000000),
	}}
	svc, st := newTestService(t, fetcher)
	ctx := context.Background()

	_, err := svc.Sync(ctx, models.ModeFull)
	assert.NoError(t, err)

	summary, err := svc.Sync(ctx, models.ModeFull)
	assert.NoError(t, err)
	assert.Zero(t, summary.RowsAppended)

	rows, err := st.History(ctx, "Atbara")
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSyncPartialFetchDoesNotAdvanceCursor(t *testing.T) {
	fetcher := &stubFetcher{
		features: []models.RawFeature{rawFeature("Atbara", 2.0, 1700000000000)},
		err:      models.ErrFeedUnavailable,
	}
	svc, st := newTestService(t, fetcher)
	ctx := context.Background()

	summary, err := svc.Sync(ctx, models.ModeFull)
	assert.NoError(t, err)
	assert.True(t, summary.Partial)
	assert.Equal(t, 1, summary.RowsAppended)

	// The fetched prefix was reconciled but the cursor stays put so the
	// next incremental cycle re-covers the truncated range.
	cursor, err := st.Cursor(ctx)
	assert.NoError(t, err)
	assert.True(t, cursor.IsZero())
}

func TestSyncFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: models.ErrFeedUnavailable}
	svc, _ := newTestService(t, fetcher)

	_, err := svc.Sync(context.Background(), models.ModeIncremental)
	assert.True(t, errors.Is(err, models.ErrFeedUnavailable))
}

func TestSyncIncrementalUsesSavedCursor(t *testing.T) {
	fetcher := &stubFetcher{}
	svc, st := newTestService(t, fetcher)
	ctx := context.Background()

	at := time.UnixMilli(1700000000000).UTC()
	assert.NoError(t, st.SaveCursor(ctx, at))

	_, err := svc.Sync(ctx, models.ModeIncremental)
	assert.NoError(t, err)
	assert.Equal(t, models.ModeIncremental, fetcher.gotMode)
	assert.Equal(t, at, fetcher.gotSince)
}

func TestSyncFullIgnoresCursor(t *testing.T) {
	fetcher := &stubFetcher{}
	svc, st := newTestService(t, fetcher)
	ctx := context.Background()

	assert.NoError(t, st.SaveCursor(ctx, time.UnixMilli(1700000000000)))

	_, err := svc.Sync(ctx, models.ModeFull)
	assert.NoError(t, err)
	assert.True(t, fetcher.gotSince.IsZero())
}

func TestHistoryNormalizesStationKey(t *testing.T) {
	fetcher := &stubFetcher{features: []models.RawFeature{
		rawFeature("Blue Nile/Station 1", 5.2, 1700000000000),
	}}
	svc, _ := newTestService(t, fetcher)
	ctx := context.Background()

	_, err := svc.Sync(ctx, models.ModeFull)
	assert.NoError(t, err)

	// The raw name and the normalized key address the same history.
	rows, err := svc.History(ctx, "Blue Nile/Station 1")
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestHistoryCSV(t *testing.T) {
	fetcher := &stubFetcher{features: []models.RawFeature{
		rawFeature("Atbara", 5.2, 1700000000000),
	}}
	svc, _ := newTestService(t, fetcher)
	ctx := context.Background()

	_, err := svc.Sync(ctx, models.ModeFull)
	assert.NoError(t, err)

	data, err := svc.HistoryCSV(ctx, "Atbara")
	assert.NoError(t, err)
	assert.Equal(t, "DateTime,Level (m),Status\n2023-11-14 22:13:20,5.2,MINOR FLOOD\n", string(data))
}

func TestHistoryCSVEmptyStation(t *testing.T) {
	svc, _ := newTestService(t, &stubFetcher{})

	data, err := svc.HistoryCSV(context.Background(), "Nowhere")
	assert.NoError(t, err)
	assert.Equal(t, "DateTime,Level (m),Status\n", string(data))
}

func TestSnapshot(t *testing.T) {
	fetcher := &stubFetcher{features: []models.RawFeature{
		rawFeature("Atbara", 5.2, 1700000000000),
		rawFeature("Dinder", 1.0, 1700000600000),
	}}
	svc, _ := newTestService(t, fetcher)
	ctx := context.Background()

	_, err := svc.Sync(ctx, models.ModeFull)
	assert.NoError(t, err)

	statuses, err := svc.Snapshot(ctx)
	assert.NoError(t, err)
	assert.Len(t, statuses, 2)
	assert.Equal(t, "Atbara", statuses[0].Station)
	assert.Equal(t, "MINOR FLOOD", statuses[0].Status)
	assert.Equal(t, "Dinder", statuses[1].Station)
	assert.Equal(t, "Normal", statuses[1].Status)
}
