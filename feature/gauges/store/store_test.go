package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jancika1998-netizen/Water-Level/core/database"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/models"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/store"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *store.Store {
	db, err := database.Connect(database.Config{
		Driver: "sqlite",
		Name:   ":memory:",
	})
	assert.NoError(t, err)

	s := store.New(db, zap.NewNop())
	assert.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func reading(station, displayTime string, level float64, tier models.Tier) models.Reading {
	r := models.Reading{
		StationKey:  station,
		Level:       level,
		Tier:        tier,
		DisplayTime: displayTime,
	}
	if displayTime != models.DisplayTimeSentinel {
		ts, _ := time.ParseInLocation(models.DisplayTimeLayout, displayTime, time.UTC)
		r.ObservedAt = ts
	}
	return r
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "Atbara", store.TableName("Atbara"))
	assert.Equal(t, "Blue Nile_Station 1", store.TableName("Blue Nile_Station 1"))

	long := "An Extremely Long Station Name That Overflows"
	name := store.TableName(long)
	assert.Len(t, name, 30)
	assert.True(t, strings.HasPrefix(name, long[:21]))

	// Two keys sharing a 30-char prefix must not collide.
	other := store.TableName(long + " Even More")
	assert.Len(t, other, 30)
	assert.NotEqual(t, name, other)

	// Deterministic across calls.
	assert.Equal(t, name, store.TableName(long))

	// Unsafe characters are replaced before length handling.
	assert.Equal(t, "a_b_c", store.TableName("a'b;c"))
}

func TestDirectoryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries, err := s.Directory(ctx)
	assert.NoError(t, err)
	assert.Empty(t, entries)

	basin := "Blue Nile"
	seen := time.UnixMilli(1700000000000).UTC()
	err = s.ReplaceDirectory(ctx, []models.DirectoryEntry{
		{StationKey: "Zebra", Latitude: 1, Longitude: 2},
		{StationKey: "Atbara", Basin: &basin, Latitude: 15.6, Longitude: 32.5, ObservedAt: seen},
	})
	assert.NoError(t, err)

	entries, err = s.Directory(ctx)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	// Ordered by station key.
	assert.Equal(t, "Atbara", entries[0].StationKey)
	assert.Equal(t, "Blue Nile", *entries[0].Basin)
	assert.Equal(t, seen, entries[0].ObservedAt)
	assert.Equal(t, "Zebra", entries[1].StationKey)
	assert.True(t, entries[1].ObservedAt.IsZero())

	// A replace fully rewrites the table.
	err = s.ReplaceDirectory(ctx, []models.DirectoryEntry{
		{StationKey: "Atbara", Basin: &basin, Latitude: 15.6, Longitude: 32.5, ObservedAt: seen},
	})
	assert.NoError(t, err)
	entries, err = s.Directory(ctx)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAppendHistoryCreatesTableLazily(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	times, err := s.ExistingTimes(ctx, "Atbara")
	assert.NoError(t, err)
	assert.Empty(t, times)

	rows, err := s.History(ctx, "Atbara")
	assert.NoError(t, err)
	assert.Empty(t, rows)

	err = s.AppendHistory(ctx, "Atbara", []models.Reading{
		reading("Atbara", "2023-11-14 22:13:20", 5.2, models.TierMinorFlood),
		reading("Atbara", "2023-11-14 22:33:20", 5.4, models.TierMinorFlood),
	})
	assert.NoError(t, err)

	times, err = s.ExistingTimes(ctx, "Atbara")
	assert.NoError(t, err)
	assert.Len(t, times, 2)
	_, ok := times["2023-11-14 22:13:20"]
	assert.True(t, ok)

	rows, err = s.History(ctx, "Atbara")
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "2023-11-14 22:13:20", rows[0].DateTime)
	assert.Equal(t, 5.2, rows[0].Level)
	assert.Equal(t, "MINOR FLOOD", rows[0].Status)
}

func TestHistoryOrderedByDateTime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.AppendHistory(ctx, "Atbara", []models.Reading{
		reading("Atbara", "2023-11-15 08:00:00", 2.0, models.TierNormal),
	})
	assert.NoError(t, err)
	err = s.AppendHistory(ctx, "Atbara", []models.Reading{
		reading("Atbara", "2023-11-14 08:00:00", 1.0, models.TierNormal),
	})
	assert.NoError(t, err)

	rows, err := s.History(ctx, "Atbara")
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "2023-11-14 08:00:00", rows[0].DateTime)
	assert.Equal(t, "2023-11-15 08:00:00", rows[1].DateTime)
}

func TestSnapshotJoinsLatestRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.ReplaceDirectory(ctx, []models.DirectoryEntry{
		{StationKey: "Atbara", Latitude: 15.6, Longitude: 32.5},
		{StationKey: "Dinder", Latitude: 13.0, Longitude: 34.0},
	})
	assert.NoError(t, err)

	err = s.AppendHistory(ctx, "Atbara", []models.Reading{
		reading("Atbara", models.DisplayTimeSentinel, 0.5, models.TierNormal),
		reading("Atbara", "2023-11-14 22:13:20", 5.2, models.TierMinorFlood),
	})
	assert.NoError(t, err)

	statuses, err := s.Snapshot(ctx)
	assert.NoError(t, err)
	assert.Len(t, statuses, 2)

	// The sentinel sorts after real timestamps lexicographically; the
	// snapshot must still surface the real latest reading.
	assert.Equal(t, "Atbara", statuses[0].Station)
	assert.Equal(t, "2023-11-14 22:13:20", statuses[0].Time)
	assert.Equal(t, 5.2, statuses[0].Level)
	assert.Equal(t, "MINOR FLOOD", statuses[0].Status)

	// A directory entry without history yields empty reading fields.
	assert.Equal(t, "Dinder", statuses[1].Station)
	assert.Equal(t, "", statuses[1].Time)
}

func TestCursorRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cursor, err := s.Cursor(ctx)
	assert.NoError(t, err)
	assert.True(t, cursor.IsZero())

	at := time.UnixMilli(1700000000000).UTC()
	assert.NoError(t, s.SaveCursor(ctx, at))

	cursor, err = s.Cursor(ctx)
	assert.NoError(t, err)
	assert.Equal(t, at, cursor)

	// Saving again overwrites the single row.
	later := at.Add(20 * time.Minute)
	assert.NoError(t, s.SaveCursor(ctx, later))
	cursor, err = s.Cursor(ctx)
	assert.NoError(t, err)
	assert.Equal(t, later, cursor)
}
