package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jancika1998-netizen/Water-Level/core/database"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// DirectoryTable is the latest-known-state directory, fully rewritten
	// each reconciliation cycle.
	DirectoryTable = "Master_Locations"

	cursorTable = "sync_state"

	// maxTableName caps station table names; longer keys get a hash
	// suffix, see TableName.
	maxTableName = 30
)

// TableName maps a station key to its history table name. Keys within the
// length cap are used as-is; longer keys get a deterministic hash suffix so
// two stations sharing a long prefix can never collide.
func TableName(stationKey string) string {
	name := sanitizeIdentifier(stationKey)
	if len(name) <= maxTableName {
		return name
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return fmt.Sprintf("%s_%08x", name[:maxTableName-9], h.Sum32())
}

// sanitizeIdentifier keeps table names safe regardless of what survives
// station-key normalization upstream.
func sanitizeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '-', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

type directoryRow struct {
	Gauge    string  `gorm:"column:Gauge;primaryKey"`
	Basin    *string `gorm:"column:Basin"`
	Lat      float64 `gorm:"column:Lat"`
	Lon      float64 `gorm:"column:Lon"`
	LastSeen int64   `gorm:"column:LastSeen"` // unix ms high-water mark per entry
}

type historyRow struct {
	DateTime string  `gorm:"column:DateTime;primaryKey"`
	Level    float64 `gorm:"column:Level"`
	Status   string  `gorm:"column:Status"`
}

type cursorRow struct {
	ID         int   `gorm:"column:id;primaryKey"`
	LastSyncMS int64 `gorm:"column:last_sync_ms"`
}

// Store persists station histories, the directory, and the sync cursor in
// a table-per-station layout.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger

	mu       sync.Mutex
	verified map[string]struct{} // station tables already schema-checked
}

// New wraps a gorm connection in a gauge store.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger, verified: make(map[string]struct{})}
}

// EnsureSchema creates the directory and cursor tables if they are absent.
// Station tables are created lazily on first append.
func (s *Store) EnsureSchema(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.Table(DirectoryTable).AutoMigrate(&directoryRow{}); err != nil {
		return fmt.Errorf("%w: migrate directory: %v", models.ErrStoreUnavailable, err)
	}
	if err := db.Table(cursorTable).AutoMigrate(&cursorRow{}); err != nil {
		return fmt.Errorf("%w: migrate cursor: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Directory loads all current directory entries.
func (s *Store) Directory(ctx context.Context) ([]models.DirectoryEntry, error) {
	var rows []directoryRow
	if err := s.db.WithContext(ctx).Table(DirectoryTable).Order("Gauge").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: read directory: %v", models.ErrStoreUnavailable, err)
	}

	entries := make([]models.DirectoryEntry, 0, len(rows))
	for _, r := range rows {
		entry := models.DirectoryEntry{
			StationKey: r.Gauge,
			Basin:      r.Basin,
			Latitude:   r.Lat,
			Longitude:  r.Lon,
		}
		if r.LastSeen > 0 {
			entry.ObservedAt = time.UnixMilli(r.LastSeen).UTC()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ReplaceDirectory rewrites the whole directory table as one unit, keeping
// mixed-station partial state impossible.
func (s *Store) ReplaceDirectory(ctx context.Context, entries []models.DirectoryEntry) error {
	rows := make([]directoryRow, 0, len(entries))
	for _, e := range entries {
		row := directoryRow{
			Gauge: e.StationKey,
			Basin: e.Basin,
			Lat:   e.Latitude,
			Lon:   e.Longitude,
		}
		if !e.ObservedAt.IsZero() {
			row.LastSeen = e.ObservedAt.UnixMilli()
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Gauge < rows[j].Gauge })

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(DirectoryTable).Where("1 = 1").Delete(&directoryRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Table(DirectoryTable).Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("%w: replace directory: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// ExistingTimes returns the set of DateTime values already persisted for a
// station. A station whose table does not exist yet has an empty set.
func (s *Store) ExistingTimes(ctx context.Context, stationKey string) (map[string]struct{}, error) {
	table := TableName(stationKey)
	db := s.db.WithContext(ctx)

	if !db.Migrator().HasTable(table) {
		return map[string]struct{}{}, nil
	}
	if err := s.verifyStationTable(table); err != nil {
		return nil, err
	}

	var times []string
	if err := db.Table(table).Pluck("DateTime", &times).Error; err != nil {
		return nil, fmt.Errorf("read existing times: %w", err)
	}

	set := make(map[string]struct{}, len(times))
	for _, t := range times {
		set[t] = struct{}{}
	}
	return set, nil
}

// AppendHistory appends readings to a station's history as a single batch,
// creating the table lazily before the first append. The caller guarantees
// the rows are new and sorted; the DateTime primary key backs the
// at-most-once guarantee at the database level as well.
func (s *Store) AppendHistory(ctx context.Context, stationKey string, readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	table := TableName(stationKey)
	db := s.db.WithContext(ctx)

	if !db.Migrator().HasTable(table) {
		if err := db.Table(table).AutoMigrate(&historyRow{}); err != nil {
			return fmt.Errorf("create station table: %w", err)
		}
		s.markVerified(table)
	} else if err := s.verifyStationTable(table); err != nil {
		return err
	}

	rows := make([]historyRow, 0, len(readings))
	for _, r := range readings {
		rows = append(rows, historyRow{
			DateTime: r.DisplayTime,
			Level:    r.Level,
			Status:   r.Tier.String(),
		})
	}
	if err := db.Table(table).Create(&rows).Error; err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// History returns a station's persisted log ordered by DateTime.
func (s *Store) History(ctx context.Context, stationKey string) ([]models.HistoryRow, error) {
	table := TableName(stationKey)
	db := s.db.WithContext(ctx)

	if !db.Migrator().HasTable(table) {
		return []models.HistoryRow{}, nil
	}

	var rows []historyRow
	if err := db.Table(table).Order("DateTime ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read history for %s: %w", stationKey, err)
	}

	out := make([]models.HistoryRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.HistoryRow{DateTime: r.DateTime, Level: r.Level, Status: r.Status})
	}
	return out, nil
}

// Snapshot returns the latest persisted reading per station, joined with
// the directory metadata.
func (s *Store) Snapshot(ctx context.Context) ([]models.StationStatus, error) {
	entries, err := s.Directory(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]models.StationStatus, 0, len(entries))
	for _, e := range entries {
		status := models.StationStatus{
			Station: e.StationKey,
			Basin:   e.Basin,
			Lat:     e.Latitude,
			Lon:     e.Longitude,
		}
		if row, ok := s.latestRow(ctx, e.StationKey); ok {
			status.Level = row.Level
			status.Status = row.Status
			status.Time = row.DateTime
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// latestRow prefers real timestamps over the sentinel, which would
// otherwise sort last lexicographically.
func (s *Store) latestRow(ctx context.Context, stationKey string) (historyRow, bool) {
	table := TableName(stationKey)
	db := s.db.WithContext(ctx)
	if !db.Migrator().HasTable(table) {
		return historyRow{}, false
	}

	var row historyRow
	err := db.Table(table).
		Where("DateTime <> ?", models.DisplayTimeSentinel).
		Order("DateTime DESC").Limit(1).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Table(table).Order("DateTime DESC").Limit(1).Take(&row).Error
	}
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("latest row lookup failed",
				zap.String("station", stationKey), zap.Error(err))
		}
		return historyRow{}, false
	}
	return row, true
}

// Cursor loads the persisted sync cursor; the zero time means no
// successful sync has been recorded yet.
func (s *Store) Cursor(ctx context.Context) (time.Time, error) {
	var row cursorRow
	err := s.db.WithContext(ctx).Table(cursorTable).Where("id = ?", 1).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: read cursor: %v", models.ErrStoreUnavailable, err)
	}
	if row.LastSyncMS <= 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(row.LastSyncMS).UTC(), nil
}

// SaveCursor records the time of the last successful sync.
func (s *Store) SaveCursor(ctx context.Context, t time.Time) error {
	row := cursorRow{ID: 1, LastSyncMS: t.UnixMilli()}
	err := s.db.WithContext(ctx).Table(cursorTable).Save(&row).Error
	if err != nil {
		return fmt.Errorf("%w: save cursor: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// verifyStationTable checks (once per process per table) that an existing
// station table carries the expected columns before we append to it.
func (s *Store) verifyStationTable(table string) error {
	s.mu.Lock()
	if _, ok := s.verified[table]; ok {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	columns, err := database.GetTableColumns(s.db, table)
	if err != nil {
		return fmt.Errorf("inspect station table: %w", err)
	}

	expected := map[string]bool{"datetime": false, "level": false, "status": false}
	for _, col := range columns {
		if _, ok := expected[col.Field]; ok {
			expected[col.Field] = true
		}
	}
	for field, found := range expected {
		if !found {
			return fmt.Errorf("station table %s is missing column %s", table, field)
		}
	}

	s.markVerified(table)
	return nil
}

func (s *Store) markVerified(table string) {
	s.mu.Lock()
	s.verified[table] = struct{}{}
	s.mu.Unlock()
}
