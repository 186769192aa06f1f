package models

import (
	"strings"
	"time"
)

// DisplayTimeLayout is the canonical zero-padded rendering of ObservedAt.
// Lexicographic order on this format equals chronological order, which is
// what makes DisplayTime usable as the history dedup key.
const DisplayTimeLayout = "2006-01-02 15:04:05"

// DisplayTimeSentinel is stored when the source omitted the edit timestamp.
const DisplayTimeSentinel = "N/A"

// Tier classifies a reading against the station's flood thresholds.
type Tier int

const (
	TierNormal Tier = iota
	TierAlert
	TierMinorFlood
	TierMajorFlood
)

// String renders the tier the way the persisted Status column and the JSON
// surface expect it.
func (t Tier) String() string {
	switch t {
	case TierMajorFlood:
		return "MAJOR FLOOD"
	case TierMinorFlood:
		return "MINOR FLOOD"
	case TierAlert:
		return "ALERT"
	default:
		return "Normal"
	}
}

// MarshalJSON encodes the tier as its status string.
func (t Tier) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// ParseTier maps a configuration string to a Tier. Unknown values fall back
// to TierNormal.
func ParseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major", "major flood":
		return TierMajorFlood
	case "minor", "minor flood":
		return TierMinorFlood
	case "alert":
		return TierAlert
	default:
		return TierNormal
	}
}

// ClassifyTier applies the strictly descending threshold comparison:
// major first, then minor, then alert. A threshold of zero (or below)
// disables that tier; a level satisfying no positive threshold is Normal.
func ClassifyTier(level, alert, minor, major float64) Tier {
	switch {
	case major > 0 && level >= major:
		return TierMajorFlood
	case minor > 0 && level >= minor:
		return TierMinorFlood
	case alert > 0 && level >= alert:
		return TierAlert
	default:
		return TierNormal
	}
}

// NormalizeStationKey derives the stable station identifier from the raw
// gauge name: trimmed, with path separators replaced by underscores and
// colons by dashes so the key is safe as a table name. Two raw names that
// normalize to the same key are the same station.
func NormalizeStationKey(raw string) string {
	key := strings.TrimSpace(raw)
	key = strings.ReplaceAll(key, "/", "_")
	key = strings.ReplaceAll(key, ":", "-")
	return key
}

// RawFeature is one feature record as returned by the upstream service.
type RawFeature struct {
	Attributes FeatureAttributes `json:"attributes"`
	Geometry   FeatureGeometry   `json:"geometry"`
}

// FeatureAttributes carries the gauge telemetry attributes. Pointer fields
// distinguish absent values from zeroes.
type FeatureAttributes struct {
	Gauge      string   `json:"gauge"`
	Basin      *string  `json:"basin"`
	WaterLevel *float64 `json:"water_level"`
	AlertPull  *float64 `json:"alertpull"`
	MinorPull  *float64 `json:"minorpull"`
	MajorPull  *float64 `json:"majorpull"`
	EditDate   *int64   `json:"EditDate"`
	ObjectID   int64    `json:"OBJECTID"`
}

// FeatureGeometry is the point geometry of the station.
type FeatureGeometry struct {
	X float64 `json:"x"` // longitude
	Y float64 `json:"y"` // latitude
}

// Reading is one canonical telemetry sample.
type Reading struct {
	StationKey   string    `json:"station"`
	Basin        *string   `json:"basin"`
	Latitude     float64   `json:"lat"`
	Longitude    float64   `json:"lon"`
	Level        float64   `json:"level"`
	Tier         Tier      `json:"status"`
	ObservedAt   time.Time `json:"observed_at"`
	DisplayTime  string    `json:"time"`
	EditSequence int64     `json:"-"`
}

// DirectoryEntry is the latest known metadata for one station, together
// with the ObservedAt high-water mark recorded at last write. A windowed
// fetch carrying stale data must not regress an entry.
type DirectoryEntry struct {
	StationKey string
	Basin      *string
	Latitude   float64
	Longitude  float64
	ObservedAt time.Time
}

// HistoryRow mirrors one persisted station table row.
type HistoryRow struct {
	DateTime string  `json:"time"`
	Level    float64 `json:"level"`
	Status   string  `json:"status"`
}

// StationStatus is the latest reading per station as served by the
// snapshot endpoint.
type StationStatus struct {
	Station string  `json:"station"`
	Basin   *string `json:"basin"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Level   float64 `json:"level"`
	Status  string  `json:"status"`
	Time    string  `json:"time"`
}

// SyncMode selects between a full-history and an incremental-window fetch.
type SyncMode string

const (
	ModeFull        SyncMode = "full"
	ModeIncremental SyncMode = "incremental"
)

// SyncSummary reports the outcome of one sync cycle.
type SyncSummary struct {
	Mode            SyncMode `json:"mode"`
	StationsUpdated int      `json:"stations_updated"`
	RowsAppended    int      `json:"rows_appended"`
	Skipped         int      `json:"skipped"`
	Partial         bool     `json:"partial"`
}
