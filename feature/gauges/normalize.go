package gauges

import (
	"strings"
	"time"

	"github.com/jancika1998-netizen/Water-Level/feature/gauges/models"
)

// Normalize turns a raw feature into a canonical Reading. The second return
// value is false when the feature carries no gauge name, in which case the
// record is skipped rather than treated as an error.
func Normalize(raw models.RawFeature) (models.Reading, bool) {
	if strings.TrimSpace(raw.Attributes.Gauge) == "" {
		return models.Reading{}, false
	}

	reading := models.Reading{
		StationKey:  models.NormalizeStationKey(raw.Attributes.Gauge),
		Basin:       raw.Attributes.Basin,
		Latitude:    raw.Geometry.Y,
		Longitude:   raw.Geometry.X,
		DisplayTime: models.DisplayTimeSentinel,
	}

	// Readings without an edit timestamp are kept; they sort as timestamp
	// zero and persist under the sentinel display time.
	if raw.Attributes.EditDate != nil {
		reading.EditSequence = *raw.Attributes.EditDate
		reading.ObservedAt = time.UnixMilli(*raw.Attributes.EditDate).UTC()
		reading.DisplayTime = reading.ObservedAt.Format(models.DisplayTimeLayout)
	}

	if raw.Attributes.WaterLevel != nil {
		reading.Level = *raw.Attributes.WaterLevel
	}

	reading.Tier = models.ClassifyTier(
		reading.Level,
		derefOrZero(raw.Attributes.AlertPull),
		derefOrZero(raw.Attributes.MinorPull),
		derefOrZero(raw.Attributes.MajorPull),
	)

	return reading, true
}

// GroupByStation groups readings by station key, preserving fetch order
// within each group. Pure; the secondary sort by ObservedAt happens in the
// reconciliation engine just before persistence.
func GroupByStation(readings []models.Reading) map[string][]models.Reading {
	grouped := make(map[string][]models.Reading)
	for _, r := range readings {
		grouped[r.StationKey] = append(grouped[r.StationKey], r)
	}
	return grouped
}

func derefOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
