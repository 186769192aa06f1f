package feed

// Config holds configuration for the upstream gauge feature service.
type Config struct {
	// URL is the feature-query endpoint.
	URL string `mapstructure:"url" default:"https://services3.arcgis.com/J7ZFXmR8rSmQ3FGf/arcgis/rest/services/gauges_2_view/FeatureServer/0/query"`
	// PageSize is the number of records requested per page.
	PageSize int `mapstructure:"page_size" default:"1000"`
	// TimeoutSeconds is the per-HTTP-call timeout.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"45"`
	// WindowHours is the trailing edit window for incremental fetches when
	// no sync cursor is available yet.
	WindowHours int `mapstructure:"window_hours" default:"24"`
}
