package domain

// Metric names used as top-level keys of the raw payload.
const (
	MetricConfirmed = "confirmed"
	MetricRecovered = "recovered"
	MetricDeaths    = "deaths"
)

// Metrics lists the payload metrics in processing order. Confirmed comes first
// so that it is the metric that discovers new regions.
var Metrics = []string{MetricConfirmed, MetricRecovered, MetricDeaths}

// WorldID is the id of the synthesized aggregate region.
const WorldID = "World"

// Payload is the raw time-series document keyed by metric name.
type Payload map[string]MetricFeed

// MetricFeed holds every location record reported for one metric.
type MetricFeed struct {
	Locations []LocationRecord `json:"locations"`
}

// LocationRecord is one reporting location: a country, or a province of it
// when Province is non-empty. History maps a date key to a cumulative count.
type LocationRecord struct {
	CountryCode string           `json:"country_code"`
	Country     string           `json:"country"`
	Province    string           `json:"province"`
	History     map[string]int64 `json:"history"`
}
