// Package domain models epidemiological time series for the world map.
//
// # Data Source
//
// The raw payload comes from public coronavirus tracker APIs. It is keyed by
// metric name ("confirmed", "recovered", "deaths"); each metric carries a
// list of locations with an ISO 3166-1 alpha-2 country code, an optional
// province name, and a history of cumulative counts keyed by date.
//
// # Payload Conventions
//
// Country codes:
//
//	"XX" marks non-national entities such as cruise ships. Those records are
//	keyed by their free-text country name, e.g. "Diamond Princess".
//
// Date keys:
//
//	Accepted as "2020-01-22", "1/22/20", "1/22/2020" or RFC 3339, and
//	canonicalized to "2006-01-02". Unparseable keys are skipped.
//
// Gaps:
//
//	Some feeds report sub-national data only (a country appears as a list of
//	provinces), omit recovered counts for a country, or start a location's
//	history later than others. Series are aligned on the union of all dates:
//	days before a location's first report are zero, interior gaps carry the
//	last cumulative value forward, and missing metrics are zero.
//
// # Normalization
//
// [Normalizer.Normalize] builds a [SeriesTable] in this order:
//
//  1. accumulate observations by region, province and canonical date
//  2. promote provinces that are first-level map regions (Greenland under
//     Denmark, for example) to their own top-level entry
//  3. align every series with observations on the shared timeline
//  4. roll up, per metric, what a country only reports through provinces
//  5. backfill regions left without dates from the reference region
//  6. derive active and new-confirmed arrays
//  7. sum top-level regions into the synthesized "World" region and derive
//     its own active and new-confirmed arrays
//
// Promotion runs before roll-up so that a promoted territory is counted once
// in the World aggregate.
//
// # Colors
//
// [ColorFor] maps the unresolved fraction (confirmed-recovered)/confirmed of a
// day to an rgb() string in three bands: green up to 0.3, orange up to 0.5, red
// above. A zero fraction is white.
package domain
