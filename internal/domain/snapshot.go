package domain

import (
	"fmt"
	"log/slog"
)

// DisplayMode selects whether snapshots carry per-province colors.
type DisplayMode string

const (
	// DisplayCompact emits one color per top-level region.
	DisplayCompact DisplayMode = "compact"
	// DisplayDetailed also emits a color for every province with a map id.
	DisplayDetailed DisplayMode = "detailed"
)

// ParseDisplayMode validates a display mode name.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch m := DisplayMode(s); m {
	case DisplayCompact, DisplayDetailed:
		return m, nil
	}
	return "", fmt.Errorf("unknown display mode %q", s)
}

// ProvinceResolver maps a province name of a country to its map region id.
type ProvinceResolver interface {
	ProvinceIDByName(country, name string) (string, bool)
}

// DaySnapshot is the color assignment for one day of the timeline.
type DaySnapshot struct {
	Index  int               `json:"index"`
	Date   string            `json:"date"`
	Colors map[string]string `json:"colors"`
}

// SnapshotBuilder turns a SeriesTable into per-day color snapshots.
type SnapshotBuilder struct {
	mode      DisplayMode
	provinces ProvinceResolver
	logger    *slog.Logger
}

// NewSnapshotBuilder creates a builder. provinces may be nil in compact mode.
func NewSnapshotBuilder(mode DisplayMode, provinces ProvinceResolver, logger *slog.Logger) *SnapshotBuilder {
	return &SnapshotBuilder{mode: mode, provinces: provinces, logger: logger}
}

// Build returns one snapshot per date of the World timeline. In detailed mode a
// country keeps its own color and each province with a known map id gets its
// own color on top, so provinces missing from the map still show the country
// total.
func (b *SnapshotBuilder) Build(t *SeriesTable) []DaySnapshot {
	dates := t.Dates()
	snapshots := make([]DaySnapshot, len(dates))
	for d, date := range dates {
		snapshots[d] = DaySnapshot{Index: d, Date: date, Colors: make(map[string]string)}
	}

	unmapped := 0
	for _, id := range t.IDs() {
		s := t.Regions[id]
		fillColors(snapshots, s, id)
		if b.mode != DisplayDetailed || b.provinces == nil {
			continue
		}
		for _, name := range s.ProvinceNames() {
			pid, ok := b.provinces.ProvinceIDByName(id, name)
			if !ok {
				unmapped++
				b.logger.Debug("province without map id", "region", id, "province", name)
				continue
			}
			fillColors(snapshots, s.Provinces[name], pid)
		}
	}

	b.logger.Debug("snapshots built", "days", len(snapshots), "mode", string(b.mode), "unmapped_provinces", unmapped)
	return snapshots
}

// fillColors writes the color of s under key into every snapshot whose date
// the series covers.
func fillColors(snapshots []DaySnapshot, s *DailySeries, key string) {
	aligned := s.Len() == len(snapshots)
	for d := range snapshots {
		i := d
		if !aligned || s.Dates[d] != snapshots[d].Date {
			if i = s.IndexOf(snapshots[d].Date); i < 0 {
				continue
			}
		}
		snapshots[d].Colors[key] = ColorFor(s.Confirmed[i], s.Recovered[i])
	}
}
