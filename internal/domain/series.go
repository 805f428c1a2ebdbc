package domain

import (
	"sort"
	"time"
)

// DailySeries holds index-aligned daily arrays for one region. Every array has
// the same length as Dates. Provinces carries the per-province breakdown when
// the source reports sub-national data.
type DailySeries struct {
	Dates        []string                `json:"dates"`
	Confirmed    []int64                 `json:"confirmed"`
	Recovered    []int64                 `json:"recovered"`
	Deaths       []int64                 `json:"deaths"`
	Active       []int64                 `json:"active_cases"`
	NewConfirmed []int64                 `json:"new_confirmed"`
	Provinces    map[string]*DailySeries `json:"provinces,omitempty"`
}

// newSeries allocates a zero-valued series over the given dates.
func newSeries(dates []string) *DailySeries {
	n := len(dates)
	return &DailySeries{
		Dates:        append([]string(nil), dates...),
		Confirmed:    make([]int64, n),
		Recovered:    make([]int64, n),
		Deaths:       make([]int64, n),
		Active:       make([]int64, n),
		NewConfirmed: make([]int64, n),
	}
}

// Len returns the number of days in the series.
func (s *DailySeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Dates)
}

// IndexOf returns the day index of a canonical date key, or -1.
func (s *DailySeries) IndexOf(date string) int {
	if s == nil {
		return -1
	}
	i := sort.SearchStrings(s.Dates, date)
	if i < len(s.Dates) && s.Dates[i] == date {
		return i
	}
	return -1
}

// Province returns the named province series, or nil.
func (s *DailySeries) Province(name string) *DailySeries {
	if s == nil || s.Provinces == nil {
		return nil
	}
	return s.Provinces[name]
}

// ProvinceNames returns the province names in ascending order.
func (s *DailySeries) ProvinceNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Provinces))
	for name := range s.Provinces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// metric returns the cumulative array for a payload metric name.
func (s *DailySeries) metric(name string) []int64 {
	switch name {
	case MetricConfirmed:
		return s.Confirmed
	case MetricRecovered:
		return s.Recovered
	case MetricDeaths:
		return s.Deaths
	default:
		return nil
	}
}

// derive computes active and new-confirmed arrays from the cumulative ones.
// Active cases are floored at zero when clampActive is set.
func (s *DailySeries) derive(clampActive bool) {
	n := len(s.Dates)
	s.Active = make([]int64, n)
	s.NewConfirmed = make([]int64, n)
	for i := 0; i < n; i++ {
		active := s.Confirmed[i] - s.Recovered[i] - s.Deaths[i]
		if clampActive && active < 0 {
			active = 0
		}
		s.Active[i] = active
		if i == 0 {
			continue
		}
		if delta := s.Confirmed[i] - s.Confirmed[i-1]; delta > 0 {
			s.NewConfirmed[i] = delta
		}
	}
}

// NormalizeReport summarizes what the normalizer tolerated or reshaped.
type NormalizeReport struct {
	Records         int                 `json:"records"`
	SkippedRecords  int                 `json:"skipped_records"`
	MalformedDates  int                 `json:"malformed_dates"`
	Promoted        map[string]string   `json:"promoted,omitempty"` // province name -> region id
	RolledUp        []string            `json:"rolled_up,omitempty"`
	RolledUpMetrics map[string][]string `json:"rolled_up_metrics,omitempty"` // region id -> metrics summed from provinces
	Backfilled      []string            `json:"backfilled,omitempty"`
}

// SeriesTable is the normalized per-region table, including the synthesized
// World aggregate under WorldID.
type SeriesTable struct {
	Regions      map[string]*DailySeries `json:"regions"`
	Report       NormalizeReport         `json:"report"`
	NormalizedAt time.Time               `json:"normalized_at"`
}

// Get returns the series for a region id, or nil.
func (t *SeriesTable) Get(id string) *DailySeries {
	if t == nil {
		return nil
	}
	return t.Regions[id]
}

// World returns the aggregate series.
func (t *SeriesTable) World() *DailySeries {
	return t.Get(WorldID)
}

// Dates returns the shared timeline.
func (t *SeriesTable) Dates() []string {
	if w := t.World(); w != nil {
		return w.Dates
	}
	return nil
}

// IDs returns the top-level region ids in ascending order, excluding World.
func (t *SeriesTable) IDs() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, 0, len(t.Regions))
	for id := range t.Regions {
		if id == WorldID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
