package domain

import (
	"sort"
	"strings"
)

// DayStats is the detail panel view of one region on one day.
type DayStats struct {
	Day          int    `json:"day"`
	Date         string `json:"date"`
	Confirmed    int64  `json:"confirmed"`
	Active       int64  `json:"active"`
	Recovered    int64  `json:"recovered"`
	Deaths       int64  `json:"deaths"`
	NewConfirmed int64  `json:"new_confirmed"`
	NewActive    int64  `json:"new_active"`
	NewRecovered int64  `json:"new_recovered"`
	NewDeaths    int64  `json:"new_deaths"`

	// Percentages of confirmed, floored. Zero when nothing is confirmed.
	ActivePercent    int64 `json:"active_percent"`
	RecoveredPercent int64 `json:"recovered_percent"`
	DeathsPercent    int64 `json:"deaths_percent"`
}

// StatsAt returns the stats for a day index. Day 0 deltas are measured
// against zero.
func (s *DailySeries) StatsAt(day int) (DayStats, bool) {
	if day < 0 || day >= s.Len() {
		return DayStats{}, false
	}
	st := DayStats{
		Day:       day,
		Date:      s.Dates[day],
		Confirmed: s.Confirmed[day],
		Active:    s.Active[day],
		Recovered: s.Recovered[day],
		Deaths:    s.Deaths[day],
	}
	var prevC, prevA, prevR, prevD int64
	if day > 0 {
		prevC, prevA, prevR, prevD = s.Confirmed[day-1], s.Active[day-1], s.Recovered[day-1], s.Deaths[day-1]
	}
	st.NewConfirmed = st.Confirmed - prevC
	st.NewActive = st.Active - prevA
	st.NewRecovered = st.Recovered - prevR
	st.NewDeaths = st.Deaths - prevD
	st.ActivePercent = percentOf(st.Active, st.Confirmed)
	st.RecoveredPercent = percentOf(st.Recovered, st.Confirmed)
	st.DeathsPercent = percentOf(st.Deaths, st.Confirmed)
	return st, true
}

func percentOf(v, total int64) int64 {
	if total <= 0 {
		return 0
	}
	p := v * 100
	q := p / total
	if p%total != 0 && p < 0 {
		q--
	}
	return q
}

// Namer resolves display names for region ids.
type Namer interface {
	Name(id string) string
}

// RankEntry is one row of the country ranking.
type RankEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Confirmed    int64  `json:"confirmed"`
	Active       int64  `json:"active"`
	Recovered    int64  `json:"recovered"`
	Deaths       int64  `json:"deaths"`
	NewConfirmed int64  `json:"new_confirmed"`
}

// Ranking lists top-level regions on a day by confirmed cases, highest first,
// ties broken by id. A non-empty query keeps regions whose display name
// contains it, ignoring case. names may be nil.
func (t *SeriesTable) Ranking(day int, query string, names Namer) []RankEntry {
	query = strings.ToLower(strings.TrimSpace(query))
	var out []RankEntry
	for _, id := range t.IDs() {
		s := t.Regions[id]
		if day < 0 || day >= s.Len() {
			continue
		}
		name := id
		if names != nil {
			name = names.Name(id)
		}
		if query != "" && !strings.Contains(strings.ToLower(name), query) {
			continue
		}
		out = append(out, RankEntry{
			ID:           id,
			Name:         name,
			Confirmed:    s.Confirmed[day],
			Active:       s.Active[day],
			Recovered:    s.Recovered[day],
			Deaths:       s.Deaths[day],
			NewConfirmed: s.NewConfirmed[day],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confirmed != out[j].Confirmed {
			return out[i].Confirmed > out[j].Confirmed
		}
		return out[i].ID < out[j].ID
	})
	return out
}
