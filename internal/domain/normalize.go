package domain

import (
	"log/slog"
	"sort"

	"github.com/jonboulle/clockwork"
)

// RegionDirectory resolves first-level map regions by display name. The
// normalizer uses it to promote provinces that are drawn as their own region.
type RegionDirectory interface {
	TopLevelIDByName(name string) (string, bool)
}

// NormalizerOptions tunes how raw payloads are reshaped.
type NormalizerOptions struct {
	// NonNationalCode is the country code used for entities that are not
	// countries. Records carrying it are keyed by their country name.
	NonNationalCode string
	// ReferenceRegion supplies the timeline for regions left without dates.
	ReferenceRegion string
	// ClampActive floors active cases at zero.
	ClampActive bool
	// Clock stamps NormalizedAt. Nil uses real time.
	Clock clockwork.Clock
}

// DefaultNormalizerOptions returns the options used by the service.
func DefaultNormalizerOptions() NormalizerOptions {
	return NormalizerOptions{
		NonNationalCode: "XX",
		ReferenceRegion: "CN",
		ClampActive:     true,
	}
}

// Normalizer turns a location-keyed payload into a SeriesTable.
type Normalizer struct {
	dir    RegionDirectory
	opts   NormalizerOptions
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewNormalizer creates a normalizer. dir may be nil, which disables promotion.
func NewNormalizer(dir RegionDirectory, opts NormalizerOptions, logger *slog.Logger) *Normalizer {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Normalizer{dir: dir, opts: opts, clock: clock, logger: logger}
}

// observations holds metric -> canonical date -> cumulative value.
type observations map[string]map[string]int64

func (o observations) add(metric, date string, v int64) {
	byDate, ok := o[metric]
	if !ok {
		byDate = make(map[string]int64)
		o[metric] = byDate
	}
	byDate[date] += v
}

func (o observations) merge(other observations) {
	for metric, byDate := range other {
		for date, v := range byDate {
			o.add(metric, date, v)
		}
	}
}

func (o observations) empty() bool {
	for _, byDate := range o {
		if len(byDate) > 0 {
			return false
		}
	}
	return true
}

// accumulator collects raw observations for one region before alignment.
type accumulator struct {
	direct    observations
	provinces map[string]observations
}

func newAccumulator() *accumulator {
	return &accumulator{direct: make(observations)}
}

func (a *accumulator) province(name string) observations {
	if a.provinces == nil {
		a.provinces = make(map[string]observations)
	}
	obs, ok := a.provinces[name]
	if !ok {
		obs = make(observations)
		a.provinces[name] = obs
	}
	return obs
}

// Normalize reshapes p. Irregular records are skipped and counted in the
// table's report rather than failing the whole payload.
func (n *Normalizer) Normalize(p Payload) *SeriesTable {
	report := NormalizeReport{}
	regions := n.accumulate(p, &report)
	n.promote(regions, &report)

	timeline := unionTimeline(regions)
	out := make(map[string]*DailySeries, len(regions)+1)
	for _, id := range sortedKeys(regions) {
		out[id] = n.materialize(id, regions[id], timeline, &report)
	}
	n.backfill(out, timeline, &report)

	for _, s := range out {
		s.derive(n.opts.ClampActive)
		for _, ps := range s.Provinces {
			ps.derive(n.opts.ClampActive)
		}
	}
	out[WorldID] = aggregateWorld(out, timeline, n.opts.ClampActive)

	n.logger.Debug("payload normalized",
		"regions", len(out)-1,
		"days", len(timeline),
		"records", report.Records,
		"skipped_records", report.SkippedRecords,
		"malformed_dates", report.MalformedDates,
	)
	return &SeriesTable{Regions: out, Report: report, NormalizedAt: n.clock.Now().UTC()}
}

// regionID picks the table key for a record. Non-national entities and
// records without a code are keyed by their free-text country name.
func (n *Normalizer) regionID(rec LocationRecord) string {
	if rec.CountryCode == "" || rec.CountryCode == n.opts.NonNationalCode {
		return rec.Country
	}
	return rec.CountryCode
}

func (n *Normalizer) accumulate(p Payload, report *NormalizeReport) map[string]*accumulator {
	regions := make(map[string]*accumulator)
	for _, metric := range Metrics {
		feed, ok := p[metric]
		if !ok {
			n.logger.Debug("metric missing from payload", "metric", metric)
			continue
		}
		for _, rec := range feed.Locations {
			report.Records++
			id := n.regionID(rec)
			if id == "" {
				report.SkippedRecords++
				n.logger.Debug("location without id skipped", "metric", metric, "province", rec.Province)
				continue
			}
			acc, ok := regions[id]
			if !ok {
				acc = newAccumulator()
				regions[id] = acc
			}
			target := acc.direct
			if rec.Province != "" {
				target = acc.province(rec.Province)
			}
			for key, v := range rec.History {
				date, ok := canonicalDate(key)
				if !ok {
					report.MalformedDates++
					n.logger.Debug("malformed date key skipped", "region", id, "metric", metric, "key", key)
					continue
				}
				if v < 0 {
					v = 0
				}
				target.add(metric, date, v)
			}
		}
	}
	return regions
}

// promote moves provinces that are first-level map regions up to the top
// level. A province whose target already has data is merged by summation.
func (n *Normalizer) promote(regions map[string]*accumulator, report *NormalizeReport) {
	if n.dir == nil {
		return
	}
	for _, parentID := range sortedKeys(regions) {
		parent := regions[parentID]
		for _, name := range sortedKeys(parent.provinces) {
			targetID, ok := n.dir.TopLevelIDByName(name)
			if !ok || targetID == parentID {
				continue
			}
			obs := parent.provinces[name]
			delete(parent.provinces, name)
			target, exists := regions[targetID]
			if !exists {
				target = newAccumulator()
				regions[targetID] = target
			}
			target.direct.merge(obs)
			if report.Promoted == nil {
				report.Promoted = make(map[string]string)
			}
			report.Promoted[name] = targetID
			n.logger.Debug("province promoted", "province", name, "from", parentID, "to", targetID, "merged", exists)
		}
	}
}

// materialize aligns one region onto the shared timeline. Each metric the
// region does not report directly is rolled up from its provinces.
func (n *Normalizer) materialize(id string, acc *accumulator, timeline []string, report *NormalizeReport) *DailySeries {
	if len(acc.provinces) == 0 {
		if acc.direct.empty() {
			return &DailySeries{}
		}
		return align(acc.direct, timeline)
	}

	s := align(acc.direct, timeline)
	provinces := make(map[string]*DailySeries, len(acc.provinces))
	for name, obs := range acc.provinces {
		provinces[name] = align(obs, timeline)
	}
	s.Provinces = provinces

	var rolled []string
	for _, metric := range Metrics {
		if len(acc.direct[metric]) > 0 || !provincesReport(acc.provinces, metric) {
			continue
		}
		dst := s.metric(metric)
		for _, name := range sortedKeys(provinces) {
			for i, v := range provinces[name].metric(metric) {
				dst[i] += v
			}
		}
		rolled = append(rolled, metric)
	}
	if len(rolled) > 0 {
		report.RolledUp = append(report.RolledUp, id)
		if report.RolledUpMetrics == nil {
			report.RolledUpMetrics = make(map[string][]string)
		}
		report.RolledUpMetrics[id] = rolled
	}
	return s
}

func provincesReport(provinces map[string]observations, metric string) bool {
	for _, obs := range provinces {
		if len(obs[metric]) > 0 {
			return true
		}
	}
	return false
}

// backfill gives regions without observations the reference region's dates
// with zero values and drops their stale provinces.
func (n *Normalizer) backfill(out map[string]*DailySeries, timeline []string, report *NormalizeReport) {
	ref := timeline
	if r, ok := out[n.opts.ReferenceRegion]; ok && r.Len() > 0 {
		ref = r.Dates
	}
	for _, id := range sortedKeys(out) {
		if out[id].Len() > 0 {
			continue
		}
		out[id] = newSeries(ref)
		report.Backfilled = append(report.Backfilled, id)
		n.logger.Debug("region backfilled", "region", id, "reference", n.opts.ReferenceRegion)
	}
}

// align projects observations onto timeline. Days before the first
// observation are zero and gaps carry the last cumulative value forward.
func align(obs observations, timeline []string) *DailySeries {
	s := newSeries(timeline)
	for _, metric := range Metrics {
		values := obs[metric]
		arr := s.metric(metric)
		var last int64
		for i, date := range timeline {
			if v, ok := values[date]; ok {
				last = v
			}
			arr[i] = last
		}
	}
	return s
}

func unionTimeline(regions map[string]*accumulator) []string {
	seen := make(map[string]struct{})
	collect := func(obs observations) {
		for _, byDate := range obs {
			for date := range byDate {
				seen[date] = struct{}{}
			}
		}
	}
	for _, acc := range regions {
		collect(acc.direct)
		for _, obs := range acc.provinces {
			collect(obs)
		}
	}
	return sortedKeys(seen)
}

// aggregateWorld sums the cumulative metrics of every top-level region by
// date key and derives the World's own active and new-confirmed arrays.
func aggregateWorld(regions map[string]*DailySeries, timeline []string, clampActive bool) *DailySeries {
	world := newSeries(timeline)
	index := make(map[string]int, len(timeline))
	for i, date := range timeline {
		index[date] = i
	}
	for _, id := range sortedKeys(regions) {
		s := regions[id]
		for i, date := range s.Dates {
			j, ok := index[date]
			if !ok {
				continue
			}
			world.Confirmed[j] += s.Confirmed[i]
			world.Recovered[j] += s.Recovered[i]
			world.Deaths[j] += s.Deaths[i]
		}
	}
	world.derive(clampActive)
	return world
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
