package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/svg-world-map/internal/adapter/source"
	"github.com/couchcryptid/svg-world-map/internal/adapter/svg"
	"github.com/couchcryptid/svg-world-map/internal/domain"
	"github.com/couchcryptid/svg-world-map/internal/observability"
	"github.com/couchcryptid/svg-world-map/internal/pipeline"
	"github.com/couchcryptid/svg-world-map/internal/regionindex"
	"github.com/couchcryptid/svg-world-map/internal/timeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxReported caps the errors printed per phase.
const maxReported = 10

type validateOptions struct {
	payloadPath, svgPath, metadataPath string
	normalizer                         domain.NormalizerOptions
	mode                               string
}

func newValidateCmd() *cobra.Command {
	opts := validateOptions{normalizer: domain.DefaultNormalizerOptions()}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Build the map offline and check the series and paint invariants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ok, err := runValidate(cmd.Context(), cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.payloadPath, "payload", "", "Path to the time-series payload JSON")
	f.StringVar(&opts.svgPath, "svg", "", "Path to the SVG map")
	f.StringVar(&opts.metadataPath, "metadata", "", "Path to the region metadata JSON (optional)")
	f.StringVar(&opts.normalizer.NonNationalCode, "non-national-code", opts.normalizer.NonNationalCode, "Country code of non-national entities")
	f.StringVar(&opts.normalizer.ReferenceRegion, "reference-region", opts.normalizer.ReferenceRegion, "Region whose dates backfill empty series")
	f.BoolVar(&opts.normalizer.ClampActive, "clamp-active", opts.normalizer.ClampActive, "Floor active cases at zero")
	f.StringVar(&opts.mode, "display-mode", string(domain.DisplayDetailed), "Snapshot display mode: compact or detailed")
	_ = cmd.MarkFlagRequired("payload")
	_ = cmd.MarkFlagRequired("svg")
	return cmd
}

// runValidate builds a session through the regular pipeline, then checks it.
// It returns false when any phase fails.
func runValidate(ctx context.Context, out io.Writer, opts validateOptions) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	mode, err := domain.ParseDisplayMode(opts.mode)
	if err != nil {
		return false, err
	}
	var metadata domain.Metadata
	if opts.metadataPath != "" {
		metadata, err = source.LoadMetadataFile(opts.metadataPath)
		if err != nil {
			return false, err
		}
	}

	logger := cliLogger()
	metrics := observability.NewMetricsForTesting()
	// A source with no URLs reads the fallback file directly.
	payloads := source.NewPayloadSource(source.NewClient(nil, opts.payloadPath, time.Second, 0, metrics, logger))
	docs := func(context.Context) (pipeline.Document, error) { return svg.LoadFile(opts.svgPath) }

	p := pipeline.New(docs, payloads, pipeline.Options{
		Metadata:    metadata,
		Style:       regionindex.DefaultStyle(),
		Normalizer:  opts.normalizer,
		DisplayMode: mode,
		Timeline:    timeline.DefaultOptions(),
	}, logger, metrics)
	sess, err := p.Build(ctx)
	if err != nil {
		return false, fmt.Errorf("build: %w", err)
	}

	fmt.Fprintln(out, "=== World Map Build Validation ===")
	fmt.Fprintf(out, "regions indexed: %d, series: %d, days: %d, skipped records: %d, malformed dates: %d\n\n",
		sess.Index.Len(), len(sess.Table.IDs()), len(sess.Snapshots),
		sess.Table.Report.SkippedRecords, sess.Table.Report.MalformedDates)

	phases := []*phase{
		validateHierarchy(sess.Index),
		validateAlignment(sess.Table),
		validateRollUp(sess.Table),
		validateWorld(sess.Table),
		validateDerived(sess.Table, opts.normalizer.ClampActive),
		validateSnapshots(sess),
		validatePaint(sess),
	}

	allPassed := true
	for _, ph := range phases {
		status := "PASS"
		if !ph.passed() {
			status = "FAIL"
			allPassed = false
		}
		fmt.Fprintf(out, "[%s] %s\n", status, ph.name)
		for i, e := range ph.errors {
			if i == maxReported {
				fmt.Fprintf(out, "       ... and %d more\n", len(ph.errors)-maxReported)
				break
			}
			fmt.Fprintf(out, "       %s\n", e)
		}
	}
	fmt.Fprintln(out)
	if allPassed {
		fmt.Fprintln(out, "All phases passed.")
	}
	return allPassed, nil
}

func validateHierarchy(ix *regionindex.Index) *phase {
	ph := &phase{name: "Region hierarchy"}
	for _, c := range ix.Countries() {
		if c.CountryID != c.ID {
			ph.errorf("country %s: owner is %s", c.ID, c.CountryID)
		}
		provinces, err := ix.Provinces(c.ID)
		if err != nil {
			ph.errorf("country %s: %v", c.ID, err)
			continue
		}
		for _, p := range provinces {
			if p.CountryID != c.ID {
				ph.errorf("region %s: owner %s, listed under %s", p.ID, p.CountryID, c.ID)
			}
			if p.Kind == regionindex.KindSubprovince && p.ProvinceID == p.ID {
				ph.errorf("subprovince %s: missing province parent", p.ID)
			}
		}
	}
	return ph
}

func eachSeries(t *domain.SeriesTable, fn func(label string, s *domain.DailySeries)) {
	for id, s := range t.Regions {
		fn(id, s)
		for _, name := range s.ProvinceNames() {
			fn(id+"/"+name, s.Province(name))
		}
	}
}

func validateAlignment(t *domain.SeriesTable) *phase {
	ph := &phase{name: "Array alignment"}
	eachSeries(t, func(label string, s *domain.DailySeries) {
		n := len(s.Dates)
		for name, arr := range map[string][]int64{
			"confirmed": s.Confirmed, "recovered": s.Recovered, "deaths": s.Deaths,
			"active": s.Active, "new_confirmed": s.NewConfirmed,
		} {
			if len(arr) != n {
				ph.errorf("%s: %s has %d values for %d dates", label, name, len(arr), n)
			}
		}
		for i := 1; i < n; i++ {
			if s.Dates[i] <= s.Dates[i-1] {
				ph.errorf("%s: dates not ascending at %d (%s after %s)", label, i, s.Dates[i], s.Dates[i-1])
				break
			}
		}
	})
	return ph
}

func provinceSum(s *domain.DailySeries, metric string, day int) int64 {
	var sum int64
	for _, name := range s.ProvinceNames() {
		if arr := seriesMetric(s.Province(name), metric); day < len(arr) {
			sum += arr[day]
		}
	}
	return sum
}

func seriesMetric(s *domain.DailySeries, metric string) []int64 {
	switch metric {
	case domain.MetricConfirmed:
		return s.Confirmed
	case domain.MetricRecovered:
		return s.Recovered
	case domain.MetricDeaths:
		return s.Deaths
	}
	return nil
}

func validateRollUp(t *domain.SeriesTable) *phase {
	ph := &phase{name: "Province roll-up"}
	for _, id := range t.IDs() {
		s := t.Get(id)
		if len(s.Provinces) == 0 {
			continue
		}
		rolled := map[string]bool{}
		for _, metric := range t.Report.RolledUpMetrics[id] {
			rolled[metric] = true
		}
		for _, metric := range domain.Metrics {
			values := seriesMetric(s, metric)
			for i := range values {
				sum := provinceSum(s, metric, i)
				if rolled[metric] && values[i] != sum {
					ph.errorf("%s day %d: %s %d, provinces sum %d", id, i, metric, values[i], sum)
				}
				if metric == domain.MetricConfirmed && values[i] < sum {
					ph.errorf("%s day %d: confirmed %d below provinces sum %d", id, i, values[i], sum)
				}
			}
		}
	}
	return ph
}

func validateWorld(t *domain.SeriesTable) *phase {
	ph := &phase{name: "World aggregate"}
	world := t.World()
	if world == nil {
		ph.errorf("no %s series", domain.WorldID)
		return ph
	}
	for i, date := range world.Dates {
		var c, r, d int64
		for _, id := range t.IDs() {
			s := t.Get(id)
			j := s.IndexOf(date)
			if j < 0 {
				continue
			}
			c += s.Confirmed[j]
			r += s.Recovered[j]
			d += s.Deaths[j]
		}
		if c != world.Confirmed[i] || r != world.Recovered[i] || d != world.Deaths[i] {
			ph.errorf("%s: world %d/%d/%d, regions sum %d/%d/%d", date,
				world.Confirmed[i], world.Recovered[i], world.Deaths[i], c, r, d)
		}
	}
	return ph
}

func validateDerived(t *domain.SeriesTable, clamp bool) *phase {
	ph := &phase{name: "Derived metrics"}
	eachSeries(t, func(label string, s *domain.DailySeries) {
		if len(s.NewConfirmed) > 0 && s.NewConfirmed[0] != 0 {
			ph.errorf("%s: new confirmed on day 0 is %d", label, s.NewConfirmed[0])
		}
		for i := range s.Dates {
			if i >= len(s.NewConfirmed) || i >= len(s.Active) {
				return
			}
			if s.NewConfirmed[i] < 0 {
				ph.errorf("%s day %d: negative new confirmed %d", label, i, s.NewConfirmed[i])
			}
			want := s.Confirmed[i] - s.Recovered[i] - s.Deaths[i]
			if clamp {
				want = max(0, want)
			}
			if s.Active[i] != want {
				ph.errorf("%s day %d: active %d, want %d", label, i, s.Active[i], want)
			}
		}
	})
	return ph
}

func validateSnapshots(sess *pipeline.Session) *phase {
	ph := &phase{name: "Snapshots"}
	dates := sess.Table.Dates()
	if len(sess.Snapshots) != len(dates) {
		ph.errorf("%d snapshots for %d dates", len(sess.Snapshots), len(dates))
		return ph
	}
	for i, snap := range sess.Snapshots {
		if snap.Index != i || snap.Date != dates[i] {
			ph.errorf("snapshot %d: index %d date %s, want %s", i, snap.Index, snap.Date, dates[i])
		}
	}
	return ph
}

// displayStates captures the visual state of every indexed region.
func displayStates(ix *regionindex.Index) map[string]regionindex.DisplayState {
	out := map[string]regionindex.DisplayState{}
	for _, c := range ix.Countries() {
		ids := []string{c.ID}
		provinces, _ := ix.Provinces(c.ID)
		for _, p := range provinces {
			ids = append(ids, p.ID)
		}
		for _, id := range ids {
			if st, err := ix.Display(id); err == nil {
				out[id] = st
			}
		}
	}
	return out
}

func validatePaint(sess *pipeline.Session) *phase {
	ph := &phase{name: "Paint idempotence"}
	if len(sess.Snapshots) == 0 {
		return ph
	}
	ix := sess.Index
	last := sess.Snapshots[len(sess.Snapshots)-1].Colors

	before := displayStates(ix)
	ix.Paint(map[string]string{})
	if diff := cmp.Diff(before, displayStates(ix)); diff != "" {
		ph.errorf("empty paint changed state (-before +after):\n%s", diff)
	}

	ix.ResetAll()
	ix.Paint(last)
	once := displayStates(ix)
	ix.Paint(last)
	if diff := cmp.Diff(once, displayStates(ix)); diff != "" {
		ph.errorf("second paint changed state (-once +twice):\n%s", diff)
	}

	ix.ResetAll()
	ix.Paint(sess.Snapshots[0].Colors)
	ix.ResetAll()
	ix.Paint(last)
	if diff := cmp.Diff(once, displayStates(ix)); diff != "" {
		ph.errorf("reset then paint differs from fresh paint (-fresh +reset):\n%s", diff)
	}
	return ph
}
