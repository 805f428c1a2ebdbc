package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/svg-world-map/internal/domain"
	"github.com/couchcryptid/svg-world-map/internal/observability"
	"github.com/couchcryptid/svg-world-map/internal/regionindex"
	"github.com/couchcryptid/svg-world-map/internal/timeline"
)

// Document is a parsed graphic document the index mutates in place.
type Document interface {
	Root() regionindex.Node
	Render(w io.Writer) error
}

// DocumentLoader returns a freshly parsed document for each build.
type DocumentLoader func(ctx context.Context) (Document, error)

// PayloadSource returns the raw time-series payload and where it came from.
type PayloadSource interface {
	FetchPayload(ctx context.Context) (domain.Payload, string, error)
}

// SnapshotPublisher receives the day snapshots of every successful build.
type SnapshotPublisher interface {
	PublishSnapshots(ctx context.Context, buildID string, builtAt time.Time, snapshots []domain.DaySnapshot) error
}

// SeriesStore receives the normalized table of every successful build.
type SeriesStore interface {
	StoreSeries(ctx context.Context, buildID string, t *domain.SeriesTable) error
}

// Options configures how a build turns assets into a session.
type Options struct {
	Metadata        domain.Metadata
	Style           regionindex.Style
	Handlers        regionindex.Handlers
	Normalizer      domain.NormalizerOptions
	DisplayMode     domain.DisplayMode
	Timeline        timeline.Options
	RefreshInterval time.Duration // 0 builds once

	Publisher SnapshotPublisher // optional
	Store     SeriesStore       // optional

	Clock clockwork.Clock
}

// Session is the immutable result of one build plus its live controller.
type Session struct {
	BuildID   string
	BuiltAt   time.Time
	Source    string
	Document  Document
	Metadata  domain.Metadata
	Index     *regionindex.Index
	Table     *domain.SeriesTable
	Snapshots []domain.DaySnapshot
	Timeline  *timeline.Controller
}

// Render serializes the painted document under the index lock.
func (s *Session) Render(w io.Writer) error {
	return s.Index.Do(func(regionindex.Node) error { return s.Document.Render(w) })
}

// Pipeline builds sessions: load the document and payload, index the map,
// normalize the series, build snapshots, and attach a timeline.
type Pipeline struct {
	docs     DocumentLoader
	payloads PayloadSource
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock

	buildMu sync.Mutex
	session atomic.Pointer[Session]
	ready   atomic.Bool
}

// New creates a Pipeline with the given sources and observability.
func New(docs DocumentLoader, payloads PayloadSource, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.Timeline.Clock == nil {
		opts.Timeline.Clock = clock
	}
	if opts.Normalizer.Clock == nil {
		opts.Normalizer.Clock = clock
	}
	return &Pipeline{
		docs:     docs,
		payloads: payloads,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		clock:    clock,
	}
}

// CheckReadiness returns nil once a session has been built, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no map session has been built yet")
	}
	return nil
}

// Session returns the current session, or nil before the first build.
func (p *Pipeline) Session() *Session {
	return p.session.Load()
}

// Build runs the pipeline once and returns the new session without
// activating it.
func (p *Pipeline) Build(ctx context.Context) (*Session, error) {
	start := p.clock.Now()

	var (
		doc     Document
		payload domain.Payload
		source  string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := p.docs(gctx)
		if err != nil {
			return fmt.Errorf("load document: %w", err)
		}
		doc = d
		return nil
	})
	g.Go(func() error {
		pl, src, err := p.payloads.FetchPayload(gctx)
		if err != nil {
			return fmt.Errorf("fetch payload: %w", err)
		}
		payload, source = pl, src
		return nil
	})
	if err := g.Wait(); err != nil {
		p.metrics.BuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	ix, err := regionindex.Build(doc.Root(), regionindex.Options{
		Metadata: p.opts.Metadata,
		Style:    p.opts.Style,
		Handlers: p.opts.Handlers,
	}, p.logger)
	if err != nil {
		p.metrics.BuildsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build region index: %w", err)
	}

	table := domain.NewNormalizer(ix, p.opts.Normalizer, p.logger).Normalize(payload)
	snapshots := domain.NewSnapshotBuilder(p.opts.DisplayMode, p.opts.Metadata, p.logger).Build(table)

	s := &Session{
		BuildID:   uuid.NewString(),
		BuiltAt:   p.clock.Now(),
		Source:    source,
		Document:  doc,
		Metadata:  p.opts.Metadata,
		Index:     ix,
		Table:     table,
		Snapshots: snapshots,
	}
	s.Timeline = timeline.New(snapshots, p.trackingPainter(ix), p.opts.Timeline, p.logger)
	s.Timeline.Subscribe(p.observePosition)
	s.Timeline.Sync()

	p.metrics.BuildsTotal.WithLabelValues("success").Inc()
	p.metrics.BuildDuration.Observe(p.clock.Since(start).Seconds())
	p.metrics.RegionsIndexed.Set(float64(ix.Len()))
	p.metrics.SeriesRegions.Set(float64(len(table.IDs())))
	p.metrics.SnapshotDays.Set(float64(len(snapshots)))

	p.logger.Info("map session built",
		"build_id", s.BuildID,
		"source", source,
		"regions", ix.Len(),
		"series", len(table.IDs()),
		"days", len(snapshots),
		"skipped_records", table.Report.SkippedRecords,
		"malformed_dates", table.Report.MalformedDates,
	)
	return s, nil
}

// Refresh builds a session, runs the optional loaders, and activates it.
// On failure the previous session stays active.
func (p *Pipeline) Refresh(ctx context.Context) (*Session, error) {
	p.buildMu.Lock()
	defer p.buildMu.Unlock()

	s, err := p.Build(ctx)
	if err != nil {
		return nil, err
	}
	p.load(ctx, s)
	p.session.Store(s)
	p.ready.Store(true)
	return s, nil
}

// Run builds the first session, retrying with backoff, then drives the active
// timeline and rebuilds on the refresh interval until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "refresh_interval", p.opts.RefreshInterval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	var stopTimeline context.CancelFunc = func() {}
	defer func() { stopTimeline() }()

	activate := func(s *Session) {
		stopTimeline()
		tctx, cancel := context.WithCancel(ctx)
		stopTimeline = cancel
		go func() {
			if err := s.Timeline.Run(tctx); err != nil {
				p.logger.Error("timeline error", "error", err, "build_id", s.BuildID)
			}
		}()
	}

	backoff := 200 * time.Millisecond
	maxBackoff := 30 * time.Second
	for {
		s, err := p.Refresh(ctx)
		if err == nil {
			activate(s)
			break
		}
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
		p.logger.Error("initial build failed", "error", err, "retry_in", backoff)
		if !p.sleepWithContext(ctx, backoff) {
			return nil
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}

	if p.opts.RefreshInterval <= 0 {
		<-ctx.Done()
		p.logger.Info("pipeline stopping", "reason", ctx.Err())
		return nil
	}

	ticker := p.clock.NewTicker(p.opts.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			s, err := p.Refresh(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				p.logger.Warn("refresh failed, keeping current session", "error", err)
				continue
			}
			activate(s)
		}
	}
}

// load hands the session to the optional loaders. Loader failures never
// block activation.
func (p *Pipeline) load(ctx context.Context, s *Session) {
	if p.opts.Publisher != nil {
		if err := p.opts.Publisher.PublishSnapshots(ctx, s.BuildID, s.BuiltAt, s.Snapshots); err != nil {
			p.logger.Warn("snapshot publish failed", "error", err, "build_id", s.BuildID)
			p.metrics.LoaderErrors.WithLabelValues("kafka").Inc()
		}
	}
	if p.opts.Store != nil {
		if err := p.opts.Store.StoreSeries(ctx, s.BuildID, s.Table); err != nil {
			p.logger.Warn("series store failed", "error", err, "build_id", s.BuildID)
			p.metrics.LoaderErrors.WithLabelValues("postgres").Inc()
		}
	}
}

func (p *Pipeline) observePosition(pos timeline.Position) {
	p.metrics.TimelineDay.Set(float64(pos.Index))
	if pos.Playing {
		p.metrics.TimelinePlaying.Set(1)
	} else {
		p.metrics.TimelinePlaying.Set(0)
	}
}

// trackingPainter paints through the index and reports new unresolved lookups.
func (p *Pipeline) trackingPainter(ix *regionindex.Index) timeline.Painter {
	return painterFunc(func(colors map[string]string) {
		before := ix.Unresolved()
		ix.Paint(colors)
		if n := ix.Unresolved() - before; n > 0 {
			p.metrics.UnresolvedLookups.Add(float64(n))
		}
	})
}

type painterFunc func(colors map[string]string)

func (f painterFunc) Paint(colors map[string]string) { f(colors) }

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (p *Pipeline) sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
