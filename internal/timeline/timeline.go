// Package timeline drives the current day of the map through a list of day
// snapshots, either on a timer or by direct control.
package timeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/svg-world-map/internal/domain"
)

// Speed bounds. Speed N advances one day every N ticks.
const (
	MinSpeed     = 1
	MaxSpeed     = 20
	DefaultSpeed = 10
)

// Painter receives the colors of the current day.
type Painter interface {
	Paint(colors map[string]string)
}

// Position is the observable playback state.
type Position struct {
	Index   int    `json:"index"`
	Date    string `json:"date"`
	Playing bool   `json:"playing"`
	Speed   int    `json:"speed"`
	Loop    bool   `json:"loop"`
	Days    int    `json:"days"`
}

// Listener is notified after every index or state change. Listeners run
// synchronously and must not call the controller's mutating operations.
type Listener func(Position)

// Options configures a Controller.
type Options struct {
	Interval    time.Duration
	Speed       int
	Loop        bool
	Autoplay    bool
	StartOffset int // start this many days before the last day
	Clock       clockwork.Clock
}

// DefaultOptions returns the playback defaults.
func DefaultOptions() Options {
	return Options{
		Interval:    100 * time.Millisecond,
		Speed:       DefaultSpeed,
		StartOffset: 14,
	}
}

// Controller is a two-state machine, paused or playing, over a day index.
// Every index change repaints through the Painter and notifies listeners.
type Controller struct {
	mu     sync.Mutex
	emitMu sync.Mutex

	snapshots []domain.DaySnapshot
	painter   Painter
	opts      Options
	clock     clockwork.Clock
	logger    *slog.Logger

	index     int
	playing   bool
	speed     int
	ticks     int
	listeners []Listener
}

// New creates a controller positioned StartOffset days before the end. It
// does not paint until Sync or the first change.
func New(snapshots []domain.DaySnapshot, painter Painter, opts Options, logger *slog.Logger) *Controller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	c := &Controller{
		snapshots: snapshots,
		painter:   painter,
		opts:      opts,
		clock:     opts.Clock,
		logger:    logger,
		speed:     clampSpeed(opts.Speed),
	}
	if last := c.last(); last >= 0 {
		c.index = max(0, last-max(0, opts.StartOffset))
		c.playing = opts.Autoplay
	}
	return c
}

func clampSpeed(s int) int {
	if s == 0 {
		return DefaultSpeed
	}
	return min(MaxSpeed, max(MinSpeed, s))
}

func (c *Controller) last() int { return len(c.snapshots) - 1 }

// Subscribe registers a listener.
func (c *Controller) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Position returns the current playback state.
func (c *Controller) Position() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position()
}

func (c *Controller) position() Position {
	p := Position{Index: c.index, Playing: c.playing, Speed: c.speed, Loop: c.opts.Loop, Days: len(c.snapshots)}
	if c.index >= 0 && c.index < len(c.snapshots) {
		p.Date = c.snapshots[c.index].Date
	}
	return p
}

// Snapshot returns the snapshot of a day, or false when out of range.
func (c *Controller) Snapshot(day int) (domain.DaySnapshot, bool) {
	if day < 0 || day >= len(c.snapshots) {
		return domain.DaySnapshot{}, false
	}
	return c.snapshots[day], true
}

// Days returns the number of days on the timeline.
func (c *Controller) Days() int { return len(c.snapshots) }

// update runs mutate under the lock and, when it reports a change, paints and
// notifies in mutation order. repaint is false for state-only changes.
func (c *Controller) update(mutate func() (changed, repaint bool)) {
	c.mu.Lock()
	if len(c.snapshots) == 0 {
		c.mu.Unlock()
		return
	}
	changed, repaint := mutate()
	if !changed {
		c.mu.Unlock()
		return
	}
	pos := c.position()
	colors := c.snapshots[c.index].Colors
	listeners := append([]Listener(nil), c.listeners...)
	c.emitMu.Lock()
	c.mu.Unlock()
	defer c.emitMu.Unlock()

	if repaint && c.painter != nil {
		c.painter.Paint(colors)
	}
	for _, l := range listeners {
		l(pos)
	}
}

// Sync repaints the current day and notifies listeners without changing state.
func (c *Controller) Sync() {
	c.update(func() (bool, bool) { return true, true })
}

// Play starts playback. It is a no-op while playing.
func (c *Controller) Play() {
	c.update(func() (bool, bool) {
		if c.playing {
			return false, false
		}
		c.playing = true
		c.ticks = 0
		return true, false
	})
}

// Pause stops playback. Repeated calls are no-ops.
func (c *Controller) Pause() {
	c.update(func() (bool, bool) {
		if !c.playing {
			return false, false
		}
		c.playing = false
		return true, false
	})
}

// Toggle switches between playing and paused.
func (c *Controller) Toggle() {
	c.update(func() (bool, bool) {
		c.playing = !c.playing
		c.ticks = 0
		return true, false
	})
}

// Tick advances one day on every speed-th call while playing. At the last day
// it wraps to the first when looping, otherwise it pauses.
func (c *Controller) Tick() {
	c.update(func() (bool, bool) {
		if !c.playing {
			return false, false
		}
		c.ticks++
		if c.speed != 1 && c.ticks%c.speed != 1 {
			return false, false
		}
		switch {
		case c.index < c.last():
			c.index++
		case c.opts.Loop:
			c.index = 0
		default:
			c.playing = false
			return true, false
		}
		return true, true
	})
}

// Seek jumps to day, clamped to the timeline, and pauses.
func (c *Controller) Seek(day int) {
	c.update(func() (bool, bool) {
		c.index = min(c.last(), max(0, day))
		c.playing = false
		return true, true
	})
}

// StepForward moves one day ahead and pauses.
func (c *Controller) StepForward() { c.step(func(i int) int { return i + 1 }) }

// StepBack moves one day back and pauses.
func (c *Controller) StepBack() { c.step(func(i int) int { return i - 1 }) }

// StepToStart jumps to the first day and pauses.
func (c *Controller) StepToStart() { c.step(func(int) int { return 0 }) }

// StepToEnd jumps to the last day and pauses.
func (c *Controller) StepToEnd() { c.step(func(int) int { return c.last() }) }

func (c *Controller) step(next func(int) int) {
	c.update(func() (bool, bool) {
		c.index = min(c.last(), max(0, next(c.index)))
		c.playing = false
		return true, true
	})
}

// Faster lowers the ticks per day, down to MinSpeed.
func (c *Controller) Faster() { c.SetSpeed(c.Position().Speed - 1) }

// Slower raises the ticks per day, up to MaxSpeed.
func (c *Controller) Slower() { c.SetSpeed(c.Position().Speed + 1) }

// SetSpeed sets the ticks per day within [MinSpeed, MaxSpeed].
func (c *Controller) SetSpeed(s int) {
	c.update(func() (bool, bool) {
		s = min(MaxSpeed, max(MinSpeed, s))
		if s == c.speed {
			return false, false
		}
		c.speed = s
		return true, false
	})
}

// Run ticks on the configured interval until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.opts.Interval)
	defer ticker.Stop()
	c.logger.Info("timeline started", "days", len(c.snapshots), "interval", c.opts.Interval)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("timeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			c.Tick()
		}
	}
}
