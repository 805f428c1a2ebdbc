package timeline_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/svg-world-map/internal/domain"
	"github.com/couchcryptid/svg-world-map/internal/timeline"
)

type recordingPainter struct {
	mu      sync.Mutex
	painted []string
}

func (p *recordingPainter) Paint(colors map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.painted = append(p.painted, colors["day"])
}

func (p *recordingPainter) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.painted...)
}

func snapshots(n int) []domain.DaySnapshot {
	out := make([]domain.DaySnapshot, n)
	for i := range out {
		out[i] = domain.DaySnapshot{
			Index:  i,
			Date:   fmt.Sprintf("2020-02-%02d", i+1),
			Colors: map[string]string{"day": fmt.Sprint(i)},
		}
	}
	return out
}

func newController(t *testing.T, days int, mutate func(*timeline.Options)) (*timeline.Controller, *recordingPainter) {
	t.Helper()
	opts := timeline.DefaultOptions()
	opts.StartOffset = days
	if mutate != nil {
		mutate(&opts)
	}
	p := &recordingPainter{}
	return timeline.New(snapshots(days), p, opts, slog.New(slog.NewTextHandler(io.Discard, nil))), p
}

func TestNew_StartPosition(t *testing.T) {
	c, _ := newController(t, 30, func(o *timeline.Options) { o.StartOffset = 14 })
	pos := c.Position()
	assert.Equal(t, 15, pos.Index)
	assert.Equal(t, "2020-02-16", pos.Date)
	assert.False(t, pos.Playing)
	assert.Equal(t, timeline.DefaultSpeed, pos.Speed)
	assert.Equal(t, 30, pos.Days)

	auto, _ := newController(t, 3, func(o *timeline.Options) { o.Autoplay = true })
	assert.True(t, auto.Position().Playing)
	assert.Equal(t, 0, auto.Position().Index)
}

func TestStepToEndThenTickNeverOverflows(t *testing.T) {
	c, p := newController(t, 11, nil)
	require.Equal(t, 0, c.Position().Index)

	c.StepToEnd()
	for i := 0; i < 50; i++ {
		c.Tick()
	}

	pos := c.Position()
	assert.Equal(t, 10, pos.Index)
	assert.False(t, pos.Playing)
	assert.Equal(t, []string{"10"}, p.calls())
}

func TestTick_SpeedDivisor(t *testing.T) {
	c, _ := newController(t, 10, func(o *timeline.Options) { o.Speed = 3 })
	c.Play()

	var seen []int
	for i := 0; i < 7; i++ {
		c.Tick()
		seen = append(seen, c.Position().Index)
	}
	// advances on ticks 1, 4 and 7
	assert.Equal(t, []int{1, 1, 1, 2, 2, 2, 3}, seen)
}

func TestTick_EndPausesOrLoops(t *testing.T) {
	t.Run("pause at end", func(t *testing.T) {
		c, _ := newController(t, 3, func(o *timeline.Options) { o.Speed = 1 })
		c.Play()
		c.Tick()
		c.Tick()
		assert.Equal(t, 2, c.Position().Index)
		assert.True(t, c.Position().Playing)
		c.Tick()
		assert.Equal(t, 2, c.Position().Index)
		assert.False(t, c.Position().Playing)
	})

	t.Run("loop wraps", func(t *testing.T) {
		c, p := newController(t, 3, func(o *timeline.Options) { o.Speed = 1; o.Loop = true })
		c.Play()
		for i := 0; i < 4; i++ {
			c.Tick()
		}
		assert.Equal(t, 1, c.Position().Index)
		assert.True(t, c.Position().Playing)
		assert.Equal(t, []string{"1", "2", "0", "1"}, p.calls())
	})
}

func TestTick_NoOpWhilePaused(t *testing.T) {
	c, p := newController(t, 5, nil)
	c.Tick()
	assert.Equal(t, 0, c.Position().Index)
	assert.Empty(t, p.calls())
}

func TestSeekAndStepsPause(t *testing.T) {
	c, p := newController(t, 5, nil)

	c.Play()
	c.Seek(3)
	assert.Equal(t, 3, c.Position().Index)
	assert.False(t, c.Position().Playing)

	c.Seek(99)
	assert.Equal(t, 4, c.Position().Index)
	c.Seek(-4)
	assert.Equal(t, 0, c.Position().Index)

	c.Play()
	c.StepForward()
	assert.Equal(t, 1, c.Position().Index)
	assert.False(t, c.Position().Playing)

	c.StepBack()
	c.StepBack()
	assert.Equal(t, 0, c.Position().Index)

	c.StepToEnd()
	c.StepForward()
	assert.Equal(t, 4, c.Position().Index)
	c.StepToStart()
	assert.Equal(t, 0, c.Position().Index)

	assert.Equal(t, []string{"3", "4", "0", "1", "0", "0", "4", "4", "0"}, p.calls())
}

func TestPauseIsIdempotent(t *testing.T) {
	c, _ := newController(t, 5, nil)
	var events []timeline.Position
	c.Subscribe(func(p timeline.Position) { events = append(events, p) })

	c.Pause()
	c.Pause()
	assert.Empty(t, events)

	c.Play()
	c.Play()
	c.Pause()
	c.Pause()
	require.Len(t, events, 2)
	assert.True(t, events[0].Playing)
	assert.False(t, events[1].Playing)

	c.Toggle()
	assert.True(t, c.Position().Playing)
	c.Toggle()
	assert.False(t, c.Position().Playing)
}

func TestSpeedBounds(t *testing.T) {
	c, _ := newController(t, 5, func(o *timeline.Options) { o.Speed = 2 })

	c.Faster()
	c.Faster()
	assert.Equal(t, timeline.MinSpeed, c.Position().Speed)

	c.SetSpeed(19)
	c.Slower()
	c.Slower()
	assert.Equal(t, timeline.MaxSpeed, c.Position().Speed)

	over, _ := newController(t, 5, func(o *timeline.Options) { o.Speed = 50 })
	assert.Equal(t, timeline.MaxSpeed, over.Position().Speed)
}

func TestListenersReceiveEveryChange(t *testing.T) {
	c, _ := newController(t, 5, nil)
	var got []timeline.Position
	c.Subscribe(func(p timeline.Position) {
		got = append(got, p)
		_ = c.Position()
	})

	c.Sync()
	c.StepForward()

	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, "2020-02-02", got[1].Date)
}

func TestEmptyTimelineIsInert(t *testing.T) {
	p := &recordingPainter{}
	c := timeline.New(nil, p, timeline.DefaultOptions(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	c.Play()
	c.Tick()
	c.Seek(3)
	c.StepToEnd()
	c.Faster()
	c.Sync()

	assert.Equal(t, timeline.Position{Speed: timeline.DefaultSpeed}, c.Position())
	assert.Empty(t, p.calls())
	_, ok := c.Snapshot(0)
	assert.False(t, ok)
}

func TestRun_TicksOnClock(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c, p := newController(t, 5, func(o *timeline.Options) {
		o.Speed = 1
		o.Clock = fake
		o.Interval = time.Second
	})
	c.Play()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.NoError(t, fake.BlockUntilContext(ctx, 1))
	for i := 0; i < 2; i++ {
		fake.Advance(time.Second)
		require.Eventually(t, func() bool { return c.Position().Index == i+1 }, time.Second, time.Millisecond)
	}

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"1", "2"}, p.calls())
}
