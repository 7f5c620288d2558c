package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/driveback/driveback/pkg/config"
	"github.com/driveback/driveback/pkg/engine"
)

// countingTrigger records how often it fires without doing any work.
type countingTrigger struct {
	mu    sync.Mutex
	count int
	done  chan struct{}
}

func (t *countingTrigger) run(context.Context) {
	t.mu.Lock()
	t.count++
	t.mu.Unlock()
	if t.done != nil {
		t.done <- struct{}{}
	}
}

func (t *countingTrigger) fired() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func sourceWithTimes(times ...string) engine.ConfigSource {
	cfg := config.NewDefault()
	cfg.ScheduledTimes = times
	return engine.StaticSource(cfg)
}

func newTestScheduler(src engine.ConfigSource, trig *countingTrigger) *Scheduler {
	s := New(src, trig.run)
	// Synchronous trigger observation in tests.
	trig.done = make(chan struct{}, 16)
	return s
}

func waitFired(t *testing.T, trig *countingTrigger, want int) {
	t.Helper()
	for i := 0; i < want; i++ {
		select {
		case <-trig.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("trigger %d of %d never fired", i+1, want)
		}
	}
}

func TestTickFiresOncePerScheduledMinute(t *testing.T) {
	trig := &countingTrigger{}
	s := newTestScheduler(sourceWithTimes("08:30"), trig)

	at := time.Date(2026, 8, 25, 8, 30, 5, 0, time.UTC)
	s.now = func() time.Time { return at }

	ctx := context.Background()
	s.tick(ctx)
	waitFired(t, trig, 1)

	// Further polls within the same minute stay quiet.
	at = at.Add(10 * time.Second)
	s.tick(ctx)
	at = at.Add(10 * time.Second)
	s.tick(ctx)

	assert.Equal(t, 1, trig.fired())
}

func TestTickRearmsAfterMinutePasses(t *testing.T) {
	trig := &countingTrigger{}
	s := newTestScheduler(sourceWithTimes("08:30"), trig)

	at := time.Date(2026, 8, 25, 8, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return at }
	ctx := context.Background()

	s.tick(ctx)
	waitFired(t, trig, 1)

	// Minute moves on, then the same time-of-day comes around again.
	at = at.Add(time.Minute)
	s.tick(ctx)
	at = at.Add(24*time.Hour - time.Minute)
	s.tick(ctx)
	waitFired(t, trig, 1)

	assert.Equal(t, 2, trig.fired())
}

func TestTickIgnoresUnscheduledMinutes(t *testing.T) {
	trig := &countingTrigger{}
	s := newTestScheduler(sourceWithTimes("08:30", "21:00"), trig)

	at := time.Date(2026, 8, 25, 12, 15, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	s.tick(context.Background())
	assert.Equal(t, 0, trig.fired())
}

func TestTickWithEmptyScheduleNeverFires(t *testing.T) {
	trig := &countingTrigger{}
	s := newTestScheduler(sourceWithTimes(), trig)

	at := time.Date(2026, 8, 25, 8, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	s.tick(context.Background())
	assert.Equal(t, 0, trig.fired())
}

func TestTickSkipsWhenWorkersSaturated(t *testing.T) {
	trig := &countingTrigger{}
	s := newTestScheduler(sourceWithTimes("08:30"), trig)
	s.workers = semaphore.NewWeighted(1)
	require.True(t, s.workers.TryAcquire(1))
	defer s.workers.Release(1)

	at := time.Date(2026, 8, 25, 8, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return at }
	ctx := context.Background()

	s.tick(ctx)
	assert.Equal(t, 0, trig.fired())

	// The minute still counts as fired: no retry burst inside it.
	at = at.Add(10 * time.Second)
	s.tick(ctx)
	assert.Equal(t, 0, trig.fired())
}

func TestScheduleChangeIsPickedUpBetweenTicks(t *testing.T) {
	trig := &countingTrigger{}
	cfg := config.NewDefault()
	src := &mutableSource{cfg: cfg}
	s := newTestScheduler(src, trig)

	at := time.Date(2026, 8, 25, 8, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return at }
	ctx := context.Background()

	s.tick(ctx)
	assert.Equal(t, 0, trig.fired())

	src.set([]string{"08:31"})
	at = at.Add(time.Minute)
	s.tick(ctx)
	waitFired(t, trig, 1)
	assert.Equal(t, 1, trig.fired())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	trig := &countingTrigger{}
	s := New(sourceWithTimes(), trig.run)
	s.pollInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// mutableSource lets a test swap the schedule mid-flight, the way the
// watch daemon does when it reloads the config file.
type mutableSource struct {
	mu  sync.Mutex
	cfg config.Config
}

func (m *mutableSource) Current() config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

func (m *mutableSource) set(times []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.ScheduledTimes = times
}
