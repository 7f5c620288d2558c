// Package scheduler triggers silent backups at configured times of day.
//
// It deliberately polls coarse wall-clock minutes instead of computing
// precise timer deadlines: the schedule can change between ticks (the
// config is re-read every poll) and minute resolution is the contract,
// so a 10s poll is simpler and exactly as accurate as required.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/driveback/driveback/pkg/engine"
)

const (
	// pollInterval is the wall-clock sampling rate. Must stay well below
	// one minute so no scheduled minute is skipped over.
	defaultPollInterval = 10 * time.Second

	// maxConcurrentRuns bounds the number of live background backups if
	// runs overlap or stall. A saturated guard drops the trigger for
	// that minute; delivery is best-effort.
	maxConcurrentRuns = 4
)

// clockMinuteLayout is the "HH:MM" form compared against the schedule.
const clockMinuteLayout = "15:04"

// TriggerFunc starts one silent backup run. Implementations are called
// on their own goroutine and must not panic.
type TriggerFunc func(ctx context.Context)

// Scheduler owns all its state explicitly: the last-fired minute marker
// is written only from the Run goroutine, so it needs no locking by
// construction.
type Scheduler struct {
	src          engine.ConfigSource
	trigger      TriggerFunc
	pollInterval time.Duration
	now          func() time.Time
	workers      *semaphore.Weighted

	// lastFired is the "HH:MM" minute of the most recent trigger; it
	// re-arms as soon as the clock leaves that minute.
	lastFired string
}

// New creates a scheduler that re-reads the configuration from src on
// every poll and starts backups through trigger.
func New(src engine.ConfigSource, trigger TriggerFunc) *Scheduler {
	return &Scheduler{
		src:          src,
		trigger:      trigger,
		pollInterval: defaultPollInterval,
		now:          time.Now,
		workers:      semaphore.NewWeighted(maxConcurrentRuns),
	}
}

// Run polls until the context is cancelled. It never returns an error;
// a scheduler has nothing fatal to report, only triggers to fire or skip.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Dur("poll", s.pollInterval).Msg("scheduler started")
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick samples the clock once and fires at most one trigger.
func (s *Scheduler) tick(ctx context.Context) {
	current := s.now().Format(clockMinuteLayout)

	// Leaving the fired minute re-arms the scheduler, so the same
	// time-of-day fires again on a later day.
	if s.lastFired != "" && s.lastFired != current {
		s.lastFired = ""
	}
	if s.lastFired == current {
		return
	}
	if !s.scheduledNow(current) {
		return
	}

	// The minute is marked as fired even when the worker guard is
	// saturated: one attempt per matching minute, never a burst of
	// retries within it.
	s.lastFired = current

	if !s.workers.TryAcquire(1) {
		log.Warn().Str("time", current).Msg("scheduled backup skipped, too many live runs")
		return
	}

	log.Info().Str("time", current).Msg("auto-backup triggered")
	go func() {
		defer s.workers.Release(1)
		s.trigger(ctx)
	}()
}

func (s *Scheduler) scheduledNow(current string) bool {
	for _, t := range s.src.Current().ScheduledTimes {
		if t == current {
			return true
		}
	}
	return false
}
