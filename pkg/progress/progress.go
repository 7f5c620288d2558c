// Package progress computes elapsed/ETA figures for long-running
// archive operations.
package progress

import (
	"fmt"
	"time"
)

// UnknownETA is the sentinel shown while no estimate can be computed.
const UnknownETA = "--:--"

// Tracker measures a single run. The estimate is the classic linear
// extrapolation elapsed/fraction - elapsed; it is only as good as the
// assumption that entries take uniform time, which is fine for the
// smallish config/cache files this tool moves.
type Tracker struct {
	start time.Time
	now   func() time.Time
}

// NewTracker starts the clock.
func NewTracker() *Tracker {
	return newTrackerAt(time.Now)
}

func newTrackerAt(now func() time.Time) *Tracker {
	return &Tracker{start: now(), now: now}
}

// Elapsed returns the time since the tracker was created.
func (t *Tracker) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}

// ElapsedText returns the elapsed time formatted as H:MM:SS.
func (t *Tracker) ElapsedText() string {
	return FormatDuration(t.Elapsed())
}

// ETAText returns the estimated remaining time for the given overall
// completion fraction, formatted as H:MM:SS, clamped to non-negative.
// When the fraction is not yet positive the estimate is unknown.
func (t *Tracker) ETAText(fraction float64) string {
	if fraction <= 0 {
		return UnknownETA
	}
	elapsed := t.Elapsed()
	remaining := time.Duration(float64(elapsed)/fraction) - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return FormatDuration(remaining)
}

// FormatDuration renders a duration as H:MM:SS with whole-second
// resolution, e.g. "0:00:07" or "1:12:03".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}
