package engine

import "golang.org/x/sync/semaphore"

// Guard is the single-permit lock around engine runs. The component
// that coordinates engine instantiation owns one Guard per process, so
// a scheduler-triggered backup and a user-triggered one can never run
// concurrently in-process. A busy guard is reported to the caller, not
// queued.
type Guard struct {
	sem *semaphore.Weighted
}

// NewGuard creates an unheld guard.
func NewGuard() *Guard {
	return &Guard{sem: semaphore.NewWeighted(1)}
}

// TryAcquire takes the permit without blocking. The caller must Release
// after the run when it returns true.
func (g *Guard) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}

// Release returns the permit.
func (g *Guard) Release() {
	g.sem.Release(1)
}
