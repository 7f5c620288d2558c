// Package engine implements the archive sync runs: full-snapshot
// backups into timestamped zip archives at the storage root, and
// latest-wins restores back under the local root.
//
// Engines are constructed per run with a Reporter; a silent
// (scheduler-triggered) run is simply one constructed with report.Nop.
// All blocking work accepts a context and observes cancellation at
// per-entry checkpoints. No panic escapes a run: anything unexpected is
// converted into a Finish(false, …) event at the boundary.
package engine

import (
	"fmt"

	"github.com/driveback/driveback/pkg/config"
	"github.com/driveback/driveback/pkg/pool"
	"github.com/driveback/driveback/pkg/report"
)

// copyBufferSize is the I/O buffer used for archive reads and writes.
const copyBufferSize = 256 * 1024

// ConfigSource yields the current configuration. The engines re-read it
// on each run rather than holding a snapshot, so a settings change is
// picked up by the next run without restarting anything.
type ConfigSource interface {
	Current() config.Config
}

// StaticSource is a ConfigSource over a fixed configuration value.
type StaticSource config.Config

func (s StaticSource) Current() config.Config { return config.Config(s) }

// Engine runs backups and restores against one storage root.
type Engine struct {
	src     ConfigSource
	id      config.Identity
	rep     report.Reporter
	buffers *pool.FixedBufferPool
}

// New creates an engine. rep must not be nil; pass report.Nop{} for a
// silent run.
func New(src ConfigSource, id config.Identity, rep report.Reporter) *Engine {
	return &Engine{
		src:     src,
		id:      id,
		rep:     rep,
		buffers: pool.NewFixedBuffer(copyBufferSize),
	}
}

// FileEntry is one file selected for backup: where it lives locally and
// the forward-slash path it gets inside the archive
// (<folder-name>/<relative-path>).
type FileEntry struct {
	AbsPath     string
	ArchivePath string
}

// finishPanic converts a recovered panic into the terminal failure
// event. Used via defer in every run entry point.
func (e *Engine) finishPanic(r any, success *bool) {
	if r == nil {
		return
	}
	e.rep.Log(fmt.Sprintf("[CRITICAL ERROR] %v", r))
	e.rep.Finish(false, fmt.Sprintf("%v", r))
	*success = false
}
