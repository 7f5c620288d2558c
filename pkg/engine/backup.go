package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/driveback/driveback/pkg/archive"
	"github.com/driveback/driveback/pkg/catalog"
	"github.com/driveback/driveback/pkg/lockfile"
	"github.com/driveback/driveback/pkg/pathfilter"
	"github.com/driveback/driveback/pkg/preflight"
	"github.com/driveback/driveback/pkg/progress"
)

// Backup performs one full-snapshot backup run: scan, filter, archive,
// prune. The returned bool is the run outcome, mirrored by the terminal
// Finish event on the reporter.
func (e *Engine) Backup(ctx context.Context) (success bool) {
	defer func() { e.finishPanic(recover(), &success) }()

	cfg := e.src.Current()
	tracker := progress.NewTracker()
	e.rep.Log(fmt.Sprintf("--- Starting BACKUP (%s) ---", e.id.Hostname))

	// Configuration errors abort before any archive I/O.
	if err := preflight.EnsureStorageRoot(cfg.DrivePath); err != nil {
		e.rep.Log("ERROR: " + err.Error())
		e.rep.Finish(false, "Drive not available")
		return false
	}

	// Cross-process guard: two machines syncing through the same mounted
	// folder must not write concurrently.
	lock, err := lockfile.Acquire(ctx, cfg.DrivePath)
	if err != nil {
		var active *lockfile.ErrLockActive
		if errors.As(err, &active) {
			e.rep.Log("ERROR: " + active.Error())
			e.rep.Finish(false, "Storage root is locked")
			return false
		}
		// Lock bookkeeping trouble is not worth failing the backup over.
		log.Warn().Err(err).Msg("proceeding without storage lock")
	} else {
		defer lock.Release()
	}

	archiveName := catalog.BuildArchiveName(e.id.Hostname, time.Now())
	destPath := filepath.Join(cfg.DrivePath, archiveName)

	filter := pathfilter.New(cfg.IgnorePatterns)
	entries := e.collectEntries(cfg, filter)
	if len(entries) == 0 {
		e.rep.Log("No files found to back up.")
		e.rep.Finish(false, "No files found")
		return false
	}

	e.rep.Log("Creating archive: " + archiveName)
	w, err := archive.NewWriter(destPath, cfg.CompressionLevel)
	if err != nil {
		e.rep.Log("ERROR: " + err.Error())
		e.rep.Finish(false, err.Error())
		return false
	}

	bufPtr := e.buffers.Get()
	defer e.buffers.Put(bufPtr)

	total := len(entries)
	for i, entry := range entries {
		// Cancellation is observed at entry boundaries, never mid-file.
		select {
		case <-ctx.Done():
			w.Abort()
			e.rep.Log("Backup Cancelled.")
			e.rep.Finish(false, "Cancelled")
			return false
		default:
		}

		if err := w.WriteFile(entry.AbsPath, entry.ArchivePath, *bufPtr); err != nil {
			// Per-file trouble skips the file, never the run.
			e.rep.Log(fmt.Sprintf("Error skipping file %s: %v", entry.AbsPath, err))
		}

		fraction := float64(i+1) / float64(total)
		e.rep.Progress(fraction, "", tracker.ElapsedText(), tracker.ETAText(fraction))
	}

	if err := w.Close(); err != nil {
		e.rep.Log(fmt.Sprintf("[CRITICAL ERROR] Failed to create ZIP: %v", err))
		e.rep.Finish(false, err.Error())
		return false
	}

	e.rep.Log("[SUCCESS] Backup saved to: " + destPath)
	e.pruneAfterBackup(cfg.DrivePath, cfg.RetentionCount)
	e.rep.Finish(true, "Backup Complete")
	return true
}

// pruneAfterBackup applies the retention policy after a successful run.
// Retention trouble is reported but does not fail the backup that
// already succeeded.
func (e *Engine) pruneAfterBackup(storageRoot string, retentionCount int) {
	e.rep.Log(fmt.Sprintf("Cleaning up (keep last %d)...", retentionCount))
	entries, err := catalog.List(storageRoot)
	if err != nil {
		e.rep.Log("Retention scan failed: " + err.Error())
		return
	}
	catalog.Prune(entries, retentionCount, e.rep)
}
