package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/driveback/driveback/pkg/archive"
	"github.com/driveback/driveback/pkg/catalog"
	"github.com/driveback/driveback/pkg/pathfilter"
	"github.com/driveback/driveback/pkg/preflight"
	"github.com/driveback/driveback/pkg/progress"
)

// Restore extracts the newest archive at the storage root into the
// local root. Latest wins: existing files are overwritten, members that
// fail individually are skipped, and cancellation leaves already
// extracted files in place; restore is not transactional.
//
// The run has two phases with a fixed progress split: an analysis pass
// over all members (0-10%) and the extraction pass (10-100%). The
// analysis pass takes no decisions yet; it exists to surface member
// information and keep the progress contract stable for when conflict
// handling grows real semantics.
func (e *Engine) Restore(ctx context.Context) (success bool) {
	defer func() { e.finishPanic(recover(), &success) }()

	cfg := e.src.Current()
	tracker := progress.NewTracker()
	e.rep.Log("--- Starting RESTORE ---")

	if err := preflight.EnsureStorageRoot(cfg.DrivePath); err != nil {
		e.rep.Log("ERROR: " + err.Error())
		e.rep.Finish(false, "Drive not available")
		return false
	}

	entries, err := catalog.List(cfg.DrivePath)
	if err != nil {
		e.rep.Log("ERROR: " + err.Error())
		e.rep.Finish(false, err.Error())
		return false
	}
	latest, ok := catalog.Latest(entries)
	if !ok {
		e.rep.Log("No backup files found in Drive.")
		e.rep.Finish(false, "No backups found")
		return false
	}
	e.rep.Log("Found latest backup: " + latest.Name)

	e.rep.Log("Analyzing archive...")
	r, err := archive.OpenReader(latest.Path)
	if err != nil {
		e.rep.Log(fmt.Sprintf("Zip Error: %v", err))
		e.rep.Finish(false, err.Error())
		return false
	}
	defer r.Close()

	total := len(r.File)
	if total == 0 {
		e.rep.Log("Archive is empty.")
		e.rep.Finish(true, "Restore Complete")
		return true
	}

	// Analysis pass, mapped to the first 10% of overall progress.
	for i := range r.File {
		select {
		case <-ctx.Done():
			e.rep.Finish(false, "Cancelled")
			return false
		default:
		}
		fraction := float64(i) / float64(total) * 0.1
		e.rep.Progress(fraction, "Analyzing...", tracker.ElapsedText(), progress.UnknownETA)
	}

	filter := pathfilter.New(cfg.IgnorePatterns)
	bufPtr := e.buffers.Get()
	defer e.buffers.Put(bufPtr)

	// Extraction pass, mapped to 10-100%.
	for idx, f := range r.File {
		select {
		case <-ctx.Done():
			e.rep.Finish(false, "Cancelled")
			return false
		default:
		}

		// Mandatory traversal guard: absolute members and ".." escapes
		// are dropped, never written anywhere.
		absTarget, ok := archive.SafeMemberPath(e.id.LocalRoot, f.Name)
		if !ok {
			continue
		}
		if filter.ShouldIgnore(f.Name) {
			continue
		}

		if err := archive.ExtractMember(f, absTarget, *bufPtr); err != nil {
			if errors.Is(err, os.ErrPermission) {
				e.rep.Log(fmt.Sprintf("SKIPPED (Locked): %s", f.Name))
			} else {
				e.rep.Log(fmt.Sprintf("Error extracting %s: %v", f.Name, err))
			}
			continue
		}

		fraction := 0.1 + float64(idx+1)/float64(total)*0.9
		label := fmt.Sprintf("Copying files... (%d/%d)", idx+1, total)
		e.rep.Progress(fraction, label, tracker.ElapsedText(), tracker.ETAText(fraction))
	}

	e.rep.Log("[SUCCESS] Restore completed from " + latest.Name)
	e.rep.Finish(true, "Restore Complete")
	return true
}
