package engine

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/driveback/driveback/pkg/catalog"
	"github.com/driveback/driveback/pkg/config"
	"github.com/driveback/driveback/pkg/pathfilter"
	"github.com/driveback/driveback/pkg/preflight"
	"github.com/driveback/driveback/pkg/util"
)

// collectEntries walks every configured source folder under the local
// root and returns the files selected for backup, in traversal order.
// Ignored directories are pruned so their subtrees are never descended
// into; ignored files are skipped. A missing folder is a warning, not
// an error.
func (e *Engine) collectEntries(cfg config.Config, filter *pathfilter.Filter) []FileEntry {
	var entries []FileEntry

	for _, folder := range util.TrimmedNonEmpty(cfg.TargetFolders) {
		srcPath := filepath.Join(e.id.LocalRoot, folder)
		if _, err := os.Stat(srcPath); err != nil {
			e.rep.Log(fmt.Sprintf("Warning: Folder %s not found.", folder))
			continue
		}
		e.rep.Log("Scanning: " + srcPath)

		folderName := folder
		walkErr := filepath.WalkDir(srcPath, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				e.rep.Log(fmt.Sprintf("Error reading %s: %v", p, err))
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if p != srcPath && filter.ShouldIgnore(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}

			if filter.ShouldIgnore(d.Name()) {
				return nil
			}

			rel, err := filepath.Rel(srcPath, p)
			if err != nil {
				e.rep.Log(fmt.Sprintf("Error resolving %s: %v", p, err))
				return nil
			}
			entries = append(entries, FileEntry{
				AbsPath:     p,
				ArchivePath: path.Join(folderName, util.NormalizePath(rel)),
			})
			return nil
		})
		if walkErr != nil {
			e.rep.Log(fmt.Sprintf("Error scanning %s: %v", srcPath, walkErr))
		}
	}

	return entries
}

// Scan lists the archives currently at the storage root, newest first,
// with their sizes. It is the startup/remote overview, not a run: it
// emits log lines only, no progress or finish events.
func (e *Engine) Scan() bool {
	cfg := e.src.Current()

	if err := preflight.EnsureStorageRoot(cfg.DrivePath); err != nil {
		e.rep.Log("ERROR: " + err.Error())
		return false
	}

	entries, err := catalog.List(cfg.DrivePath)
	if err != nil {
		e.rep.Log("ERROR: " + err.Error())
		return false
	}

	if len(entries) == 0 {
		e.rep.Log("=== No remote backups found ===")
		return true
	}

	e.rep.Log(fmt.Sprintf("=== Found %d remote backups ===", len(entries)))
	for _, entry := range entries {
		sizeMB := float64(entry.Size) / (1024 * 1024)
		e.rep.Log(fmt.Sprintf("%s (%.2f MB)", entry.Name, sizeMB))
	}
	e.rep.Log("==================================")
	return true
}
