// Package catalog lists, names, orders, and prunes the archives at the
// storage root.
//
// Archive filenames follow <prefix>_<hostname>_<YYYYMMDD>_<HHMMSS>.zip.
// The timestamp is fixed width, so sorting filenames in descending
// lexicographic order is exactly newest-first chronological order; the
// catalog relies on that everywhere and never parses file contents.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/driveback/driveback/pkg/buildinfo"
	"github.com/driveback/driveback/pkg/report"
)

// TimestampLayout is the second-resolution layout embedded in archive names.
const TimestampLayout = "20060102_150405"

// archiveNamePattern matches filenames produced by BuildArchiveName.
var archiveNamePattern = regexp.MustCompile(
	`^` + regexp.QuoteMeta(buildinfo.ArchivePrefix) + `_.+_\d{8}_\d{6}\.zip$`)

// Entry is one archive found at the storage root.
type Entry struct {
	// Name is the bare filename; ordering and timestamp live here.
	Name string
	// Path is the absolute location at the storage root.
	Path string
	// Size is the archive size in bytes (0 when stat failed during listing).
	Size int64
}

// BuildArchiveName produces the filename for a new archive created by
// the given host at the given time.
func BuildArchiveName(hostname string, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%s.zip", buildinfo.ArchivePrefix, hostname, ts.Format(TimestampLayout))
}

// MatchesNamingScheme reports whether a filename belongs to the catalog.
func MatchesNamingScheme(name string) bool {
	return archiveNamePattern.MatchString(name)
}

// List returns all archives at the storage root, newest first. An
// absent storage root yields an empty list, not an error: the caller
// has already decided whether the root must exist.
func List(storageRoot string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(storageRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read storage root %s: %w", storageRoot, err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !MatchesNamingScheme(de.Name()) {
			continue
		}
		entry := Entry{Name: de.Name(), Path: filepath.Join(storageRoot, de.Name())}
		if info, err := de.Info(); err == nil {
			entry.Size = info.Size()
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name > entries[j].Name
	})
	return entries, nil
}

// Latest returns the newest entry of a List result.
func Latest(entries []Entry) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[0], true
}

// Prune deletes every entry beyond the first retentionCount, i.e. the
// oldest by name order. Individual deletion failures are reported and
// skipped; one undeletable archive must not shield the rest. Returns
// the number of archives actually deleted.
func Prune(entries []Entry, retentionCount int, rep report.Reporter) int {
	if retentionCount < 1 || len(entries) <= retentionCount {
		return 0
	}

	deleted := 0
	for _, e := range entries[retentionCount:] {
		if err := os.Remove(e.Path); err != nil {
			rep.Log(fmt.Sprintf("Failed to delete %s: %v", e.Name, err))
			log.Warn().Str("archive", e.Name).Err(err).Msg("retention delete failed")
			continue
		}
		rep.Log(fmt.Sprintf("Deleted old backup: %s", e.Name))
		deleted++
	}
	return deleted
}
