package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveback/driveback/pkg/archive"
	"github.com/driveback/driveback/pkg/catalog"
	"github.com/driveback/driveback/pkg/report"
)

func archiveMemberNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := archive.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func TestBackupCreatesArchiveWithSelectedFiles(t *testing.T) {
	s := newTestSetup(t, "Documents", "Settings")
	s.writeLocal(t, "Documents/notes.txt", "alpha")
	s.writeLocal(t, "Documents/deep/nested.txt", "beta")
	s.writeLocal(t, "Settings/app.json", "{}")
	s.writeLocal(t, "Documents/.git/HEAD", "ref")
	s.writeLocal(t, "Documents/scratch.tmp", "junk")

	rec := &recorder{}
	ok := s.engine(rec).Backup(context.Background())

	require.True(t, ok)
	fin := rec.finish(t)
	assert.True(t, fin.Success)
	assert.Equal(t, "Backup Complete", fin.Message)

	archives := s.storageArchives(t)
	require.Len(t, archives, 1)
	assert.True(t, catalog.MatchesNamingScheme(archives[0]))
	assert.True(t, strings.HasPrefix(archives[0], "driveback_testhost_"))

	names := archiveMemberNames(t, filepath.Join(s.storageRoot, archives[0]))
	assert.ElementsMatch(t, []string{
		"Documents/notes.txt",
		"Documents/deep/nested.txt",
		"Settings/app.json",
	}, names, "ignored members must not enter the archive")
}

func TestBackupEmitsMonotonicProgress(t *testing.T) {
	s := newTestSetup(t, "Documents")
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		s.writeLocal(t, "Documents/"+name, name)
	}

	rec := &recorder{}
	require.True(t, s.engine(rec).Backup(context.Background()))

	last := -1.0
	for _, ev := range rec.events {
		if ev.Kind != report.EventProgress {
			continue
		}
		assert.Greater(t, ev.Fraction, last)
		last = ev.Fraction
	}
	assert.InDelta(t, 1.0, last, 1e-9, "final progress must reach completion")
}

func TestBackupWithNoFilesFails(t *testing.T) {
	s := newTestSetup(t, "Documents")
	require.NoError(t, os.MkdirAll(filepath.Join(s.localRoot, "Documents"), 0o755))

	rec := &recorder{}
	ok := s.engine(rec).Backup(context.Background())

	require.False(t, ok)
	fin := rec.finish(t)
	assert.False(t, fin.Success)
	assert.Equal(t, "No files found", fin.Message)
	assert.Empty(t, s.storageArchives(t), "failed run must not leave an archive")
}

func TestBackupMissingFolderIsWarningOnly(t *testing.T) {
	s := newTestSetup(t, "Documents", "DoesNotExist")
	s.writeLocal(t, "Documents/notes.txt", "alpha")

	rec := &recorder{}
	ok := s.engine(rec).Backup(context.Background())

	require.True(t, ok)
	assert.Contains(t, rec.logLines(), "Warning: Folder DoesNotExist not found.")
}

func TestBackupUnsetStorageRootFails(t *testing.T) {
	s := newTestSetup(t, "Documents")
	s.writeLocal(t, "Documents/notes.txt", "alpha")
	s.cfg.DrivePath = ""

	rec := &recorder{}
	ok := s.engine(rec).Backup(context.Background())

	require.False(t, ok)
	fin := rec.finish(t)
	assert.False(t, fin.Success)
	assert.Equal(t, "Drive not available", fin.Message)
}

func TestBackupCancellationLeavesNoArchive(t *testing.T) {
	s := newTestSetup(t, "Documents")
	for i := 0; i < 20; i++ {
		s.writeLocal(t, "Documents/file"+string(rune('a'+i))+".txt", "content")
	}

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	rec.onEvent = func(ev report.Event) {
		// Cancel after the first file completes; the run must stop at
		// the next entry boundary.
		if ev.Kind == report.EventProgress {
			cancel()
		}
	}

	ok := s.engine(rec).Backup(ctx)

	require.False(t, ok)
	fin := rec.finish(t)
	assert.False(t, fin.Success)
	assert.Equal(t, "Cancelled", fin.Message)
	assert.Empty(t, s.storageArchives(t), "cancelled run must not publish an archive")

	// The temp file is cleaned up too, not just unrenamed.
	dirents, err := os.ReadDir(s.storageRoot)
	require.NoError(t, err)
	for _, d := range dirents {
		assert.NotContains(t, d.Name(), ".tmp", "abort left temp file %s", d.Name())
	}
}

func TestBackupPrunesBeyondRetention(t *testing.T) {
	s := newTestSetup(t, "Documents")
	s.writeLocal(t, "Documents/notes.txt", "alpha")
	s.cfg.RetentionCount = 2

	// Seed older archives that sort before anything created now.
	old := []string{
		"driveback_testhost_20200101_000000.zip",
		"driveback_testhost_20200102_000000.zip",
		"driveback_testhost_20200103_000000.zip",
	}
	for _, name := range old {
		require.NoError(t, os.WriteFile(filepath.Join(s.storageRoot, name), []byte("x"), 0o644))
	}

	rec := &recorder{}
	require.True(t, s.engine(rec).Backup(context.Background()))

	archives := s.storageArchives(t)
	require.Len(t, archives, 2, "retention must cap the archive count")
	assert.NotContains(t, archives, "driveback_testhost_20200101_000000.zip")
	assert.NotContains(t, archives, "driveback_testhost_20200102_000000.zip")
}

func TestBackupSkipsUnreadableFileAndContinues(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root reads anything, permission failure cannot be provoked")
	}
	s := newTestSetup(t, "Documents")
	s.writeLocal(t, "Documents/good.txt", "alpha")
	s.writeLocal(t, "Documents/locked.txt", "beta")
	require.NoError(t, os.Chmod(filepath.Join(s.localRoot, "Documents", "locked.txt"), 0o000))

	rec := &recorder{}
	ok := s.engine(rec).Backup(context.Background())

	require.True(t, ok, "one bad file must not fail the run")
	archives := s.storageArchives(t)
	require.Len(t, archives, 1)
	names := archiveMemberNames(t, filepath.Join(s.storageRoot, archives[0]))
	assert.Contains(t, names, "Documents/good.txt")
}

func TestScanListsArchivesNewestFirst(t *testing.T) {
	s := newTestSetup(t)
	for _, name := range []string{
		"driveback_testhost_20250101_120000.zip",
		"driveback_testhost_20250301_120000.zip",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(s.storageRoot, name), []byte("x"), 0o644))
	}

	rec := &recorder{}
	require.True(t, s.engine(rec).Scan())

	lines := rec.logLines()
	require.NotEmpty(t, lines)
	assert.Contains(t, lines, "=== Found 2 remote backups ===")

	var march, jan int
	for i, line := range lines {
		if strings.HasPrefix(line, "driveback_testhost_20250301") {
			march = i
		}
		if strings.HasPrefix(line, "driveback_testhost_20250101") {
			jan = i
		}
	}
	assert.Less(t, march, jan, "newest archive must be listed first")
}

func TestScanEmptyStorageRoot(t *testing.T) {
	s := newTestSetup(t)
	rec := &recorder{}
	require.True(t, s.engine(rec).Scan())
	assert.Contains(t, rec.logLines(), "=== No remote backups found ===")
}
