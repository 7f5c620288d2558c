// Package preflight validates the storage root before any archive I/O.
// The typical failure it guards against is a cloud-drive mount that is
// not currently available: without the check, a backup would silently
// write into a ghost directory on the system disk.
package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/driveback/driveback/pkg/util"
)

// ErrStorageRootUnset is returned when no storage root is configured.
var ErrStorageRootUnset = errors.New("storage root path is not configured")

// EnsureStorageRoot validates the configured storage root and creates
// the directory tree if it is absent. Callers must treat an error as
// "operation aborted" and attempt no further I/O against the root.
func EnsureStorageRoot(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrStorageRootUnset
	}

	if err := platformValidateStorageRoot(path); err != nil {
		return err
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(path, util.UserWritableDirPerms); err != nil {
			return fmt.Errorf("could not create storage root %s: %w", path, err)
		}
	case err != nil:
		return fmt.Errorf("cannot access storage root %s: %w", path, err)
	case !info.IsDir():
		return fmt.Errorf("storage root exists but is not a directory: %s", path)
	}

	return checkWritable(path)
}

// checkWritable performs a thorough write check by creating and
// deleting a temporary file at the storage root.
func checkWritable(path string) error {
	probe := filepath.Join(path, ".driveback-writetest.tmp")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("storage root %s is not writable: %w", path, err)
	}
	f.Close()
	_ = os.Remove(probe)
	return nil
}

// deepestExistingAncestor walks up from path until it finds a directory
// that actually exists.
func deepestExistingAncestor(path string) string {
	ancestor := filepath.Clean(path)
	for {
		if _, err := os.Stat(ancestor); err == nil {
			return ancestor
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return ancestor // hit root
		}
		ancestor = parent
	}
}
