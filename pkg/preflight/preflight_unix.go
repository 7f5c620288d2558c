//go:build !windows

package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// platformValidateStorageRoot detects the "ghost directory" case: a
// storage root that is supposed to live on a mounted drive but whose
// deepest existing ancestor sits on the root filesystem because the
// mount is gone. Paths under the user's home or the system temp dir are
// always allowed; local roots there are intentional.
func platformValidateStorageRoot(path string) error {
	anchor := deepestExistingAncestor(path)

	if home, err := os.UserHomeDir(); err == nil && home != "" && strings.HasPrefix(anchor, home) {
		return nil
	}
	if tmp := os.TempDir(); tmp != "" && strings.HasPrefix(anchor, tmp) {
		return nil
	}
	if anchor == "/" {
		// Nothing of the configured path exists at all; the mount the
		// path lives on is clearly not there.
		return fmt.Errorf("storage root %s does not exist and no parent is mounted", path)
	}

	rootDev, err := deviceID("/")
	if err != nil {
		return err
	}
	anchorDev, err := deviceID(anchor)
	if err != nil {
		return err
	}

	if anchorDev == rootDev {
		return fmt.Errorf("storage root %s is on the system disk; ensure the drive is mounted", path)
	}
	return nil
}

func deviceID(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return uint64(st.Dev), nil
}
