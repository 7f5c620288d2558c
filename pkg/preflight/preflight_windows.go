//go:build windows

package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// platformValidateStorageRoot verifies that the drive or network share
// root for the path exists, e.g. "G:\" for "G:\My Drive\Sync". This is
// the Windows analogue of the Unix ghost-directory check.
func platformValidateStorageRoot(path string) error {
	volume := filepath.VolumeName(path)
	if volume == "" {
		return nil // relative path, nothing to check
	}

	checkVol := volume
	if !strings.HasSuffix(checkVol, string(filepath.Separator)) {
		checkVol += string(filepath.Separator)
	}
	checkVol = filepath.Clean(checkVol)

	if _, err := os.Stat(checkVol); os.IsNotExist(err) {
		return fmt.Errorf("volume root does not exist: %s. Ensure the drive is connected", checkVol)
	}
	return nil
}
