package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/driveback/driveback/pkg/util"
)

// OpenReader opens an archive for member enumeration and extraction.
func OpenReader(path string) (*zip.ReadCloser, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	return r, nil
}

// SafeMemberPath resolves a member name below targetRoot. It rejects
// absolute paths and any name that would escape the root through ".."
// segments (zip-slip). The boolean is false when the member must be
// skipped.
func SafeMemberPath(targetRoot, memberName string) (string, bool) {
	rel := util.NormalizePath(memberName)
	if rel == "" || strings.HasPrefix(rel, "/") || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", false
	}

	cleanRoot := filepath.Clean(targetRoot)
	absTarget := filepath.Join(cleanRoot, util.DenormalizePath(rel))
	if absTarget == cleanRoot {
		return "", false
	}
	if !strings.HasPrefix(absTarget, cleanRoot+string(os.PathSeparator)) {
		return "", false
	}
	return absTarget, true
}

// ExtractMember writes one archive member to absTarget, which must come
// from SafeMemberPath. Directories are created, symlinks recreated,
// regular file contents copied through buf; modification times are
// restored from the archive.
func ExtractMember(f *zip.File, absTarget string, buf []byte) error {
	// Strip setuid/setgid so a restored archive cannot plant a
	// privilege-escalation binary.
	mode := f.Mode() &^ (os.ModeSetuid | os.ModeSetgid)

	if f.FileInfo().IsDir() {
		return os.MkdirAll(absTarget, mode.Perm()|0700)
	}

	if err := os.MkdirAll(filepath.Dir(absTarget), util.UserWritableDirPerms); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	if f.Mode()&os.ModeSymlink != 0 {
		linkTarget, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		// Remove any existing entry so we never follow a symlink planted
		// by a previous member.
		_ = os.Remove(absTarget)
		return os.Symlink(string(linkTarget), absTarget)
	}

	_ = os.Remove(absTarget)
	out, err := os.OpenFile(absTarget, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm()|0600)
	if err != nil {
		return err
	}
	if _, err := io.CopyBuffer(out, rc, buf); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	_ = os.Chtimes(absTarget, f.Modified, f.Modified)
	return nil
}
