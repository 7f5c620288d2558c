package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Permission constants for file and directory modes.
const (
	// UserWritableDirPerms represents the standard permissions for newly created directories (rwxr-xr-x).
	UserWritableDirPerms os.FileMode = 0755
	// UserWritableFilePerms represents the standard permissions for newly created files (rw-r--r--).
	UserWritableFilePerms os.FileMode = 0644
)

// NormalizePath converts a platform-native path into the forward-slash
// form used for archive member names and pattern matching.
func NormalizePath(p string) string {
	return filepath.ToSlash(p)
}

// DenormalizePath converts a forward-slash path into the platform-native
// separator form used for local filesystem access.
func DenormalizePath(p string) string {
	return filepath.FromSlash(p)
}

// ExpandPath expands the tilde (~) prefix in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil // No tilde, return as-is.
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home directory: %w", err)
	}

	// Replace the tilde with the home directory.
	return filepath.Join(home, path[1:]), nil
}

// SplitSegments breaks a path into its individual components, treating
// both '/' and '\' as separators. Empty segments (doubled separators,
// leading or trailing slashes) are dropped.
func SplitSegments(p string) []string {
	normalized := strings.ReplaceAll(p, `\`, "/")
	raw := strings.Split(normalized, "/")
	segments := raw[:0]
	for _, s := range raw {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// TrimmedNonEmpty returns the entries of the input with surrounding
// whitespace removed and empty results dropped, preserving order.
func TrimmedNonEmpty(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
