package pathfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldIgnore(t *testing.T) {
	patterns := []string{"__pycache__", ".git", "*.tmp", "*.log", "desktop.ini"}
	f := New(patterns)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"literal dir at depth", "project/.git/config", true},
		{"literal dir at root", ".git", true},
		{"glob suffix on file", "cache/session.tmp", true},
		{"glob suffix on dir segment", "work/build.tmp/out.txt", true},
		{"log file", "app/debug.log", true},
		{"windows separators", `project\__pycache__\mod.pyc`, true},
		{"plain file", "project/main.py", false},
		{"similar but no match", "project/gitignore", false},
		{"suffix inside name does not match", "project/tmpfile", false},
		{"empty path", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.ShouldIgnore(tt.path), "path %q", tt.path)
		})
	}
}

func TestShouldIgnoreNoPatterns(t *testing.T) {
	f := New(nil)
	assert.False(t, f.ShouldIgnore(".git/config"))
}

func TestShouldIgnoreSkipsInvalidPattern(t *testing.T) {
	// "[" is a malformed glob; it must not match anything and must not
	// prevent later patterns from matching.
	f := New([]string{"[", "*.tmp"})
	assert.True(t, f.ShouldIgnore("a/b.tmp"))
	assert.False(t, f.ShouldIgnore("a/b.txt"))
}

func TestNewTrimsPatterns(t *testing.T) {
	f := New([]string{" .git ", "", "*.tmp"})
	assert.Equal(t, []string{".git", "*.tmp"}, f.Patterns())
}
