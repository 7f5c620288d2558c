// Package pathfilter decides whether a path should be excluded from a
// backup or restore, given a set of glob-style ignore patterns.
//
// Matching is deliberately segment based: every component of the path is
// tested independently against every pattern, so a pattern like ".git"
// excludes a directory of that name at any depth and "*.tmp" excludes
// any component with that suffix regardless of position. There is no
// escaping or negation syntax.
package pathfilter

import (
	"path"

	"github.com/rs/zerolog/log"

	"github.com/driveback/driveback/pkg/util"
)

// Filter holds a compiled set of ignore patterns.
type Filter struct {
	patterns []string
}

// New creates a Filter from the given glob patterns. Patterns are used
// as provided; validity is only detectable at match time, where an
// invalid pattern is logged once per call and skipped.
func New(patterns []string) *Filter {
	return &Filter{patterns: util.TrimmedNonEmpty(patterns)}
}

// ShouldIgnore reports whether any separator-normalized segment of p
// matches any of the configured patterns.
func (f *Filter) ShouldIgnore(p string) bool {
	if len(f.patterns) == 0 {
		return false
	}

	for _, segment := range util.SplitSegments(p) {
		for _, pattern := range f.patterns {
			match, err := path.Match(pattern, segment)
			if err != nil {
				log.Warn().Str("pattern", pattern).Err(err).Msg("invalid ignore pattern")
				continue
			}
			if match {
				return true
			}
		}
	}
	return false
}

// Patterns returns the active pattern set.
func (f *Filter) Patterns() []string {
	return f.patterns
}
