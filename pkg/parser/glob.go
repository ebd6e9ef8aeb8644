package parser

import (
	"fmt"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandGlobs resolves root patterns (doublestar syntax, so "**" works) to
// a sorted list of paths without duplicates. A pattern with no match is
// kept literally so the caller's stat error names it.
func ExpandGlobs(patterns []string) ([]string, error) {
	var paths []string

	for _, pattern := range patterns {
		if !doublestar.ValidatePathPattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, doublestar.ErrBadPattern)
		}

		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		paths = append(paths, matches...)
	}

	slices.Sort(paths)
	return slices.Compact(paths), nil
}
