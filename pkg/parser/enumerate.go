package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ccollicutt/synclog/pkg/model"
)

// DefaultFilePattern matches the sync log files written by the server.
const DefaultFilePattern = "serverdb_*.log"

// OwnerEnumerator discovers work items under a set of root directories.
// Every immediate subdirectory of a root is an owner; files inside it that
// match Pattern belong to that owner. Roots may themselves be glob patterns.
type OwnerEnumerator struct {
	Roots   []string
	Pattern string
}

// NewOwnerEnumerator creates an enumerator for the given roots. An empty
// pattern uses DefaultFilePattern.
func NewOwnerEnumerator(roots []string, pattern string) *OwnerEnumerator {
	if pattern == "" {
		pattern = DefaultFilePattern
	}
	return &OwnerEnumerator{Roots: roots, Pattern: pattern}
}

// Enumerate calls fn for every matching file, in sorted order by root,
// owner and path. It stops at the first error returned by fn.
func (e *OwnerEnumerator) Enumerate(ctx context.Context, fn func(model.WorkItem) error) error {
	if !doublestar.ValidatePattern(e.Pattern) {
		return fmt.Errorf("invalid file pattern %q: %w", e.Pattern, doublestar.ErrBadPattern)
	}

	roots, err := ExpandGlobs(e.Roots)
	if err != nil {
		return err
	}

	for _, root := range roots {
		if err := e.enumerateRoot(ctx, root, fn); err != nil {
			return err
		}
	}
	return nil
}

// Collect returns all work items at once.
func (e *OwnerEnumerator) Collect(ctx context.Context) ([]model.WorkItem, error) {
	var items []model.WorkItem
	err := e.Enumerate(ctx, func(item model.WorkItem) error {
		items = append(items, item)
		return nil
	})
	return items, err
}

func (e *OwnerEnumerator) enumerateRoot(ctx context.Context, root string, fn func(model.WorkItem) error) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root %s: %w", root, err)
	}

	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return fmt.Errorf("reading root %s: %w", root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		owner := entry.Name()
		ownerDir := filepath.Join(absRoot, owner)

		matches, err := doublestar.Glob(os.DirFS(ownerDir), e.Pattern, doublestar.WithFilesOnly())
		if err != nil {
			return fmt.Errorf("listing %s: %w", ownerDir, err)
		}
		sort.Strings(matches)

		for _, m := range matches {
			item := model.WorkItem{
				Owner: owner,
				Path:  filepath.Join(ownerDir, filepath.FromSlash(m)),
			}
			if err := fn(item); err != nil {
				return err
			}
		}
	}

	return nil
}
