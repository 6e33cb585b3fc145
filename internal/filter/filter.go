// Package filter resolves archive inputs: explicit files, recursively walked
// directories, and include/exclude patterns using find -path semantics.
package filter

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/idelchi/volpack/pkg/pathmatch"
)

// ErrNoMatch is returned when no input survives filtering.
var ErrNoMatch = errors.New("no files matched the provided patterns")

// Item is one input selected for archiving.
type Item struct {
	// Path is the filesystem path.
	Path string
	// Name is the archive-relative, slash separated name.
	Name string
	// Info is the stat result captured during resolution.
	Info os.FileInfo
}

// Filter selects files based on include/exclude patterns using find -path semantics.
// Empty includes means "match all". Excludes always win.
type Filter struct {
	includes *pathmatch.Matcher
	excludes *pathmatch.Matcher
}

// NewFilter compiles include/exclude patterns into a reusable filter.
func NewFilter(includes, excludes []string) (*Filter, error) {
	return NewFilterWith(includes, excludes, pathmatch.Options{})
}

// NewFilterWith is NewFilter with explicit matching options.
func NewFilterWith(includes, excludes []string, opts pathmatch.Options) (*Filter, error) {
	inc, err := pathmatch.NewMatcherWith(includes, opts)
	if err != nil {
		return nil, fmt.Errorf("compiling include patterns: %w", err)
	}

	exc, err := pathmatch.NewMatcherWith(excludes, opts)
	if err != nil {
		return nil, fmt.Errorf("compiling exclude patterns: %w", err)
	}

	return &Filter{includes: inc, excludes: exc}, nil
}

// match returns true if the walked file path should be included.
func (f *Filter) match(path string) bool {
	included := f.includes.Len() == 0 || f.includes.MatchAny(path)

	return included && !f.excluded(path)
}

func (f *Filter) excluded(path string) bool {
	return f.excludes.MatchAny(path)
}

// Resolve expands args into archive items in argument order.
// Explicit files bypass filtering. Directories are walked in lexical order and
// contribute an entry for themselves and every surviving descendant.
// Returns the items and the number of candidate files scanned.
func Resolve(fs afero.Fs, args []string, flt *Filter) (items []Item, scanned int, err error) {
	if flt == nil {
		flt = &Filter{}
	}

	seen := make(map[string]struct{})

	add := func(item Item) {
		if _, ok := seen[item.Path]; ok {
			return
		}

		seen[item.Path] = struct{}{}
		items = append(items, item)
	}

	for _, arg := range args {
		arg = filepath.Clean(arg)

		info, err := fs.Stat(arg)
		if err != nil {
			return nil, scanned, fmt.Errorf("stat %q: %w", arg, err)
		}

		if !info.IsDir() {
			scanned++

			add(Item{Path: arg, Name: filepath.Base(arg), Info: info})

			continue
		}

		walked, total, err := walkDir(fs, arg, flt)
		if err != nil {
			return nil, scanned, err
		}

		scanned += total

		for _, item := range walked {
			add(item)
		}
	}

	if len(items) == 0 {
		return nil, scanned, fmt.Errorf("%w: %v", ErrNoMatch, args)
	}

	return items, scanned, nil
}

// prefixFor returns the archive name of a walked root: its base name, or
// nothing for "." and filesystem roots.
func prefixFor(root string) string {
	base := filepath.Base(root)
	if base == "." || base == string(filepath.Separator) || base == filepath.VolumeName(root)+string(filepath.Separator) {
		return ""
	}

	return base
}

// walkDir walks root recursively, returning items that pass the filter.
func walkDir(fs afero.Fs, root string, flt *Filter) (items []Item, total int, err error) {
	prefix := prefixFor(root)

	err = afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Use forward slashes for pattern matching consistency.
		clean := filepath.ToSlash(filepath.Clean(p))

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relative path of %q: %w", p, err)
		}

		name := path.Join(prefix, filepath.ToSlash(rel))

		if info.IsDir() {
			if p != root && flt.excluded(clean) {
				return filepath.SkipDir
			}

			if name != "" && name != "." {
				items = append(items, Item{Path: p, Name: name, Info: info})
			}

			return nil
		}

		total++

		if !flt.match(clean) {
			return nil
		}

		items = append(items, Item{Path: p, Name: name, Info: info})

		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("walking %q: %w", root, err)
	}

	return items, total, nil
}
