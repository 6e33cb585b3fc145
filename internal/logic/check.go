package logic

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/idelchi/volpack/internal/filter"
	"github.com/idelchi/volpack/pkg/pathmatch"
)

// ErrNoPatterns is returned by RunCheck when there is nothing to check.
var ErrNoPatterns = errors.New("no include or exclude patterns to check")

// RunCheck validates that every include/exclude pattern matches at least one
// of the files create would walk below cfg.Inputs.
func RunCheck(e Env) error {
	includes, excludes, err := e.loadPatterns()
	if err != nil {
		return err
	}

	if len(includes) == 0 && len(excludes) == 0 {
		return ErrNoPatterns
	}

	items, _, err := filter.Resolve(e.Fs, e.Cfg.Inputs, nil)
	if err != nil {
		return fmt.Errorf("resolving inputs: %w", err)
	}

	candidates := make([]string, 0, len(items))

	for _, item := range items {
		if !item.Info.IsDir() {
			candidates = append(candidates, filepath.ToSlash(filepath.Clean(item.Path)))
		}
	}

	var failures int

	failures += e.checkPatterns("include", includes, candidates)
	failures += e.checkPatterns("exclude", excludes, candidates)

	if failures > 0 {
		return fmt.Errorf("%d pattern(s) matched no files", failures)
	}

	return nil
}

// checkPatterns tests each pattern individually against candidates.
// Returns the number of patterns that matched zero files.
func (e Env) checkPatterns(kind string, patterns, candidates []string) int {
	var failures int

	for _, pattern := range patterns {
		matcher, err := pathmatch.NewMatcherWith([]string{pattern}, pathmatch.Options{FoldCase: e.Cfg.IgnoreCase})
		if err != nil {
			fmt.Fprintf(e.Stderr, "%s: %s: invalid pattern: %v\n", kind, pattern, err)

			failures++

			continue
		}

		var count int

		for _, path := range candidates {
			if matcher.MatchAny(path) {
				count++
			}
		}

		if count == 0 {
			fmt.Fprintf(e.Stderr, "%s: %s: 0 files (ERROR)\n", kind, pattern)

			failures++
		} else if !e.Cfg.Quiet {
			fmt.Fprintf(e.Stderr, "%s: %s: %d files\n", kind, pattern, count)
		}
	}

	return failures
}
