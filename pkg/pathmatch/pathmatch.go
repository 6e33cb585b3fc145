// Package pathmatch implements find -path matching semantics.
//
// It follows fnmatch(3) without FNM_PATHNAME:
//   - * matches any characters including /
//   - ? matches exactly one character including /
//   - [...] matches one character from the set including /
//   - \ escapes the next character
//
// This differs from Go's filepath.Match where * does not cross directory separators.
// A leading "./" in a pattern is ignored so patterns match cleaned paths.
package pathmatch

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Options tune pattern compilation.
type Options struct {
	// FoldCase makes matching case-insensitive.
	FoldCase bool
}

// Match reports whether path matches the pattern using find -path semantics.
func Match(pattern, path string) (bool, error) {
	re, err := compile(pattern, Options{})
	if err != nil {
		return false, err
	}

	return re.MatchString(path), nil
}

// Matcher pre-compiles patterns for reuse across many paths.
// The zero value and a nil *Matcher match nothing.
type Matcher struct {
	sources  []string
	patterns []*regexp.Regexp
}

// NewMatcher compiles the given patterns into a reusable matcher.
func NewMatcher(patterns []string) (*Matcher, error) {
	return NewMatcherWith(patterns, Options{})
}

// NewMatcherWith is NewMatcher with explicit options.
func NewMatcherWith(patterns []string, opts Options) (*Matcher, error) {
	matcher := &Matcher{
		sources:  make([]string, 0, len(patterns)),
		patterns: make([]*regexp.Regexp, 0, len(patterns)),
	}

	for _, p := range patterns {
		re, err := compile(p, opts)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}

		matcher.sources = append(matcher.sources, p)
		matcher.patterns = append(matcher.patterns, re)
	}

	return matcher, nil
}

// Len returns the number of patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}

	return len(m.patterns)
}

// MatchAny reports whether path matches any of the compiled patterns.
func (m *Matcher) MatchAny(path string) bool {
	_, ok := m.Which(path)

	return ok
}

// Which returns the first pattern, as written, that matches path.
func (m *Matcher) Which(path string) (string, bool) {
	if m == nil {
		return "", false
	}

	for i, re := range m.patterns {
		if re.MatchString(path) {
			return m.sources[i], true
		}
	}

	return "", false
}

type cacheKey struct {
	pattern string
	fold    bool
}

var cache sync.Map //nolint:gochecknoglobals // package-level cache is appropriate for compiled regexps

// compile converts a find -path glob pattern to a compiled regexp.
// Results are cached for repeated use.
func compile(pattern string, opts Options) (*regexp.Regexp, error) {
	key := cacheKey{pattern: pattern, fold: opts.FoldCase}

	if v, ok := cache.Load(key); ok {
		cached, _ := v.(*regexp.Regexp) //nolint:errcheck // type is guaranteed by cache.Store below

		return cached, nil
	}

	re, err := toRegexp(strings.TrimPrefix(pattern, "./"))
	if err != nil {
		return nil, err
	}

	if opts.FoldCase {
		re = "(?is)" + re
	} else {
		re = "(?s)" + re
	}

	compiled, err := regexp.Compile(re)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}

	cache.Store(key, compiled)

	return compiled, nil
}

// toRegexp converts a find -path glob pattern to a regex string.
func toRegexp(pattern string) (string, error) {
	var buf strings.Builder

	buf.WriteString("^")

	pos := 0
	for pos < len(pattern) {
		switch pattern[pos] {
		case '*':
			buf.WriteString(".*")

			pos++

		case '?':
			buf.WriteString(".")

			pos++

		case '[':
			end, err := findClosingBracket(pattern, pos)
			if err != nil {
				return "", err
			}

			buf.WriteString(bracketClass(pattern[pos+1 : end]))

			pos = end + 1

		case '\\':
			if pos+1 >= len(pattern) {
				return "", fmt.Errorf("trailing backslash in pattern %q", pattern)
			}

			buf.WriteString(regexp.QuoteMeta(string(pattern[pos+1])))

			pos += 2

		default:
			buf.WriteString(regexp.QuoteMeta(string(pattern[pos])))

			pos++
		}
	}

	buf.WriteString("$")

	return buf.String(), nil
}

// bracketClass rewrites the body of a glob class as a regexp class.
// [!...] negates; a leading ] is literal; ranges pass through.
func bracketClass(body string) string {
	var buf strings.Builder

	buf.WriteString("[")

	if strings.HasPrefix(body, "!") {
		buf.WriteString("^")

		body = body[1:]
	}

	for i := range len(body) {
		switch c := body[i]; c {
		case '\\', '[', ']', '^':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		default:
			buf.WriteByte(c)
		}
	}

	buf.WriteString("]")

	return buf.String()
}

// findClosingBracket finds the index of the closing ] for a character class starting at pos.
func findClosingBracket(pattern string, pos int) (int, error) {
	idx := pos + 1

	// Skip leading ! (negation)
	if idx < len(pattern) && pattern[idx] == '!' {
		idx++
	}

	// Skip leading ] (literal)
	if idx < len(pattern) && pattern[idx] == ']' {
		idx++
	}

	for idx < len(pattern) {
		if pattern[idx] == ']' {
			return idx, nil
		}

		idx++
	}

	return 0, fmt.Errorf("unclosed character class in pattern %q", pattern)
}
