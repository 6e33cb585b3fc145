package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
)

// LoadPatterns reads a JSONC array of find -path patterns from path.
// Comments and trailing commas are allowed; blank entries are dropped.
func LoadPatterns(fs afero.Fs, path string) ([]string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading patterns file %q: %w", path, err)
	}

	var raw []string
	if err := json.Unmarshal(jsonc.ToJSONInPlace(data), &raw); err != nil {
		return nil, fmt.Errorf("parsing patterns file %q: %w", path, err)
	}

	return Normalize(raw), nil
}

// Normalize trims patterns, strips a leading "./" so they match cleaned
// paths, and drops blank ones.
func Normalize(patterns []string) []string {
	out := make([]string, 0, len(patterns))

	for _, p := range patterns {
		p = strings.TrimPrefix(strings.TrimSpace(p), "./")
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
