// Package volume splits an archive byte stream across numbered files and
// stitches such a set back into one logical stream.
//
// Volumes are named <base>.NNN, 1-based and zero-padded to three digits.
package volume

import (
	"fmt"
	"regexp"
	"strconv"
)

// partPattern matches "<base>.<digits>" with at least three digits.
var partPattern = regexp.MustCompile(`^(.+)\.(\d{3,})$`)

// Name returns the path of volume seq (1-based) of base.
func Name(base string, seq int) string {
	return fmt.Sprintf("%s.%03d", base, seq)
}

// Parse splits a volume path into its base and sequence number.
// ok is false when path carries no numeric suffix.
func Parse(path string) (base string, seq int, ok bool) {
	matches := partPattern.FindStringSubmatch(path)
	if matches == nil {
		return "", 0, false
	}

	seq, err := strconv.Atoi(matches[2])
	if err != nil || seq < 1 {
		return "", 0, false
	}

	return matches[1], seq, true
}
