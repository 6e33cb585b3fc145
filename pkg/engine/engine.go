// Package engine provides the block compression codecs the archive pipeline calls.
//
// Each engine compresses one block at a time. The method identifiers are
// stored in archive frames and must never be renumbered.
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Method identifies a block codec.
type Method uint8

const (
	// Store passes bytes through unchanged.
	Store Method = 0
	// LZMA2 is the default codec.
	LZMA2 Method = 1
	// Zstd trades ratio for speed.
	Zstd Method = 2
	// LZ4 is the fastest codec.
	LZ4 Method = 3
)

// ErrIncompressible is returned by Compress when the output would not be
// smaller than the input. Callers store such blocks instead.
var ErrIncompressible = errors.New("data is incompressible")

// ErrCorrupt is returned by Decompress for malformed or mis-sized blocks.
var ErrCorrupt = errors.New("corrupt compressed block")

// ErrUnknownMethod is returned for an unregistered method.
var ErrUnknownMethod = errors.New("unknown compression method")

// Params are the per-operation codec settings.
type Params struct {
	// Level is 0..9.
	Level int
	// DictSize is the dictionary or window size in bytes. 0 lets the codec pick.
	DictSize int
	// Threads bounds codec-internal parallelism. 0 or 1 means single-threaded.
	Threads int
}

// Engine compresses and decompresses single blocks.
// Implementations are safe for concurrent use.
type Engine interface {
	Method() Method
	// Compress may return src itself. It returns ErrIncompressible when the
	// result would not shrink.
	Compress(src []byte, params Params) ([]byte, error)
	// Decompress returns exactly rawSize bytes or an error.
	Decompress(src []byte, rawSize int, params Params) ([]byte, error)
}

// String returns the method name.
func (m Method) String() string {
	switch m {
	case Store:
		return "store"
	case LZMA2:
		return "lzma2"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}

// ParseMethod parses a method name, case-insensitively.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(name) {
	case "store", "copy", "none":
		return Store, nil
	case "lzma2", "lzma", "":
		return LZMA2, nil
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}

// New returns the engine for m.
func New(m Method) (Engine, error) {
	switch m {
	case Store:
		return storeEngine{}, nil
	case LZMA2:
		return lzma2Engine{}, nil
	case Zstd:
		return zstdEngine{}, nil
	case LZ4:
		return lz4Engine{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, m)
	}
}

// Methods lists the supported methods.
func Methods() []Method {
	return []Method{Store, LZMA2, Zstd, LZ4}
}

const (
	// MinDictSize is the smallest dictionary any engine accepts.
	MinDictSize = 64 << 10
	// MaxDictSize is the largest dictionary accepted.
	MaxDictSize = 1536 << 20
)

// DictSizeForLevel returns the largest dictionary used at a compression level.
func DictSizeForLevel(level int) int {
	switch {
	case level <= 0:
		return 0
	case level == 1:
		return 256 << 10
	case level == 2:
		return 1 << 20
	case level <= 4:
		return 4 << 20
	case level == 5:
		return 16 << 20
	case level <= 7:
		return 32 << 20
	default:
		return 64 << 20
	}
}

// dictFor returns params.DictSize or the level default, clamped to the valid range.
func dictFor(params Params) int {
	size := params.DictSize
	if size == 0 {
		size = DictSizeForLevel(params.Level)
	}

	return min(max(size, MinDictSize), MaxDictSize)
}
