package archive

import (
	"fmt"

	"github.com/idelchi/volpack/internal/filter"
	"github.com/idelchi/volpack/pkg/engine"
	"github.com/idelchi/volpack/pkg/pathmatch"
	"github.com/idelchi/volpack/pkg/report"
)

const (
	// DefaultChunkSize bounds the bytes read per step and the size of each block.
	DefaultChunkSize = 64 << 20
	// MinChunkSize is the smallest accepted chunk size.
	MinChunkSize = 4 << 10
	// MaxChunkSize is the largest accepted chunk size.
	MaxChunkSize = 1 << 30
	// MinSplitSize is the smallest accepted volume size.
	MinSplitSize = 1 << 10
	// MaxThreads caps explicit thread counts.
	MaxThreads = 1024
	// ProbeSize is the sample tested for compressibility.
	ProbeSize = 1 << 20
)

// CompressOptions control compression.
type CompressOptions struct {
	// NumThreads is the number of blocks compressed concurrently. 0 selects automatically.
	NumThreads int
	// DictSize is the dictionary size in bytes. 0 selects automatically.
	DictSize int
	// Solid packs blocks across file boundaries.
	Solid bool
	// Password enables encryption when non-empty.
	Password string
	// Method names the block codec: lzma2 (default), zstd, lz4 or store.
	Method string
}

// StreamOptions extend CompressOptions for the streaming pipeline.
type StreamOptions struct {
	CompressOptions

	// SplitSize is the volume size in bytes. 0 writes a single file.
	SplitSize int64
	// ChunkSize is the bytes read per step. 0 selects DefaultChunkSize.
	ChunkSize int
	// AutoDetectIncompressible stores everything when a sample does not compress.
	AutoDetectIncompressible bool
	// Include and Exclude filter walked directories with find -path patterns.
	Include []string
	Exclude []string
	// IgnoreCase matches Include and Exclude case-insensitively.
	IgnoreCase bool
}

// DefaultCompressOptions returns solid LZMA2 with automatic tuning.
func DefaultCompressOptions() CompressOptions {
	return CompressOptions{Solid: true, Method: engine.LZMA2.String()}
}

// DefaultStreamOptions returns DefaultCompressOptions with 64 MiB chunks,
// no splitting and incompressible detection on.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		CompressOptions:          DefaultCompressOptions(),
		ChunkSize:                DefaultChunkSize,
		AutoDetectIncompressible: true,
	}
}

// settings are validated stream options.
type settings struct {
	StreamOptions

	method engine.Method
	filter *filter.Filter
}

func invalid(format string, args ...any) error {
	return report.New(report.CodeInvalidParameter, fmt.Sprintf(format, args...))
}

// validate checks every option before any I/O happens.
func (o StreamOptions) validate(archivePath string, inputs []string, level Level) (settings, error) {
	s := settings{StreamOptions: o}

	switch {
	case archivePath == "":
		return s, invalid("archive path is empty")
	case len(inputs) == 0:
		return s, invalid("no input paths")
	case !level.Valid():
		return s, invalid("compression level %d is outside 0..9", int(level))
	case o.NumThreads < 0 || o.NumThreads > MaxThreads:
		return s, invalid("thread count %d is outside 0..%d", o.NumThreads, MaxThreads)
	case o.DictSize != 0 && (o.DictSize < engine.MinDictSize || o.DictSize > engine.MaxDictSize):
		return s, invalid("dictionary size %d is outside %d..%d", o.DictSize, engine.MinDictSize, engine.MaxDictSize)
	case o.SplitSize < 0 || (o.SplitSize > 0 && o.SplitSize < MinSplitSize):
		return s, invalid("split size %d must be 0 or at least %d", o.SplitSize, MinSplitSize)
	case o.ChunkSize < 0 || (o.ChunkSize > 0 && (o.ChunkSize < MinChunkSize || o.ChunkSize > MaxChunkSize)):
		return s, invalid("chunk size %d must be 0 or within %d..%d", o.ChunkSize, MinChunkSize, MaxChunkSize)
	}

	for _, input := range inputs {
		if input == "" {
			return s, invalid("empty input path")
		}
	}

	method, err := engine.ParseMethod(o.Method)
	if err != nil {
		return s, report.Wrap(report.CodeInvalidParameter, err, "")
	}

	if level == LevelStore {
		method = engine.Store
	}

	flt, err := filter.NewFilterWith(o.Include, o.Exclude, pathmatch.Options{FoldCase: o.IgnoreCase})
	if err != nil {
		return s, report.Wrap(report.CodeInvalidParameter, err, "")
	}

	if s.ChunkSize == 0 {
		s.ChunkSize = DefaultChunkSize
	}

	s.method = method
	s.filter = flt

	return s, nil
}
