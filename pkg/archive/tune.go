package archive

import (
	"math/bits"

	"github.com/idelchi/volpack/pkg/engine"
)

// SmallInputThreshold is the total size below which auto-tuning stays single-threaded.
const SmallInputThreshold = 4 << 20

// AutoThreads picks the number of concurrent block workers for total input
// bytes split into chunk-sized blocks. It never decreases as total grows.
func AutoThreads(total int64, chunkSize, cpus int) int {
	if total < SmallInputThreshold || cpus <= 1 {
		return 1
	}

	blocks := (total + int64(chunkSize) - 1) / int64(chunkSize)

	return int(min(int64(cpus), max(blocks, 1)))
}

// AutoDictSize picks the dictionary for total input bytes at level: the next
// power of two covering the input, within the level's maximum and the block
// size. It never decreases as total grows.
func AutoDictSize(total int64, level Level, chunkSize int) int {
	limit := engine.DictSizeForLevel(int(level))
	if limit == 0 {
		return 0
	}

	limit = min(limit, int(nextPow2(int64(chunkSize))))

	return int(max(min(nextPow2(total), int64(limit)), engine.MinDictSize))
}

func nextPow2(n int64) int64 {
	if n <= 1 {
		return 1
	}

	return 1 << bits.Len64(uint64(n-1))
}

// resolveParams fills automatic threads and dictionary from the input size.
func resolveParams(level Level, total int64, s settings, cpus int) engine.Params {
	params := engine.Params{
		Level:    int(level),
		Threads:  s.NumThreads,
		DictSize: s.DictSize,
	}

	if params.Threads == 0 {
		params.Threads = AutoThreads(total, s.ChunkSize, cpus)
	}

	if params.DictSize == 0 {
		params.DictSize = AutoDictSize(total, level, s.ChunkSize)
	}

	return params
}
