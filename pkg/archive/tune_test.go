package archive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/idelchi/volpack/pkg/archive"
	"github.com/idelchi/volpack/pkg/engine"
)

func TestAutoThreadsIsMonotone(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, archive.AutoThreads(0, archive.DefaultChunkSize, 8))
	assert.Equal(t, 1, archive.AutoThreads(archive.SmallInputThreshold-1, archive.DefaultChunkSize, 8))
	assert.Equal(t, 1, archive.AutoThreads(1<<40, archive.DefaultChunkSize, 1))
	assert.Equal(t, 8, archive.AutoThreads(1<<40, archive.DefaultChunkSize, 8))

	prev := 0

	for total := int64(0); total <= 8<<30; total += 97 << 20 {
		got := archive.AutoThreads(total, archive.DefaultChunkSize, 8)
		assert.GreaterOrEqual(t, got, prev, "total %d", total)
		assert.LessOrEqual(t, got, 8)

		prev = got
	}
}

func TestAutoDictSizeIsMonotone(t *testing.T) {
	t.Parallel()

	assert.Zero(t, archive.AutoDictSize(1<<30, archive.LevelStore, archive.DefaultChunkSize))
	assert.Equal(t, engine.MinDictSize, archive.AutoDictSize(10, archive.LevelUltra, archive.DefaultChunkSize))
	assert.Equal(t, engine.DictSizeForLevel(9), archive.AutoDictSize(1<<40, archive.LevelUltra, archive.DefaultChunkSize))
	assert.Equal(t, 8<<20, archive.AutoDictSize(1<<40, archive.LevelUltra, 8<<20))

	for level := archive.LevelFastest; level <= archive.LevelUltra; level++ {
		prev := 0

		for total := int64(1); total <= 4<<30; total *= 3 {
			got := archive.AutoDictSize(total, level, archive.DefaultChunkSize)
			assert.GreaterOrEqual(t, got, prev, "level %d total %d", level, total)
			assert.LessOrEqual(t, got, engine.DictSizeForLevel(int(level)))

			prev = got
		}
	}
}
