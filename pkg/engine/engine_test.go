package engine_test

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/volpack/pkg/engine"
)

func textData(size int) []byte {
	line := []byte("the quick brown fox jumps over the lazy dog 0123456789\n")

	return bytes.Repeat(line, size/len(line)+1)[:size]
}

func randomData(size int) []byte {
	rng := rand.New(rand.NewChaCha8([32]byte{1, 2, 3}))

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rng.Uint32())
	}

	return data
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	src := textData(200_000)

	for _, method := range engine.Methods() {
		for _, level := range []int{1, 5, 9} {
			t.Run(method.String(), func(t *testing.T) {
				t.Parallel()

				eng, err := engine.New(method)
				require.NoError(t, err)
				assert.Equal(t, method, eng.Method())

				params := engine.Params{Level: level, Threads: 2}

				packed, err := eng.Compress(src, params)
				require.NoError(t, err)

				if method != engine.Store {
					assert.Less(t, len(packed), len(src))
				}

				raw, err := eng.Decompress(packed, len(src), params)
				require.NoError(t, err)
				assert.Equal(t, src, raw)
			})
		}
	}
}

func TestIncompressible(t *testing.T) {
	t.Parallel()

	src := randomData(64 << 10)

	for _, method := range []engine.Method{engine.LZMA2, engine.Zstd, engine.LZ4} {
		t.Run(method.String(), func(t *testing.T) {
			t.Parallel()

			eng, err := engine.New(method)
			require.NoError(t, err)

			_, err = eng.Compress(src, engine.Params{Level: 5})
			require.ErrorIs(t, err, engine.ErrIncompressible)
		})
	}
}

func TestDecompressRejectsWrongSize(t *testing.T) {
	t.Parallel()

	src := textData(10_000)

	for _, method := range engine.Methods() {
		t.Run(method.String(), func(t *testing.T) {
			t.Parallel()

			eng, err := engine.New(method)
			require.NoError(t, err)

			packed, err := eng.Compress(src, engine.Params{Level: 3})
			require.NoError(t, err)

			_, err = eng.Decompress(packed, len(src)+1, engine.Params{Level: 3})
			require.ErrorIs(t, err, engine.ErrCorrupt)
		})
	}
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want engine.Method
		err  bool
	}{
		{name: "lzma2", want: engine.LZMA2},
		{name: "", want: engine.LZMA2},
		{name: "ZSTD", want: engine.Zstd},
		{name: "lz4", want: engine.LZ4},
		{name: "copy", want: engine.Store},
		{name: "bzip2", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := engine.ParseMethod(tt.name)
			if tt.err {
				require.ErrorIs(t, err, engine.ErrUnknownMethod)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := engine.New(engine.Method(42))
	require.ErrorIs(t, err, engine.ErrUnknownMethod)
}

func TestDictSizeForLevelMonotone(t *testing.T) {
	t.Parallel()

	prev := engine.DictSizeForLevel(0)
	assert.Zero(t, prev)

	for level := 1; level <= 9; level++ {
		size := engine.DictSizeForLevel(level)
		assert.GreaterOrEqual(t, size, prev, "level %d", level)

		prev = size
	}
}

func TestFileFormats(t *testing.T) {
	t.Parallel()

	for _, format := range []engine.FileFormat{engine.FormatLZMA, engine.FormatXZ} {
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			src := textData(300_000)

			require.NoError(t, afero.WriteFile(fs, "input.txt", src, 0o644))

			packed := "input.txt" + format.Extension()
			require.NoError(t, engine.CompressFile(fs, format, "input.txt", packed, 5))

			info, err := fs.Stat(packed)
			require.NoError(t, err)
			assert.Less(t, info.Size(), int64(len(src)))

			require.NoError(t, engine.DecompressFile(fs, format, packed, "output.txt"))

			got, err := afero.ReadFile(fs, "output.txt")
			require.NoError(t, err)
			assert.Equal(t, src, got)
		})
	}
}

func TestDecompressFileRejectsGarbage(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "bad.xz", []byte("definitely not xz"), 0o644))

	err := engine.DecompressFile(fs, engine.FormatXZ, "bad.xz", "out")
	require.ErrorIs(t, err, engine.ErrCorrupt)

	err = engine.DecompressFile(fs, engine.FormatLZMA, "missing.lzma", "out")
	require.Error(t, err)
}

func TestNamedFileCodecs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	src := textData(10_000)

	require.NoError(t, afero.WriteFile(fs, "a.txt", src, 0o644))

	require.NoError(t, engine.CompressLZMA(fs, "a.txt", "a.txt.lzma", 1))
	require.NoError(t, engine.DecompressLZMA(fs, "a.txt.lzma", "a.lzma.out"))
	require.NoError(t, engine.CompressXZ(fs, "a.txt", "a.txt.xz", 3))
	require.NoError(t, engine.DecompressXZ(fs, "a.txt.xz", "a.xz.out"))

	for _, out := range []string{"a.lzma.out", "a.xz.out"} {
		got, err := afero.ReadFile(fs, out)
		require.NoError(t, err)
		assert.Equal(t, src, got, out)
	}

	// The formats are not interchangeable.
	require.Error(t, engine.DecompressXZ(fs, "a.txt.lzma", "mixed.out"))
}
