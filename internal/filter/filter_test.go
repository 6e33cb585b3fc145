package filter_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/volpack/internal/filter"
	"github.com/idelchi/volpack/pkg/pathmatch"
)

func tree(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()

	for name, content := range map[string]string{
		"data/a.txt":          "alpha",
		"data/b.log":          "beta",
		"data/sub/c.txt":      "gamma",
		"data/cache/blob.bin": "delta",
		"single.txt":          "epsilon",
	} {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	return fs
}

func names(items []filter.Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}

	return out
}

func TestResolveWalksDirectories(t *testing.T) {
	t.Parallel()

	fs := tree(t)

	items, scanned, err := filter.Resolve(fs, []string{"single.txt", "data"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, scanned)
	assert.Equal(t, []string{
		"single.txt",
		"data",
		"data/a.txt",
		"data/b.log",
		"data/cache",
		"data/cache/blob.bin",
		"data/sub",
		"data/sub/c.txt",
	}, names(items))

	assert.True(t, items[1].Info.IsDir())
	assert.Equal(t, int64(5), items[2].Info.Size())
}

func TestResolveFilters(t *testing.T) {
	t.Parallel()

	fs := tree(t)

	flt, err := filter.NewFilter([]string{"*.txt"}, []string{"data/cache"})
	require.NoError(t, err)

	items, _, err := filter.Resolve(fs, []string{"data", "data/b.log"}, flt)
	require.NoError(t, err)

	assert.Equal(t, []string{"data", "data/a.txt", "data/sub", "data/sub/c.txt", "b.log"}, names(items))
}

func TestResolveIgnoreCase(t *testing.T) {
	t.Parallel()

	fs := tree(t)

	exact, err := filter.NewFilter([]string{"*.TXT"}, nil)
	require.NoError(t, err)

	items, _, err := filter.Resolve(fs, []string{"data"}, exact)
	require.NoError(t, err)
	assert.Equal(t, []string{"data", "data/cache", "data/sub"}, names(items))

	folded, err := filter.NewFilterWith([]string{"*.TXT"}, []string{"DATA/SUB/*"}, pathmatch.Options{FoldCase: true})
	require.NoError(t, err)

	items, _, err = filter.Resolve(fs, []string{"data"}, folded)
	require.NoError(t, err)
	assert.Equal(t, []string{"data", "data/a.txt", "data/cache", "data/sub"}, names(items))
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	fs := tree(t)

	_, _, err := filter.Resolve(fs, []string{"missing"}, nil)
	require.Error(t, err)

	flt, err := filter.NewFilter([]string{"*.none"}, nil)
	require.NoError(t, err)

	require.NoError(t, fs.MkdirAll("empty", 0o755))

	items, _, err := filter.Resolve(fs, []string{"data"}, flt)
	require.NoError(t, err)
	assert.Equal(t, []string{"data", "data/cache", "data/sub"}, names(items))

	_, _, err = filter.Resolve(fs, []string{"empty/"}, flt)
	require.NoError(t, err, "a walked directory is itself an item")

	_, err = filter.NewFilter([]string{"[unclosed"}, nil)
	require.Error(t, err)
}

func TestLoadPatterns(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "patterns.jsonc", []byte(`[
		// build output
		"*.o",
		"./tmp/*", /* scratch */
		"  ",
	]`), 0o644))

	patterns, err := filter.LoadPatterns(fs, "patterns.jsonc")
	require.NoError(t, err)
	assert.Equal(t, []string{"*.o", "tmp/*"}, patterns)

	_, err = filter.LoadPatterns(fs, "absent.jsonc")
	require.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "object.jsonc", []byte(`{"include": ["*.o"]}`), 0o644))

	_, err = filter.LoadPatterns(fs, "object.jsonc")
	require.Error(t, err)
}
