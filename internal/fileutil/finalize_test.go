package fileutil_test

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/volpack/internal/fileutil"
)

func TestCommitReplacesOutput(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()

	stamp := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, afero.WriteFile(fs, "/src/run.sh", []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, fs.Chtimes("/src/run.sh", stamp, stamp))
	require.NoError(t, afero.WriteFile(fs, "/src/run.sh.xz", []byte("stale"), 0o644))

	tc, err := fileutil.NewTempContext(fs, "/src/run.sh", "/src/run.sh.xz")
	require.NoError(t, err)
	assert.True(t, tc.IsExec)

	require.NoError(t, afero.WriteFile(fs, tc.TmpName, []byte("fresh output"), 0o600))

	size, err := tc.Commit("/src/run.sh.xz", true)
	require.NoError(t, err)
	assert.Equal(t, int64(len("fresh output")), size)

	var cleanupErr error
	tc.CleanupOnError(&cleanupErr)

	data, err := afero.ReadFile(fs, "/src/run.sh.xz")
	require.NoError(t, err)
	assert.Equal(t, "fresh output", string(data))

	info, err := fs.Stat("/src/run.sh.xz")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(stamp))
	assert.NotZero(t, info.Mode()&0o111)

	exists, err := afero.Exists(fs, tc.TmpName)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCleanupOnErrorRemovesTemp(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.txt", []byte("a"), 0o644))

	tc, err := fileutil.NewTempContext(fs, "/a.txt", "/a.txt.lzma")
	require.NoError(t, err)

	failure := errors.New("compression failed")
	tc.CleanupOnError(&failure)

	exists, err := afero.Exists(fs, tc.TmpName)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = afero.Exists(fs, "/a.txt.lzma")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = fileutil.NewTempContext(fs, "/missing", "/missing.xz")
	require.Error(t, err)
}
