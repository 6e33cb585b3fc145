package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/volpack/internal/commands"
	"github.com/idelchi/volpack/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := commands.NewRootCommand(config.Default(), "v1.2.3")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func TestCreateExtractThroughCLI(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")

	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "file.txt"), []byte(strings.Repeat("volpack ", 2000)), 0o644))

	archivePath := filepath.Join(dir, "out.vpk")

	out, err := execute(t, "create", "--level", "1", "--split", "4KiB", "--quiet", archivePath, src)
	require.NoError(t, err, out)

	_, err = os.Stat(archivePath + ".001")
	require.NoError(t, err)

	out, err = execute(t, "list", archivePath+".001")
	require.NoError(t, err)
	assert.Contains(t, out, "src/nested/file.txt")

	out, err = execute(t, "test", "-q", archivePath)
	require.NoError(t, err, out)

	target := filepath.Join(dir, "restored")

	out, err = execute(t, "extract", "-q", "-o", target, archivePath, "src/nested")
	require.NoError(t, err, out)

	got, err := os.ReadFile(filepath.Join(target, "src", "nested", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("volpack ", 2000), string(got))
}

func TestInvalidFlagsAreRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "level", args: []string{"create", "--level", "12", "a.vpk", "."}, want: "--level"},
		{name: "method", args: []string{"create", "--method", "bzip2", "a.vpk", "."}, want: "--method"},
		{name: "split", args: []string{"create", "--split", "lots", "a.vpk", "."}, want: "--split"},
		{name: "passwords", args: []string{"list", "--password", "x", "--ask-password", "a.vpk"}, want: "--password"},
		{name: "missing args", args: []string{"create", "a.vpk"}, want: "requires at least 2 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestShowMasksPassword(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "list", "--show", "--password", "hunter2", "a.vpk")
	require.NoError(t, err)
	assert.Contains(t, out, "*******")
	assert.NotContains(t, out, "hunter2")
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3\n", out)

	out, err = execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3\n", out)
}
