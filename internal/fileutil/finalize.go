// Package fileutil provides shared file operation helpers.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// TempContext holds state for an atomic file write operation: output is
// written to TmpName next to the destination and renamed over it by Commit.
type TempContext struct {
	SrcInfo os.FileInfo
	IsExec  bool
	TmpName string

	fs        afero.Fs
	committed bool
}

// NewTempContext stats the source file and reserves a temp file for atomic writing.
// Caller must defer CleanupOnError.
func NewTempContext(fs afero.Fs, filename, outPath string) (*TempContext, error) {
	info, err := fs.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("getting file info for %q: %w", filename, err)
	}

	const executableBits = 0o111

	tmpFile, err := afero.TempFile(fs, filepath.Dir(outPath), ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temporary file: %w", err)
	}

	name := tmpFile.Name()

	if err := tmpFile.Close(); err != nil {
		fs.Remove(name) //nolint:errcheck // best-effort cleanup

		return nil, fmt.Errorf("closing temporary file: %w", err)
	}

	return &TempContext{
		SrcInfo: info,
		IsExec:  info.Mode()&executableBits != 0,
		TmpName: name,
		fs:      fs,
	}, nil
}

// CleanupOnError removes the temp file if the write failed or was never committed.
func (tc *TempContext) CleanupOnError(errp *error) {
	if *errp != nil || !tc.committed {
		tc.fs.Remove(tc.TmpName) //nolint:errcheck // best-effort cleanup
	}
}

// Commit gives the temp file the source's permission bits, renames it to
// outPath and optionally copies the source modification time.
// It returns the size of the output.
func (tc *TempContext) Commit(outPath string, preserveTimestamps bool) (int64, error) {
	const ownerReadWrite = 0o644

	perm := os.FileMode(ownerReadWrite)

	if tc.IsExec {
		perm |= 0o111
	}

	if err := tc.fs.Chmod(tc.TmpName, perm); err != nil {
		return 0, fmt.Errorf("setting file permissions: %w", err)
	}

	if err := tc.fs.Rename(tc.TmpName, outPath); err != nil {
		return 0, fmt.Errorf("renaming output file: %w", err)
	}

	tc.committed = true

	return FinalizeOutput(tc.fs, outPath, preserveTimestamps, tc.SrcInfo.ModTime())
}

// FinalizeOutput optionally preserves timestamps and returns the output file size.
func FinalizeOutput(fs afero.Fs, outPath string, preserveTimestamps bool, modTime time.Time) (int64, error) {
	if preserveTimestamps {
		if err := fs.Chtimes(outPath, modTime, modTime); err != nil {
			return 0, fmt.Errorf("preserving timestamps: %w", err)
		}
	}

	outInfo, err := fs.Stat(outPath)
	if err != nil {
		return 0, fmt.Errorf("stat output %q: %w", outPath, err)
	}

	return outInfo.Size(), nil
}
