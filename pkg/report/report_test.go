package report_test

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/volpack/pkg/report"
)

func TestCodeNumbering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code report.Code
		want int
		text string
	}{
		{report.CodeOK, 0, "Success"},
		{report.CodeOpenFile, 1, "Failed to open file"},
		{report.CodeInvalidArchive, 2, "Invalid archive"},
		{report.CodeMemory, 3, "Memory allocation error"},
		{report.CodeExtract, 4, "Extraction error"},
		{report.CodeCompress, 5, "Compression error"},
		{report.CodeInvalidParameter, 6, "Invalid parameter"},
		{report.CodeNotImplemented, 7, "Not implemented"},
		{report.CodeUnknown, 8, "Unknown error"},
		{report.Code(99), 99, "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, int(tt.code))
			assert.Equal(t, tt.text, report.ErrorString(tt.code))
		})
	}
}

func TestErrorMatching(t *testing.T) {
	t.Parallel()

	cause := io.ErrUnexpectedEOF
	err := fmt.Errorf("reading block: %w", report.Wrap(report.CodeIO, cause, "volume 2"))

	assert.ErrorIs(t, err, report.ErrIO)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, report.ErrDecryption)
	assert.Equal(t, report.CodeIO, report.CodeOf(err))
	assert.Equal(t, "reading block: I/O error: volume 2: unexpected EOF", err.Error())

	assert.Equal(t, report.CodeOK, report.CodeOf(nil))
	assert.Equal(t, report.CodeUnknown, report.CodeOf(errors.New("plain")))
}

func TestReporterLifecycle(t *testing.T) {
	t.Parallel()

	r := report.NewReporter()

	last, err := r.Last()
	require.NoError(t, err)
	assert.True(t, last.OK())
	assert.Equal(t, report.NoPosition, last.Position)

	failure := report.New(report.CodeOpenFile, "missing.txt")
	returned := r.Fail(failure, report.File("missing.txt"), report.At(12), report.Suggest("check the path"))
	assert.Same(t, failure, returned)

	last, err = r.Last()
	require.NoError(t, err)
	assert.Equal(t, report.DetailedError{
		Code:       report.CodeOpenFile,
		Message:    "Failed to open file: missing.txt",
		File:       "missing.txt",
		Position:   12,
		Suggestion: "check the path",
	}, last)

	r.Clear()

	last, err = r.Last()
	require.NoError(t, err)
	assert.Equal(t, report.None(), last)

	require.NoError(t, r.Fail(nil))

	last, _ = r.Last()
	assert.True(t, last.OK())
}

func TestReporterUnavailable(t *testing.T) {
	t.Parallel()

	var r *report.Reporter

	_, err := r.Last()
	require.ErrorIs(t, err, report.ErrUnavailable)

	r.Set(report.DetailedError{Code: report.CodeIO})
	r.Clear()
}

func TestReporterConcurrentWriters(t *testing.T) {
	t.Parallel()

	r := report.NewReporter()

	var wg sync.WaitGroup

	for i := range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_ = r.Fail(report.Newf(report.CodeCompress, "block %d", i), report.At(int64(i)))
		}()
	}

	wg.Wait()

	last, err := r.Last()
	require.NoError(t, err)
	assert.Equal(t, report.CodeCompress, last.Code)
	assert.Equal(t, fmt.Sprintf("Compression error: block %d", last.Position), last.Message)
}

func TestDetailedErrorString(t *testing.T) {
	t.Parallel()

	d := report.DetailedError{
		Code:       report.CodeDecryption,
		Message:    "wrong password",
		File:       "backup.vpk",
		Position:   64,
		Suggestion: "verify the password",
	}

	assert.Equal(t, "wrong password (file: backup.vpk, position: 64)\nSuggestion: verify the password", d.String())
	assert.Equal(t, "Success", report.None().String())
}
