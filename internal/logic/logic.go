// Package logic connects the command-line configuration to the archive library.
package logic

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/idelchi/volpack/internal/config"
	"github.com/idelchi/volpack/pkg/archive"
	"github.com/idelchi/volpack/pkg/report"
)

// Env is what every command runs against.
type Env struct {
	Cfg    *config.Config
	Fs     afero.Fs
	Log    *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
	// Prompt reads a secret interactively. Nil disables --ask-password.
	Prompt func(prompt string) (string, error)
	// Reporter receives the detail of archive failures. Nil uses report.Default.
	Reporter *report.Reporter
}

// NewEnv returns an Env on the OS filesystem and standard streams.
func NewEnv(cfg *config.Config, log *slog.Logger) Env {
	return Env{
		Cfg:    cfg,
		Fs:     afero.NewOsFs(),
		Log:    log,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Prompt: TerminalPrompt,
	}
}

func (e Env) reporter() *report.Reporter {
	if e.Reporter != nil {
		return e.Reporter
	}

	return report.Default
}

func (e Env) archiver() *archive.Archiver {
	return archive.New(
		archive.WithFs(e.Fs),
		archive.WithLogger(e.Log),
		archive.WithReporter(e.reporter()),
	)
}

// printf writes user-facing output unless --quiet is set.
func (e Env) printf(format string, args ...any) {
	if e.Cfg.Quiet {
		return
	}

	fmt.Fprintf(e.Stdout, format, args...)
}

// Failure is an archive error together with the reporter's record of it.
type Failure struct {
	Detail report.DetailedError
	Err    error
}

func (f *Failure) Error() string { return f.Detail.String() }

func (f *Failure) Unwrap() error { return f.Err }

// explain attaches the reporter's record to err.
func (e Env) explain(err error) error {
	if err == nil {
		return nil
	}

	detail, lerr := e.reporter().Last()
	if lerr != nil || detail.OK() {
		return err
	}

	return &Failure{Detail: detail, Err: err}
}

// ExitCode maps err to a process exit status: the numeric error code for
// archive failures, 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var rerr *report.Error
	if errors.As(err, &rerr) && rerr.Code != report.CodeOK {
		return int(rerr.Code)
	}

	return 1
}

type stats struct {
	label    string
	inputs   int
	archived uint64
	written  int64
	volumes  int
}

func (e Env) printStats(s stats, duration time.Duration) {
	fmt.Fprintf(e.Stderr, "\nStats\n")

	if s.inputs > 0 {
		fmt.Fprintf(e.Stderr, "  Entries:   %d\n", s.inputs)
	}

	fmt.Fprintf(e.Stderr, "  %-10s %s\n", s.label+":", humanize.IBytes(s.archived))

	if s.written > 0 {
		//nolint:gosec // sizes are non-negative
		fmt.Fprintf(e.Stderr, "  Archive:   %s", humanize.IBytes(uint64(s.written)))

		if s.archived > 0 {
			fmt.Fprintf(e.Stderr, " (%.1f%%)", 100*float64(s.written)/float64(s.archived))
		}

		fmt.Fprintln(e.Stderr)
	}

	if s.volumes > 1 {
		fmt.Fprintf(e.Stderr, "  Volumes:   %d\n", s.volumes)
	}

	if seconds := duration.Seconds(); seconds > 0 && s.archived > 0 {
		fmt.Fprintf(e.Stderr, "  Speed:     %s/s\n", humanize.IBytes(uint64(float64(s.archived)/seconds)))
	}

	fmt.Fprintf(e.Stderr, "  Duration:  %s\n", duration.Round(time.Millisecond))
}
