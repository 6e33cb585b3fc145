// Package archive creates, lists, tests and extracts volpack archives.
//
// Creation streams inputs in bounded chunks through a block compression
// engine, optionally encrypts the compressed stream with AES-256-CBC, and
// splits the output into numbered volumes. Extraction stitches the volumes
// back into one stream and reverses each step.
package archive

import (
	"log/slog"
	"runtime"

	"github.com/spf13/afero"

	"github.com/idelchi/volpack/pkg/report"
)

// Archiver runs archive operations against a filesystem.
// All methods are safe to call from multiple goroutines; each failure is
// also recorded in the configured reporter.
type Archiver struct {
	fs       afero.Fs
	log      *slog.Logger
	reporter *report.Reporter
	cpus     int
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithFs sets the filesystem. The default is the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(a *Archiver) { a.fs = fs }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(a *Archiver) { a.log = log }
}

// WithReporter sets the last-error reporter. The default is report.Default.
func WithReporter(r *report.Reporter) Option {
	return func(a *Archiver) { a.reporter = r }
}

// WithCPUs overrides the CPU count used by auto-tuning.
func WithCPUs(n int) Option {
	return func(a *Archiver) { a.cpus = n }
}

// New returns an Archiver.
func New(opts ...Option) *Archiver {
	a := &Archiver{
		fs:       afero.NewOsFs(),
		log:      slog.Default(),
		reporter: report.Default,
		cpus:     runtime.NumCPU(),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.log = a.log.With("component", "archive")

	return a
}

// fail records err and returns it.
func (a *Archiver) fail(err error, details ...report.Detail) error {
	return a.reporter.Fail(err, details...)
}
