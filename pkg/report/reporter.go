package report

import (
	"errors"
	"fmt"
	"sync"
)

// NoPosition marks a DetailedError without a byte offset.
const NoPosition int64 = -1

// ErrUnavailable is returned by Last when there is no reporter to read from.
var ErrUnavailable = errors.New("error reporter unavailable")

// DetailedError is the structured record of the most recent failure.
type DetailedError struct {
	Code       Code
	Message    string
	File       string
	Position   int64
	Suggestion string
}

// None returns the "no error" record.
func None() DetailedError {
	return DetailedError{Code: CodeOK, Position: NoPosition}
}

// OK reports whether the record is the "no error" sentinel.
func (d DetailedError) OK() bool {
	return d.Code == CodeOK
}

// String formats the record for display.
func (d DetailedError) String() string {
	if d.OK() {
		return ErrorString(CodeOK)
	}

	msg := d.Message
	if msg == "" {
		msg = ErrorString(d.Code)
	}

	if d.File != "" {
		msg += fmt.Sprintf(" (file: %s", d.File)
		if d.Position >= 0 {
			msg += fmt.Sprintf(", position: %d", d.Position)
		}

		msg += ")"
	} else if d.Position >= 0 {
		msg += fmt.Sprintf(" (position: %d)", d.Position)
	}

	if d.Suggestion != "" {
		msg += "\nSuggestion: " + d.Suggestion
	}

	return msg
}

// Detail customizes a record built by Fail.
type Detail func(*DetailedError)

// File sets the path active when the failure occurred.
func File(path string) Detail {
	return func(d *DetailedError) { d.File = path }
}

// At sets the byte offset of the failure.
func At(position int64) Detail {
	return func(d *DetailedError) { d.Position = position }
}

// Suggest sets the remediation hint.
func Suggest(text string) Detail {
	return func(d *DetailedError) { d.Suggestion = text }
}

// Reporter is a mutex-guarded cell holding the last DetailedError.
// The zero value is ready to use and holds no error.
type Reporter struct {
	mu   sync.Mutex
	last DetailedError
	set  bool
}

// NewReporter returns an empty Reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Set replaces the stored record.
func (r *Reporter) Set(d DetailedError) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = d
	r.set = !d.OK()
}

// Last returns the stored record, or the "no error" record when nothing is
// stored. It fails only when the reporter itself is unavailable.
func (r *Reporter) Last() (DetailedError, error) {
	if r == nil {
		return DetailedError{}, ErrUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.set {
		return None(), nil
	}

	return r.last, nil
}

// Clear resets the record to "no error".
func (r *Reporter) Clear() {
	r.Set(None())
}

// Fail records err with the given details and returns err unchanged, so a
// failing site can write `return r.Fail(err, report.File(path))`.
// A nil err is returned as-is without touching the record.
func (r *Reporter) Fail(err error, details ...Detail) error {
	if err == nil {
		return nil
	}

	d := DetailedError{
		Code:     CodeOf(err),
		Message:  err.Error(),
		Position: NoPosition,
	}

	for _, detail := range details {
		detail(&d)
	}

	r.Set(d)

	return err
}

// Default is the process-wide reporter.
//
//nolint:gochecknoglobals
var Default = NewReporter()

// Set stores d in the Default reporter.
func Set(d DetailedError) { Default.Set(d) }

// Last reads the Default reporter.
func Last() (DetailedError, error) { return Default.Last() }

// Clear resets the Default reporter.
func Clear() { Default.Clear() }
