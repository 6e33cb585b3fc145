package report

import (
	"errors"
	"fmt"
)

// Error is a taxonomy error. It wraps an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Sentinels for errors.Is matching: any *Error with the same code matches.
//
//nolint:gochecknoglobals
var (
	ErrOpenFile         = &Error{Code: CodeOpenFile}
	ErrInvalidArchive   = &Error{Code: CodeInvalidArchive}
	ErrMemory           = &Error{Code: CodeMemory}
	ErrExtract          = &Error{Code: CodeExtract}
	ErrCompress         = &Error{Code: CodeCompress}
	ErrInvalidParameter = &Error{Code: CodeInvalidParameter}
	ErrNotImplemented   = &Error{Code: CodeNotImplemented}
	ErrIO               = &Error{Code: CodeIO}
	ErrEncryption       = &Error{Code: CodeEncryption}
	ErrDecryption       = &Error{Code: CodeDecryption}
	ErrUnknown          = &Error{Code: CodeUnknown}
)

// New returns an error of the given code with a message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf is New with a format string.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to a lower-level cause.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Error renders "<description>: <message>: <cause>", omitting empty parts.
func (e *Error) Error() string {
	msg := ErrorString(e.Code)

	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels of the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Message == "" && t.Err == nil && t.Code == e.Code
}

// CodeOf extracts the taxonomy code from err.
// A nil error is CodeOK and an error outside the taxonomy is CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return CodeUnknown
}
