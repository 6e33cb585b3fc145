// Package report defines the error taxonomy shared by the archive pipeline and
// a process-wide "last error" cell that carries detail a plain error code cannot.
package report

import "fmt"

// Code classifies a failure. The numeric values are stable and match the
// status codes exchanged with compression engines and foreign callers.
type Code int

const (
	// CodeOK is the "no error" sentinel.
	CodeOK Code = iota
	CodeOpenFile
	CodeInvalidArchive
	CodeMemory
	CodeExtract
	CodeCompress
	CodeInvalidParameter
	CodeNotImplemented
	CodeUnknown
	CodeIO
	CodeEncryption
	CodeDecryption
)

// String returns the short identifier of the code.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeOpenFile:
		return "open-file"
	case CodeInvalidArchive:
		return "invalid-archive"
	case CodeMemory:
		return "memory"
	case CodeExtract:
		return "extract"
	case CodeCompress:
		return "compress"
	case CodeInvalidParameter:
		return "invalid-parameter"
	case CodeNotImplemented:
		return "not-implemented"
	case CodeIO:
		return "io"
	case CodeEncryption:
		return "encryption"
	case CodeDecryption:
		return "decryption"
	case CodeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// ErrorString returns the fixed human-readable description of a code.
// Codes outside the taxonomy describe themselves as unknown.
func ErrorString(c Code) string {
	switch c {
	case CodeOK:
		return "Success"
	case CodeOpenFile:
		return "Failed to open file"
	case CodeInvalidArchive:
		return "Invalid archive"
	case CodeMemory:
		return "Memory allocation error"
	case CodeExtract:
		return "Extraction error"
	case CodeCompress:
		return "Compression error"
	case CodeInvalidParameter:
		return "Invalid parameter"
	case CodeNotImplemented:
		return "Not implemented"
	case CodeIO:
		return "I/O error"
	case CodeEncryption:
		return "Encryption error"
	case CodeDecryption:
		return "Decryption error"
	default:
		return "Unknown error"
	}
}
