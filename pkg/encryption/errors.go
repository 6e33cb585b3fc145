package encryption

import "errors"

var (
	// ErrEmptyPassword is returned when a context is created without a password.
	ErrEmptyPassword = errors.New("password cannot be empty")
	// ErrEmptySalt is returned when a decryption context is created without a salt.
	ErrEmptySalt = errors.New("salt cannot be empty")
	// ErrInvalidPadding is returned when PKCS7 padding is malformed.
	ErrInvalidPadding = errors.New("invalid padding")
	// ErrInvalidBlockSize is returned when encrypted data length is not aligned with AES block size.
	ErrInvalidBlockSize = errors.New("ciphertext is not a multiple of block size")
	// ErrInvalidLength is returned for a salt or IV of the wrong size.
	ErrInvalidLength = errors.New("invalid length")
	// ErrClosed is returned when a context is used after Close.
	ErrClosed = errors.New("context closed")
	// ErrAuthentication is returned when a sealed payload fails to open.
	ErrAuthentication = errors.New("authentication failed")
)
