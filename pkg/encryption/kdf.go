package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/idelchi/volpack/internal/secret"
	"github.com/idelchi/volpack/pkg/report"
)

const (
	// KeySize is the AES-256 key size.
	KeySize = 32
	// IVSize is the CBC initialization vector size.
	IVSize = aes.BlockSize
	// SaltSize is the size of generated salts.
	SaltSize = 16
	// BlockSize is the AES block size.
	BlockSize = aes.BlockSize
	// Iterations is the PBKDF2 round count, matching the 7z key-derivation cost (2^18).
	Iterations = 1 << 18
)

// DeriveKey derives a 32-byte key from password and salt with PBKDF2-SHA256.
// The caller owns the returned slice and should clear it after use.
func DeriveKey(password string, salt []byte) ([]byte, error) {
	if password == "" {
		return nil, report.Wrap(report.CodeInvalidParameter, ErrEmptyPassword, "")
	}

	if len(salt) == 0 {
		return nil, report.Wrap(report.CodeInvalidParameter, ErrEmptySalt, "")
	}

	pw := []byte(password)
	defer clear(pw)

	return pbkdf2.Key(pw, salt, Iterations, KeySize, sha256.New), nil
}

// GenerateSalt returns SaltSize random bytes.
func GenerateSalt() ([]byte, error) {
	return random(SaltSize)
}

// GenerateIV returns IVSize random bytes.
func GenerateIV() ([]byte, error) {
	return random(IVSize)
}

func random(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, report.Wrap(report.CodeEncryption, err, "generating random bytes")
	}

	return buf, nil
}

// derivedKey is a PBKDF2 key held in a secret buffer.
type derivedKey struct {
	buf *secret.Buffer
}

func newDerivedKey(password string, salt []byte) (*derivedKey, error) {
	key, err := DeriveKey(password, salt)
	if err != nil {
		return nil, err
	}

	buf, err := secret.NewFromBytes(key)
	if err != nil {
		return nil, report.Wrap(report.CodeMemory, err, "allocating key storage")
	}

	return &derivedKey{buf: buf}, nil
}

// bytes returns the key or ErrClosed.
func (k *derivedKey) bytes() ([]byte, error) {
	if k == nil || k.buf == nil {
		return nil, ErrClosed
	}

	key, err := k.buf.Bytes()
	if err != nil {
		return nil, ErrClosed
	}

	return key, nil
}

// block builds the AES cipher for one operation.
func (k *derivedKey) block(code report.Code) (cipher.Block, error) {
	key, err := k.bytes()
	if err != nil {
		return nil, report.Wrap(code, err, "")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, report.Wrap(code, err, "creating AES cipher")
	}

	return block, nil
}

func (k *derivedKey) close() error {
	if k == nil || k.buf == nil {
		return nil
	}

	if err := k.buf.Close(); err != nil {
		return fmt.Errorf("releasing key: %w", err)
	}

	return nil
}
