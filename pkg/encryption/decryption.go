package encryption

// DecryptionContext holds a key derived from a password and a known salt.
// The IV is supplied with each ciphertext. It is not safe for concurrent use.
type DecryptionContext struct {
	key *derivedKey
}

// NewDecryptionContext derives the key for password and salt.
func NewDecryptionContext(password string, salt []byte) (*DecryptionContext, error) {
	if password == "" {
		return nil, invalidParameter(ErrEmptyPassword, "")
	}

	if len(salt) == 0 {
		return nil, invalidParameter(ErrEmptySalt, "")
	}

	key, err := newDerivedKey(password, salt)
	if err != nil {
		return nil, err
	}

	return &DecryptionContext{key: key}, nil
}

// Decrypt decrypts ciphertext that was produced under iv.
func (d *DecryptionContext) Decrypt(ciphertext, iv []byte) ([]byte, error) {
	return decryptCBC(d.key, ciphertext, iv)
}

// Close zeroes the key. It is idempotent.
func (d *DecryptionContext) Close() error {
	if d == nil {
		return nil
	}

	err := d.key.close()
	d.key = nil

	return err
}

// VerifyPassword reports whether password decrypts sample under salt and iv.
// A wrong password and corrupted data both fail with a decryption error.
func VerifyPassword(password string, sample, salt, iv []byte) error {
	if len(iv) != IVSize {
		return invalidParameter(ErrInvalidLength, "IV must be 16 bytes")
	}

	ctx, err := NewDecryptionContext(password, salt)
	if err != nil {
		return err
	}
	defer ctx.Close()

	plaintext, err := ctx.Decrypt(sample, iv)
	clear(plaintext)

	return err
}
