package encryption

import "crypto/cipher"

// EncryptionContext encrypts with a key derived from a password and a random
// salt, under a fixed IV. It is not safe for concurrent use.
// Close zeroes the key, IV and salt; a closed context fails every operation.
type EncryptionContext struct {
	key  *derivedKey
	iv   [IVSize]byte
	salt [SaltSize]byte
}

// NewEncryptionContext derives a key from password with a fresh random salt and IV.
func NewEncryptionContext(password string) (*EncryptionContext, error) {
	if password == "" {
		return nil, invalidParameter(ErrEmptyPassword, "")
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}

	iv, err := GenerateIV()
	if err != nil {
		return nil, err
	}

	return NewEncryptionContextWithSaltIV(password, salt, iv)
}

// NewEncryptionContextWithSaltIV derives a key from password and salt and uses iv.
// Both salt and iv must be exactly 16 bytes.
func NewEncryptionContextWithSaltIV(password string, salt, iv []byte) (*EncryptionContext, error) {
	if len(salt) != SaltSize {
		return nil, invalidParameter(ErrInvalidLength, "salt must be 16 bytes")
	}

	if len(iv) != IVSize {
		return nil, invalidParameter(ErrInvalidLength, "IV must be 16 bytes")
	}

	key, err := newDerivedKey(password, salt)
	if err != nil {
		return nil, err
	}

	ctx := &EncryptionContext{key: key}
	copy(ctx.salt[:], salt)
	copy(ctx.iv[:], iv)

	return ctx, nil
}

// Salt returns a copy of the salt.
func (c *EncryptionContext) Salt() []byte {
	return append([]byte(nil), c.salt[:]...)
}

// IV returns a copy of the IV.
func (c *EncryptionContext) IV() []byte {
	return append([]byte(nil), c.iv[:]...)
}

// Encrypt returns the CBC/PKCS#7 ciphertext of plaintext.
// The result is always a multiple of 16 bytes and strictly longer than plaintext.
func (c *EncryptionContext) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := c.key.block(codeEncryption)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, BlockSize)
	defer clear(padded)

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, c.iv[:]).CryptBlocks(ciphertext, padded)

	return ciphertext, nil
}

// Decrypt reverses Encrypt with the context's own key and IV.
func (c *EncryptionContext) Decrypt(ciphertext []byte) ([]byte, error) {
	return decryptCBC(c.key, ciphertext, c.iv[:])
}

// Close zeroes all secret state. It is idempotent.
func (c *EncryptionContext) Close() error {
	if c == nil {
		return nil
	}

	clear(c.iv[:])
	clear(c.salt[:])

	err := c.key.close()
	c.key = nil

	return err
}

// decryptCBC decrypts and unpads ciphertext under key and iv.
func decryptCBC(key *derivedKey, ciphertext, iv []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, invalidParameter(ErrInvalidLength, "IV must be 16 bytes")
	}

	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, invalidParameter(ErrInvalidBlockSize, "")
	}

	block, err := key.block(codeDecryption)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext)
	if err != nil {
		clear(plaintext)

		return nil, decryptionFailed(err)
	}

	return unpadded, nil
}
