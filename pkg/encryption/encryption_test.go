package encryption_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/volpack/pkg/encryption"
	"github.com/idelchi/volpack/pkg/report"
)

const evidence = "This is sensitive forensic evidence data"

func newContext(t *testing.T, password string) *encryption.EncryptionContext {
	t.Helper()

	ctx, err := encryption.NewEncryptionContext(password)
	require.NoError(t, err)

	t.Cleanup(func() { _ = ctx.Close() })

	return ctx
}

func TestEncryptEvidenceScenario(t *testing.T) {
	t.Parallel()

	ctx := newContext(t, "DirectEncryptionPassword")

	ciphertext, err := ctx.Encrypt([]byte(evidence))
	require.NoError(t, err)
	assert.Len(t, ciphertext, 48)

	plaintext, err := ctx.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, evidence, string(plaintext))
	assert.Len(t, plaintext, len(evidence))
}

func TestCiphertextLength(t *testing.T) {
	t.Parallel()

	ctx := newContext(t, "length-password")

	for size := range 70 {
		plaintext := bytes.Repeat([]byte{'x'}, size)

		ciphertext, err := ctx.Encrypt(plaintext)
		require.NoError(t, err)

		assert.Zero(t, len(ciphertext)%encryption.BlockSize, "size %d", size)
		assert.Greater(t, len(ciphertext), size, "size %d", size)
		assert.Equal(t, size+(encryption.BlockSize-size%encryption.BlockSize), len(ciphertext), "size %d", size)

		roundTrip, err := ctx.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, plaintext, roundTrip)
	}
}

func TestWrongPasswordFails(t *testing.T) {
	t.Parallel()

	ctx := newContext(t, "password-one")

	ciphertext, err := ctx.Encrypt([]byte(evidence))
	require.NoError(t, err)

	dec, err := encryption.NewDecryptionContext("password-two", ctx.Salt())
	require.NoError(t, err)

	defer dec.Close()

	_, err = dec.Decrypt(ciphertext, ctx.IV())
	require.ErrorIs(t, err, report.ErrDecryption)

	err = encryption.VerifyPassword("password-two", ciphertext, ctx.Salt(), ctx.IV())
	require.ErrorIs(t, err, report.ErrDecryption)

	require.NoError(t, encryption.VerifyPassword("password-one", ciphertext, ctx.Salt(), ctx.IV()))
}

func TestDecryptionContextMatchesSalt(t *testing.T) {
	t.Parallel()

	salt := bytes.Repeat([]byte{7}, encryption.SaltSize)
	iv := bytes.Repeat([]byte{9}, encryption.IVSize)

	ctx, err := encryption.NewEncryptionContextWithSaltIV("shared", salt, iv)
	require.NoError(t, err)

	defer ctx.Close()

	assert.Equal(t, salt, ctx.Salt())
	assert.Equal(t, iv, ctx.IV())

	ciphertext, err := ctx.Encrypt([]byte("block aligned!!!"))
	require.NoError(t, err)
	assert.Len(t, ciphertext, 32)

	dec, err := encryption.NewDecryptionContext("shared", salt)
	require.NoError(t, err)

	defer dec.Close()

	plaintext, err := dec.Decrypt(ciphertext, iv)
	require.NoError(t, err)
	assert.Equal(t, "block aligned!!!", string(plaintext))
}

func TestInvalidParameters(t *testing.T) {
	t.Parallel()

	_, err := encryption.NewEncryptionContext("")
	require.ErrorIs(t, err, report.ErrInvalidParameter)
	require.ErrorIs(t, err, encryption.ErrEmptyPassword)

	_, err = encryption.NewDecryptionContext("", []byte("salt"))
	require.ErrorIs(t, err, report.ErrInvalidParameter)

	_, err = encryption.NewDecryptionContext("pw", nil)
	require.ErrorIs(t, err, encryption.ErrEmptySalt)

	_, err = encryption.NewEncryptionContextWithSaltIV("pw", []byte("short"), make([]byte, 16))
	require.ErrorIs(t, err, report.ErrInvalidParameter)

	_, err = encryption.DeriveKey("", []byte("salt"))
	require.ErrorIs(t, err, report.ErrInvalidParameter)

	err = encryption.VerifyPassword("pw", make([]byte, 16), make([]byte, 16), make([]byte, 8))
	require.ErrorIs(t, err, report.ErrInvalidParameter)

	ctx := newContext(t, "misaligned")

	for _, size := range []int{0, 1, 15, 17, 33} {
		_, err = ctx.Decrypt(make([]byte, size))
		require.ErrorIs(t, err, report.ErrInvalidParameter, "size %d", size)
		require.ErrorIs(t, err, encryption.ErrInvalidBlockSize, "size %d", size)
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	t.Parallel()

	salt := []byte("0123456789abcdef")

	first, err := encryption.DeriveKey("pw", salt)
	require.NoError(t, err)

	second, err := encryption.DeriveKey("pw", salt)
	require.NoError(t, err)

	other, err := encryption.DeriveKey("pw", []byte("fedcba9876543210"))
	require.NoError(t, err)

	assert.Len(t, first, encryption.KeySize)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)

	saltA, err := encryption.GenerateSalt()
	require.NoError(t, err)

	saltB, err := encryption.GenerateSalt()
	require.NoError(t, err)

	assert.Len(t, saltA, encryption.SaltSize)
	assert.NotEqual(t, saltA, saltB)

	iv, err := encryption.GenerateIV()
	require.NoError(t, err)
	assert.Len(t, iv, encryption.IVSize)
}

func TestClosedContextFails(t *testing.T) {
	t.Parallel()

	ctx, err := encryption.NewEncryptionContext("closing")
	require.NoError(t, err)

	require.NoError(t, ctx.Close())
	require.NoError(t, ctx.Close())

	assert.Equal(t, make([]byte, encryption.SaltSize), ctx.Salt())
	assert.Equal(t, make([]byte, encryption.IVSize), ctx.IV())

	_, err = ctx.Encrypt([]byte("data"))
	require.ErrorIs(t, err, encryption.ErrClosed)
	require.ErrorIs(t, err, report.ErrEncryption)

	_, err = ctx.NewWriter(io.Discard)
	require.ErrorIs(t, err, encryption.ErrClosed)
}

func TestStreamMatchesOneShot(t *testing.T) {
	t.Parallel()

	ctx := newContext(t, "stream")

	payload := make([]byte, 100_003)
	for i := range payload {
		payload[i] = byte(i * 31)
	}

	oneShot, err := ctx.Encrypt(payload)
	require.NoError(t, err)

	var sink bytes.Buffer

	w, err := ctx.NewWriter(&sink)
	require.NoError(t, err)

	// Uneven writes exercise the partial-block carry.
	for offset := 0; offset < len(payload); {
		n := min(1+offset%7919, len(payload)-offset)

		_, err := w.Write(payload[offset : offset+n])
		require.NoError(t, err)

		offset += n
	}

	require.NoError(t, w.Close())
	assert.Equal(t, oneShot, sink.Bytes())

	dec, err := encryption.NewDecryptionContext("stream", ctx.Salt())
	require.NoError(t, err)

	defer dec.Close()

	r, err := dec.NewReader(bytes.NewReader(sink.Bytes()), ctx.IV())
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestStreamReaderErrors(t *testing.T) {
	t.Parallel()

	ctx := newContext(t, "right")

	ciphertext, err := ctx.Encrypt(bytes.Repeat([]byte("z"), 4096))
	require.NoError(t, err)

	wrong, err := encryption.NewDecryptionContext("wrong", ctx.Salt())
	require.NoError(t, err)

	defer wrong.Close()

	r, err := wrong.NewReader(bytes.NewReader(ciphertext), ctx.IV())
	require.NoError(t, err)

	_, err = io.ReadAll(r)
	require.ErrorIs(t, err, report.ErrDecryption)

	right, err := encryption.NewDecryptionContext("right", ctx.Salt())
	require.NoError(t, err)

	defer right.Close()

	r, err = right.NewReader(bytes.NewReader(ciphertext[:len(ciphertext)-3]), ctx.IV())
	require.NoError(t, err)

	_, err = io.ReadAll(r)
	require.ErrorIs(t, err, encryption.ErrInvalidBlockSize)
}

func TestSealOpen(t *testing.T) {
	t.Parallel()

	ctx := newContext(t, "index")
	ad := []byte("archive-id")

	sealed, err := ctx.Seal([]byte("entry table"), ad)
	require.NoError(t, err)

	opened, err := ctx.Open(sealed, ad)
	require.NoError(t, err)
	assert.Equal(t, "entry table", string(opened))

	dec, err := encryption.NewDecryptionContext("index", ctx.Salt())
	require.NoError(t, err)

	defer dec.Close()

	opened, err = dec.Open(sealed, ad)
	require.NoError(t, err)
	assert.Equal(t, "entry table", string(opened))

	_, err = dec.Open(sealed, []byte("other-id"))
	require.ErrorIs(t, err, report.ErrDecryption)

	wrong, err := encryption.NewDecryptionContext("not-index", ctx.Salt())
	require.NoError(t, err)

	defer wrong.Close()

	_, err = wrong.Open(sealed, ad)
	require.ErrorIs(t, err, encryption.ErrAuthentication)
}
