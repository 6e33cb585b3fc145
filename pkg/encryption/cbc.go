package encryption

import (
	"bufio"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
)

// NewWriter returns a writer that CBC-encrypts everything written to it into w
// under the context's key and IV, as one chain. Close writes the final padded
// block and does not close w. The output equals Encrypt of the concatenated input.
func (c *EncryptionContext) NewWriter(w io.Writer) (*StreamWriter, error) {
	block, err := c.key.block(codeEncryption)
	if err != nil {
		return nil, err
	}

	return &StreamWriter{
		w:    w,
		mode: cipher.NewCBCEncrypter(block, c.iv[:]),
	}, nil
}

// StreamWriter encrypts complete blocks as they arrive and keeps the partial
// plaintext tail until Close or Discard.
type StreamWriter struct {
	w       io.Writer
	mode    cipher.BlockMode
	pending []byte
	closed  bool
}

func (cw *StreamWriter) Write(data []byte) (int, error) {
	if cw.closed {
		return 0, ErrClosed
	}

	bufp, _ := bufferPool.Get().(*[]byte) //nolint:errcheck // pool only holds *[]byte
	defer bufferPool.Put(bufp)
	defer clear(*bufp)

	scratch := *bufp
	written := 0

	for written < len(data) {
		// Fill scratch with pending tail plus as much new data as fits.
		n := copy(scratch, cw.pending)
		taken := copy(scratch[n:], data[written:])
		n += taken

		full := n - n%BlockSize
		if full > 0 {
			cw.mode.CryptBlocks(scratch[:full], scratch[:full])

			if _, err := cw.w.Write(scratch[:full]); err != nil {
				return written, fmt.Errorf("writing encrypted block: %w", err)
			}
		}

		cw.pending = append(cw.pending[:0], scratch[full:n]...)
		written += taken
	}

	return written, nil
}

// Close encrypts the padded remainder. Aligned input gains a full pad block.
func (cw *StreamWriter) Close() error {
	if cw.closed {
		return nil
	}

	cw.closed = true

	padded := pkcs7Pad(cw.pending, BlockSize)
	cw.wipe()

	cw.mode.CryptBlocks(padded, padded)

	if _, err := cw.w.Write(padded); err != nil {
		return fmt.Errorf("writing final encrypted block: %w", err)
	}

	return nil
}

// Discard zeroes the buffered plaintext tail without writing it. Later
// writes fail with ErrClosed. Discard after Close is a no-op.
func (cw *StreamWriter) Discard() {
	cw.closed = true
	cw.wipe()
}

func (cw *StreamWriter) wipe() {
	clear(cw.pending[:cap(cw.pending)])
	cw.pending = nil
}

// NewReader returns a reader that CBC-decrypts r under iv and strips the
// trailing padding at end of stream. A bad pad surfaces as a decryption error
// from the final Read.
func (d *DecryptionContext) NewReader(r io.Reader, iv []byte) (*StreamReader, error) {
	if len(iv) != IVSize {
		return nil, invalidParameter(ErrInvalidLength, "IV must be 16 bytes")
	}

	block, err := d.key.block(codeDecryption)
	if err != nil {
		return nil, err
	}

	return &StreamReader{
		src:  bufio.NewReaderSize(r, defaultBufferSize),
		mode: cipher.NewCBCDecrypter(block, iv),
	}, nil
}

// StreamReader decrypts ahead but always holds back the last full block, which
// may carry the padding. Consumed plaintext is zeroed; Close zeroes the rest.
type StreamReader struct {
	src     io.Reader
	mode    cipher.BlockMode
	pending []byte
	outBuf  []byte
	out     []byte
	err     error
}

func (cr *StreamReader) Read(p []byte) (int, error) {
	for len(cr.out) == 0 {
		if cr.err != nil {
			return 0, cr.err
		}

		cr.err = cr.fill()
	}

	n := copy(p, cr.out)
	cr.out = cr.out[n:]

	if len(cr.out) == 0 {
		clear(cr.outBuf)
	}

	return n, nil
}

// Close zeroes buffered plaintext. Further reads fail with ErrClosed.
func (cr *StreamReader) Close() error {
	clear(cr.outBuf[:cap(cr.outBuf)])
	clear(cr.pending[:cap(cr.pending)])

	cr.out, cr.outBuf, cr.pending = nil, nil, nil
	cr.err = ErrClosed

	return nil
}

func (cr *StreamReader) fill() error {
	bufp, _ := bufferPool.Get().(*[]byte) //nolint:errcheck // pool only holds *[]byte
	defer bufferPool.Put(bufp)

	n, err := cr.src.Read(*bufp)
	cr.pending = append(cr.pending, (*bufp)[:n]...)

	if errors.Is(err, io.EOF) {
		return cr.finish()
	}

	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	ready := len(cr.pending) - len(cr.pending)%BlockSize - BlockSize
	if ready <= 0 {
		return nil
	}

	cr.mode.CryptBlocks(cr.pending[:ready], cr.pending[:ready])
	cr.outBuf = append(cr.outBuf[:0], cr.pending[:ready]...)
	cr.out = cr.outBuf
	clear(cr.pending[:ready])
	cr.pending = append(cr.pending[:0], cr.pending[ready:]...)

	return nil
}

// finish decrypts what is left and validates the padding.
func (cr *StreamReader) finish() error {
	if len(cr.pending) == 0 || len(cr.pending)%BlockSize != 0 {
		return invalidParameter(ErrInvalidBlockSize, "truncated ciphertext stream")
	}

	cr.mode.CryptBlocks(cr.pending, cr.pending)

	unpadded, err := pkcs7Unpad(cr.pending)
	if err != nil {
		clear(cr.pending)

		return decryptionFailed(err)
	}

	cr.outBuf = append(cr.outBuf[:0], unpadded...)
	cr.out = cr.outBuf
	clear(cr.pending)
	cr.pending = nil

	return io.EOF
}
