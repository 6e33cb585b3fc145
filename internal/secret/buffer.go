// Package secret holds key material in memory that is zeroed on Close.
//
// On Linux the bytes live in an anonymous mmap region outside the Go heap,
// locked against swap when the memlock limit allows and excluded from core
// dumps. Elsewhere they live on the heap and are still zeroed on Close.
package secret

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned when reading from a buffer after Close.
var ErrClosed = errors.New("secret: buffer closed")

// Buffer is a fixed-size region of secret bytes.
// A Buffer must not be copied after creation.
type Buffer struct {
	mu      sync.Mutex
	data    []byte
	release func([]byte) error
	closed  bool
}

// New allocates a zero-filled buffer of size bytes.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}

	data, release, err := allocate(size)
	if err != nil {
		return nil, err
	}

	return &Buffer{data: data, release: release}, nil
}

// NewFromBytes copies source into a new buffer and zeroes source, so the
// caller's slice no longer holds the secret.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, errors.New("secret: cannot create buffer from empty source")
	}

	buffer, err := New(len(source))
	if err != nil {
		clear(source)

		return nil, err
	}

	copy(buffer.data, source)
	clear(source)

	return buffer, nil
}

// Bytes returns the secret bytes. The slice aliases the buffer and must not
// be retained past Close.
func (b *Buffer) Bytes() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	return b.data, nil
}

// Close zeroes the contents and releases the memory. It is idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	clear(b.data)

	err := b.release(b.data)
	b.data = nil

	return err
}
