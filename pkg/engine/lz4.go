package engine

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// lz4Engine uses block-mode LZ4. It ignores level and dictionary size.
type lz4Engine struct{}

func (lz4Engine) Method() Method { return LZ4 }

func (lz4Engine) Compress(src []byte, _ Params) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(src)))

	written, err := lz4.CompressBlock(src, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	// CompressBlock reports 0 for incompressible input.
	if written == 0 || written >= len(src) {
		return nil, ErrIncompressible
	}

	return destination[:written], nil
}

func (lz4Engine) Decompress(src []byte, rawSize int, _ Params) ([]byte, error) {
	destination := make([]byte, rawSize)

	read, err := lz4.UncompressBlock(src, destination)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4 decompress: %w", ErrCorrupt, err)
	}

	if read != rawSize {
		return nil, fmt.Errorf("%w: lz4 decompress: got %d bytes, expected %d", ErrCorrupt, read, rawSize)
	}

	return destination, nil
}
