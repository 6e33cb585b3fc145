package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// lzma2Engine writes raw LZMA2 chunk streams terminated by the end marker.
type lzma2Engine struct{}

func (lzma2Engine) Method() Method { return LZMA2 }

func matcherFor(level int) lzma.MatchAlgorithm {
	if level <= 3 {
		return lzma.HashTable4
	}

	return lzma.BinaryTree
}

func (lzma2Engine) Compress(src []byte, params Params) ([]byte, error) {
	var buf bytes.Buffer

	buf.Grow(len(src)/2 + 64)

	cfg := lzma.Writer2Config{
		DictCap: dictFor(params),
		Matcher: matcherFor(params.Level),
	}

	w, err := cfg.NewWriter2(&buf)
	if err != nil {
		return nil, fmt.Errorf("lzma2 writer: %w", err)
	}

	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("lzma2 compress: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lzma2 close: %w", err)
	}

	if buf.Len() >= len(src) {
		return nil, ErrIncompressible
	}

	return buf.Bytes(), nil
}

func (lzma2Engine) Decompress(src []byte, rawSize int, params Params) ([]byte, error) {
	cfg := lzma.Reader2Config{DictCap: dictFor(params)}

	r, err := cfg.NewReader2(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: lzma2 reader: %w", ErrCorrupt, err)
	}

	out := make([]byte, rawSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("%w: lzma2 decompress: %w", ErrCorrupt, err)
	}

	var probe [1]byte
	if n, err := r.Read(probe[:]); n != 0 || !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: lzma2 block longer than %d bytes", ErrCorrupt, rawSize)
	}

	return out, nil
}
