package engine

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdEngine caches one encoder per parameter set. zstd encoders and
// decoders are safe for concurrent use.
type zstdEngine struct{}

type zstdKey struct {
	level   zstd.EncoderLevel
	window  int
	threads int
}

//nolint:gochecknoglobals
var (
	zstdEncoders sync.Map

	zstdDecoderOnce sync.Once
	zstdDecoder     *zstd.Decoder
	errZstdDecoder  error
)

const maxZstdWindow = 1 << 27

func (zstdEngine) Method() Method { return Zstd }

func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 2:
		return zstd.SpeedFastest
	case level <= 5:
		return zstd.SpeedDefault
	case level <= 7:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// zstdWindow rounds the dictionary down to a power of two the encoder accepts.
func zstdWindow(params Params) int {
	size := min(dictFor(params), maxZstdWindow)

	return 1 << (bits.Len(uint(size)) - 1)
}

func encoderFor(params Params) (*zstd.Encoder, error) {
	key := zstdKey{
		level:   zstdLevel(params.Level),
		window:  zstdWindow(params),
		threads: max(params.Threads, 1),
	}

	if cached, ok := zstdEncoders.Load(key); ok {
		enc, _ := cached.(*zstd.Encoder) //nolint:errcheck // map only holds encoders

		return enc, nil
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(key.level),
		zstd.WithWindowSize(key.window),
		zstd.WithEncoderConcurrency(key.threads),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}

	actual, loaded := zstdEncoders.LoadOrStore(key, enc)
	if loaded {
		_ = enc.Close()
	}

	stored, _ := actual.(*zstd.Encoder) //nolint:errcheck // map only holds encoders

	return stored, nil
}

func decoder() (*zstd.Decoder, error) {
	zstdDecoderOnce.Do(func() {
		zstdDecoder, errZstdDecoder = zstd.NewReader(nil)
	})

	if errZstdDecoder != nil {
		return nil, fmt.Errorf("zstd decoder: %w", errZstdDecoder)
	}

	return zstdDecoder, nil
}

func (zstdEngine) Compress(src []byte, params Params) ([]byte, error) {
	enc, err := encoderFor(params)
	if err != nil {
		return nil, err
	}

	compressed := enc.EncodeAll(src, nil)
	if len(compressed) >= len(src) {
		return nil, ErrIncompressible
	}

	return compressed, nil
}

func (zstdEngine) Decompress(src []byte, rawSize int, _ Params) ([]byte, error) {
	dec, err := decoder()
	if err != nil {
		return nil, err
	}

	result, err := dec.DecodeAll(src, make([]byte, 0, rawSize))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decompress: %w", ErrCorrupt, err)
	}

	if len(result) != rawSize {
		return nil, fmt.Errorf("%w: zstd decompress: got %d bytes, expected %d", ErrCorrupt, len(result), rawSize)
	}

	return result, nil
}
