package engine

import "fmt"

type storeEngine struct{}

func (storeEngine) Method() Method { return Store }

func (storeEngine) Compress(src []byte, _ Params) ([]byte, error) {
	return src, nil
}

func (storeEngine) Decompress(src []byte, rawSize int, _ Params) ([]byte, error) {
	if len(src) != rawSize {
		return nil, fmt.Errorf("%w: stored block is %d bytes, expected %d", ErrCorrupt, len(src), rawSize)
	}

	return src, nil
}
