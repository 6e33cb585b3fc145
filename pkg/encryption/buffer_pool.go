package encryption

import (
	"sync"
)

const defaultBufferSize = 32 * 1024 // 32KB, a multiple of the AES block size

// bufferPool provides reusable scratch buffers for the streaming ciphers.
//
//nolint:gochecknoglobals
var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, defaultBufferSize)

		return &buf
	},
}
