package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/idelchi/volpack/pkg/engine"
)

// Container layout of the logical stream (all volumes concatenated):
//
//	header  | payload frames (CBC encrypted as one stream when encrypted) | index | trailer
const (
	headerMagic  = "VPAK"
	trailerMagic = "VEND"

	formatVersion = byte(1)

	headerSize      = 64
	trailerSize     = 24
	frameHeaderSize = 9

	flagEncrypted = 0x01
	flagSolid     = 0x02
)

var (
	errBadMagic   = errors.New("not a volpack archive")
	errBadVersion = errors.New("unsupported archive version")
	errBadTrailer = errors.New("missing or damaged trailer")
	errBadHeader  = errors.New("damaged header")
	errBadFrame   = errors.New("damaged block frame")
)

// header is the fixed plaintext preamble of an archive.
type header struct {
	Flags     byte
	Method    engine.Method
	Level     Level
	DictSize  uint32
	ChunkSize uint32
	ArchiveID uuid.UUID
	Salt      [16]byte
	IV        [16]byte
}

func (h header) encrypted() bool { return h.Flags&flagEncrypted != 0 }

func (h header) solid() bool { return h.Flags&flagSolid != 0 }

func (h header) marshal() []byte {
	buf := make([]byte, headerSize)

	copy(buf, headerMagic)
	buf[4] = formatVersion
	buf[5] = h.Flags
	buf[6] = byte(h.Method)
	buf[7] = byte(h.Level)
	binary.BigEndian.PutUint32(buf[8:], h.DictSize)
	binary.BigEndian.PutUint32(buf[12:], h.ChunkSize)
	copy(buf[16:32], h.ArchiveID[:])
	copy(buf[32:48], h.Salt[:])
	copy(buf[48:64], h.IV[:])

	return buf
}

func parseHeader(buf []byte) (header, error) {
	var h header

	if len(buf) != headerSize || !bytes.Equal(buf[:4], []byte(headerMagic)) {
		return h, errBadMagic
	}

	if buf[4] != formatVersion {
		return h, fmt.Errorf("%w: %d", errBadVersion, buf[4])
	}

	h.Flags = buf[5]
	h.Method = engine.Method(buf[6])
	h.Level = Level(buf[7])
	h.DictSize = binary.BigEndian.Uint32(buf[8:])
	h.ChunkSize = binary.BigEndian.Uint32(buf[12:])
	copy(h.ArchiveID[:], buf[16:32])
	copy(h.Salt[:], buf[32:48])
	copy(h.IV[:], buf[48:64])

	if !h.Level.Valid() {
		return h, fmt.Errorf("%w: level %d", errBadHeader, h.Level)
	}

	if h.ChunkSize < MinChunkSize || h.ChunkSize > MaxChunkSize {
		return h, fmt.Errorf("%w: chunk size %d", errBadHeader, h.ChunkSize)
	}

	return h, nil
}

// trailer locates the index.
type trailer struct {
	IndexOffset uint64
	IndexLen    uint64
}

func (t trailer) marshal() []byte {
	buf := make([]byte, trailerSize)

	binary.BigEndian.PutUint64(buf[0:], t.IndexOffset)
	binary.BigEndian.PutUint64(buf[8:], t.IndexLen)
	copy(buf[16:20], trailerMagic)

	return buf
}

func parseTrailer(buf []byte, streamSize int64) (trailer, error) {
	var t trailer

	if len(buf) != trailerSize || !bytes.Equal(buf[16:20], []byte(trailerMagic)) {
		return t, errBadTrailer
	}

	t.IndexOffset = binary.BigEndian.Uint64(buf[0:])
	t.IndexLen = binary.BigEndian.Uint64(buf[8:])

	end := uint64(streamSize) - trailerSize //nolint:gosec // caller checked streamSize >= headerSize+trailerSize
	if t.IndexOffset < headerSize || t.IndexLen > end || t.IndexOffset != end-t.IndexLen {
		return t, fmt.Errorf("%w: index at %d+%d does not end at %d", errBadTrailer, t.IndexOffset, t.IndexLen, end)
	}

	return t, nil
}

// frame is one compressed block of the payload.
type frame struct {
	Method engine.Method
	RawLen uint32
	Data   []byte
}

func writeFrame(w io.Writer, method engine.Method, rawLen int, data []byte) error {
	var hdr [frameHeaderSize]byte

	hdr[0] = byte(method)
	binary.BigEndian.PutUint32(hdr[1:], uint32(rawLen))    //nolint:gosec // bounded by MaxChunkSize
	binary.BigEndian.PutUint32(hdr[5:], uint32(len(data))) //nolint:gosec // bounded by MaxChunkSize

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	_, err := w.Write(data)

	return err
}

// readFrame returns io.EOF at a clean frame boundary and
// io.ErrUnexpectedEOF inside a frame.
func readFrame(r io.Reader, maxLen uint32) (frame, error) {
	var hdr [frameHeaderSize]byte

	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return frame{}, err
	}

	f := frame{
		Method: engine.Method(hdr[0]),
		RawLen: binary.BigEndian.Uint32(hdr[1:]),
	}

	packed := binary.BigEndian.Uint32(hdr[5:])
	if f.RawLen > maxLen || packed > maxLen {
		return frame{}, fmt.Errorf("%w: %d/%d bytes exceeds chunk size %d", errBadFrame, f.RawLen, packed, maxLen)
	}

	f.Data = make([]byte, packed)
	if _, err := io.ReadFull(r, f.Data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return frame{}, err
	}

	return f, nil
}

// index is the CBOR-encoded table of entries.
type index struct {
	Entries   []entryRecord `cbor:"1,keyasint"`
	TotalSize uint64        `cbor:"2,keyasint"`
	Blocks    uint64        `cbor:"3,keyasint"`
}

type entryRecord struct {
	Name    string `cbor:"1,keyasint"`
	Size    uint64 `cbor:"2,keyasint"`
	Packed  uint64 `cbor:"3,keyasint"`
	Dir     bool   `cbor:"4,keyasint,omitempty"`
	Mode    uint32 `cbor:"5,keyasint"`
	ModTime int64  `cbor:"6,keyasint"`
	Digest  []byte `cbor:"7,keyasint,omitempty"`
}
