package archive

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/idelchi/volpack/pkg/engine"
)

func TestHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	h := header{
		Flags:     flagEncrypted | flagSolid,
		Method:    engine.Zstd,
		Level:     LevelMaximum,
		DictSize:  32 << 20,
		ChunkSize: DefaultChunkSize,
		ArchiveID: uuid.New(),
	}
	copy(h.Salt[:], bytes.Repeat([]byte{0xAB}, 16))
	copy(h.IV[:], bytes.Repeat([]byte{0xCD}, 16))

	buf := h.marshal()
	require.Len(t, buf, headerSize)

	got, err := parseHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.True(t, got.encrypted())
	assert.True(t, got.solid())

	bad := bytes.Clone(buf)
	bad[0] = 'X'
	_, err = parseHeader(bad)
	require.ErrorIs(t, err, errBadMagic)

	bad = bytes.Clone(buf)
	bad[4] = 9
	_, err = parseHeader(bad)
	require.ErrorIs(t, err, errBadVersion)

	bad = bytes.Clone(buf)
	bad[7] = 12
	_, err = parseHeader(bad)
	require.ErrorIs(t, err, errBadHeader)
}

func TestTrailerBounds(t *testing.T) {
	t.Parallel()

	const size = 1_000

	good := trailer{IndexOffset: 900, IndexLen: size - trailerSize - 900}

	got, err := parseTrailer(good.marshal(), size)
	require.NoError(t, err)
	assert.Equal(t, good, got)

	tests := []struct {
		name string
		tr   trailer
	}{
		{name: "index inside header", tr: trailer{IndexOffset: 10, IndexLen: size - trailerSize - 10}},
		{name: "gap before trailer", tr: trailer{IndexOffset: 900, IndexLen: 10}},
		{name: "index too long", tr: trailer{IndexOffset: 0, IndexLen: size}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := parseTrailer(tt.tr.marshal(), size)
			require.ErrorIs(t, err, errBadTrailer)
		})
	}

	damaged := good.marshal()
	damaged[17] = 'X'
	_, err = parseTrailer(damaged, size)
	require.ErrorIs(t, err, errBadTrailer)
}

func TestFrames(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, writeFrame(&buf, engine.LZ4, 100, []byte("packed")))
	require.NoError(t, writeFrame(&buf, engine.Store, 3, []byte("raw")))

	stream := bytes.NewReader(buf.Bytes())

	f, err := readFrame(stream, 1<<10)
	require.NoError(t, err)
	assert.Equal(t, frame{Method: engine.LZ4, RawLen: 100, Data: []byte("packed")}, f)

	f, err = readFrame(stream, 1<<10)
	require.NoError(t, err)
	assert.Equal(t, frame{Method: engine.Store, RawLen: 3, Data: []byte("raw")}, f)

	_, err = readFrame(stream, 1<<10)
	require.ErrorIs(t, err, io.EOF)

	_, err = readFrame(bytes.NewReader(buf.Bytes()[:frameHeaderSize+2]), 1<<10)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = readFrame(bytes.NewReader(buf.Bytes()), 50)
	require.ErrorIs(t, err, errBadFrame)
}

type recordingHandler struct {
	opened []string
	closed []string
	data   map[string]*bytes.Buffer
}

func (h *recordingHandler) open(rec entryRecord) (io.Writer, error) {
	h.opened = append(h.opened, rec.Name)

	if h.data == nil {
		h.data = map[string]*bytes.Buffer{}
	}

	h.data[rec.Name] = &bytes.Buffer{}

	return h.data[rec.Name], nil
}

func (h *recordingHandler) close(rec entryRecord) error {
	h.closed = append(h.closed, rec.Name)

	return nil
}

func (h *recordingHandler) abort() {}

func digest(data string) []byte {
	sum := blake3.Sum256([]byte(data))

	return sum[:]
}

func TestEntrySinkSplitsStream(t *testing.T) {
	t.Parallel()

	entries := []entryRecord{
		{Name: "dir", Dir: true},
		{Name: "dir/a", Size: 5, Digest: digest("hello")},
		{Name: "dir/empty", Size: 0, Digest: digest("")},
		{Name: "dir/b", Size: 6, Digest: digest(" world")},
	}

	h := &recordingHandler{}
	sink := &entrySink{entries: entries, handler: h}

	// Block boundaries do not align with entry boundaries.
	require.NoError(t, sink.write([]byte("hel")))
	require.NoError(t, sink.write([]byte("lo wo")))
	require.NoError(t, sink.write([]byte("rld")))
	require.NoError(t, sink.finish())

	assert.Equal(t, []string{"dir", "dir/a", "dir/empty", "dir/b"}, h.opened)
	assert.Equal(t, h.opened, h.closed)
	assert.Equal(t, "hello", h.data["dir/a"].String())
	assert.Equal(t, " world", h.data["dir/b"].String())

	require.ErrorIs(t, sink.write([]byte("!")), errTrailingData)
}

func TestEntrySinkDetectsProblems(t *testing.T) {
	t.Parallel()

	entries := []entryRecord{{Name: "a", Size: 5, Digest: digest("hello")}}

	sink := &entrySink{entries: entries, handler: discardHandler{}}
	require.NoError(t, sink.write([]byte("hel")))
	require.ErrorIs(t, sink.finish(), errShortPayload)

	sink = &entrySink{entries: entries, handler: discardHandler{}}
	err := sink.write([]byte("jello"))
	require.ErrorIs(t, err, errDigest)

	var entryErr *entryError
	require.True(t, errors.As(err, &entryErr))
	assert.Equal(t, "a", entryErr.Name)
}

func TestSafeJoin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ok   bool
	}{
		{name: "a/b.txt", ok: true},
		{name: "a/../b.txt", ok: true},
		{name: "../b.txt", ok: false},
		{name: "a/../../b.txt", ok: false},
		{name: "/etc/passwd", ok: false},
		{name: "..", ok: false},
		{name: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := safeJoin("/out", tt.name)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, errUnsafeName)
			}
		})
	}
}

func TestAccountSplitsPackedBytes(t *testing.T) {
	t.Parallel()

	c := &creator{records: make([]entryRecord, 3)}

	c.account(block{
		data:  make([]byte, 100),
		spans: []span{{entry: 0, bytes: 50}, {entry: 1, bytes: 30}, {entry: 2, bytes: 20}},
	}, 33)

	assert.Equal(t, uint64(16), c.records[0].Packed)
	assert.Equal(t, uint64(9), c.records[1].Packed)
	assert.Equal(t, uint64(8), c.records[2].Packed)
}

func TestValidateDefaults(t *testing.T) {
	t.Parallel()

	opts := DefaultStreamOptions()
	opts.ChunkSize = 0

	s, err := opts.validate("a.vpk", []string{"in"}, LevelStore)
	require.NoError(t, err)
	assert.Equal(t, engine.Store, s.method)
	assert.Equal(t, DefaultChunkSize, s.ChunkSize)

	s, err = opts.validate("a.vpk", []string{"in"}, LevelNormal)
	require.NoError(t, err)
	assert.Equal(t, engine.LZMA2, s.method)

	_, err = opts.validate("", []string{"in"}, LevelNormal)
	require.Error(t, err)

	_, err = opts.validate("a.vpk", nil, LevelNormal)
	require.Error(t, err)
}
