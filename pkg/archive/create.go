package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/stream"
	"github.com/zeebo/blake3"

	"github.com/idelchi/volpack/internal/filter"
	"github.com/idelchi/volpack/pkg/encryption"
	"github.com/idelchi/volpack/pkg/engine"
	"github.com/idelchi/volpack/pkg/report"
	"github.com/idelchi/volpack/pkg/volume"
)

const (
	// minProbeSize is the smallest sample worth probing.
	minProbeSize = 4 << 10
	// probeRatio is the percentage a probe must shrink below to count as compressible.
	probeRatio = 98
)

// CreateArchive archives inputs at archivePath with default stream options
// overridden by opts, without progress reporting.
func (a *Archiver) CreateArchive(archivePath string, inputs []string, level Level, opts *CompressOptions) error {
	streamOpts := DefaultStreamOptions()
	if opts != nil {
		streamOpts.CompressOptions = *opts
	}

	return a.CreateArchiveStreaming(archivePath, inputs, level, &streamOpts, nil)
}

// CreateArchiveStreaming archives inputs at archivePath, reading at most
// ChunkSize bytes of input at a time. Options are validated before any output
// is created. A failure after output was created leaves the partial volumes
// in place.
func (a *Archiver) CreateArchiveStreaming(
	archivePath string,
	inputs []string,
	level Level,
	opts *StreamOptions,
	progress ProgressFunc,
) error {
	a.reporter.Clear()

	if opts == nil {
		defaults := DefaultStreamOptions()
		opts = &defaults
	}

	s, err := opts.validate(archivePath, inputs, level)
	if err != nil {
		return a.fail(err, report.Suggest("check the archive options"))
	}

	items, err := a.resolve(inputs, s.filter)
	if err != nil {
		return err
	}

	var total uint64

	for _, item := range items {
		if item.Info.Mode().IsRegular() {
			total += uint64(item.Info.Size()) //nolint:gosec // sizes of regular files are non-negative
		}
	}

	params := resolveParams(level, int64(total), s, a.cpus) //nolint:gosec // sum of file sizes fits

	eng, err := engine.New(s.method)
	if err != nil {
		return a.fail(report.Wrap(report.CodeInvalidParameter, err, ""))
	}

	c := &creator{
		archiver: a,
		log:      a.log.With("archive", archivePath),
		settings: s,
		level:    level,
		params:   params,
		engine:   eng,
		method:   s.method,
		items:    items,
		progress: tracker{fn: progress, total: total},
	}

	c.log.Debug("creating archive",
		"inputs", len(items),
		"bytes", total,
		"method", s.method,
		"level", level,
		"threads", params.Threads,
		"dict", params.DictSize,
		"chunk", s.ChunkSize,
		"split", s.SplitSize,
		"solid", s.Solid,
		"encrypted", s.Password != "",
	)

	return c.run(archivePath)
}

// resolve expands inputs and maps resolution failures into the taxonomy.
func (a *Archiver) resolve(inputs []string, flt *filter.Filter) ([]filter.Item, error) {
	items, scanned, err := filter.Resolve(a.fs, inputs, flt)
	if err != nil {
		var pathErr *fs.PathError

		switch {
		case errors.Is(err, filter.ErrNoMatch):
			return nil, a.fail(report.Wrap(report.CodeInvalidParameter, err, ""),
				report.Suggest("relax the include and exclude patterns"))
		case errors.As(err, &pathErr) && errors.Is(err, fs.ErrNotExist):
			return nil, a.fail(report.Wrap(report.CodeOpenFile, err, "input not found"),
				report.File(pathErr.Path), report.Suggest("check that the input path exists"))
		case errors.As(err, &pathErr):
			return nil, a.fail(report.Wrap(report.CodeIO, err, "reading inputs"), report.File(pathErr.Path))
		default:
			return nil, a.fail(report.Wrap(report.CodeIO, err, "reading inputs"))
		}
	}

	kept := items[:0]

	for _, item := range items {
		if !item.Info.IsDir() && !item.Info.Mode().IsRegular() {
			a.log.Warn("skipping special file", "path", item.Path, "mode", item.Info.Mode())

			continue
		}

		kept = append(kept, item)
	}

	a.log.Debug("resolved inputs", "scanned", scanned, "selected", len(kept))

	return kept, nil
}

// span is the part of one entry carried by a block.
type span struct {
	entry int
	bytes int
}

// block is a run of raw bytes submitted for compression.
type block struct {
	data  []byte
	spans []span
}

// creator holds the state of one archive creation.
type creator struct {
	archiver *Archiver
	log      *slog.Logger
	settings settings
	level    Level
	params   engine.Params
	engine   engine.Engine
	method   engine.Method
	items    []filter.Item
	progress tracker

	out     *volume.Writer
	payload io.Writer
	records []entryRecord
	blocks  uint64
	pending block
	probed  bool

	mu  sync.Mutex
	err error
}

func (c *creator) fail(err error, details ...report.Detail) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err == nil {
		c.err = c.archiver.fail(err, details...)
	}

	return c.err
}

func (c *creator) failed() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

// outputFailure maps a write-side error into the taxonomy.
func (c *creator) outputFailure(err error, message string) error {
	var pathErr *volume.PathError
	if errors.As(err, &pathErr) {
		code := report.CodeIO
		if pathErr.Op == "create" {
			code = report.CodeOpenFile
		}

		return c.fail(report.Wrap(code, err, message), report.File(pathErr.Path), report.At(pathErr.Offset))
	}

	return c.fail(report.Wrap(report.CodeIO, err, message))
}

func (c *creator) run(archivePath string) (err error) {
	out, err := volume.NewWriter(c.archiver.fs, archivePath, c.settings.SplitSize, c.archiver.log)
	if err != nil {
		return c.outputFailure(err, "creating archive")
	}

	c.out = out

	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = c.outputFailure(cerr, "closing archive")
		}
	}()

	hdr := header{
		Method:    c.method,
		Level:     c.level,
		DictSize:  uint32(c.params.DictSize),    //nolint:gosec // bounded by MaxDictSize
		ChunkSize: uint32(c.settings.ChunkSize), //nolint:gosec // bounded by MaxChunkSize
		ArchiveID: uuid.New(),
	}

	if c.settings.Solid {
		hdr.Flags |= flagSolid
	}

	var enc *encryption.EncryptionContext

	if c.settings.Password != "" {
		enc, err = encryption.NewEncryptionContext(c.settings.Password)
		if err != nil {
			return c.fail(err, report.File(archivePath))
		}
		defer enc.Close()

		hdr.Flags |= flagEncrypted
		copy(hdr.Salt[:], enc.Salt())
		copy(hdr.IV[:], enc.IV())
	}

	if _, err := out.Write(hdr.marshal()); err != nil {
		return c.outputFailure(err, "writing header")
	}

	c.payload = out

	var cbc *encryption.StreamWriter

	if enc != nil {
		cbc, err = enc.NewWriter(out)
		if err != nil {
			return c.fail(err, report.File(archivePath))
		}

		defer cbc.Discard()

		c.payload = cbc
	}

	if err := c.pipe(); err != nil {
		return err
	}

	c.progress.done()

	if cbc != nil {
		if err := cbc.Close(); err != nil {
			return c.outputFailure(err, "finishing encrypted payload")
		}
	}

	return c.finish(hdr, enc)
}

// pipe reads every input and pushes blocks through the ordered worker stream.
func (c *creator) pipe() error {
	workers := stream.New().WithMaxGoroutines(max(c.params.Threads, 1))

	c.records = make([]entryRecord, len(c.items))
	c.pending = c.newBlock()

	for i, item := range c.items {
		c.records[i] = entryRecord{
			Name:    item.Name,
			Dir:     item.Info.IsDir(),
			Mode:    uint32(item.Info.Mode()),
			ModTime: item.Info.ModTime().UnixNano(),
		}

		if item.Info.IsDir() {
			continue
		}

		if err := c.readFile(workers, i, item); err != nil {
			break
		}

		if !c.settings.Solid {
			c.submit(workers)
		}
	}

	if c.failed() == nil {
		c.submit(workers)
	}

	workers.Wait()

	return c.failed()
}

// readFile appends one input to the pending block, submitting full blocks.
func (c *creator) readFile(workers *stream.Stream, idx int, item filter.Item) error {
	file, err := c.archiver.fs.Open(item.Path)
	if err != nil {
		return c.fail(report.Wrap(report.CodeOpenFile, err, "opening input"), report.File(item.Path))
	}
	defer file.Close()

	hasher := blake3.New()
	size := item.Info.Size()
	remaining := size

	c.records[idx].Size = uint64(size)        //nolint:gosec // regular file sizes are non-negative
	c.progress.begin(item.Name, uint64(size)) //nolint:gosec // regular file sizes are non-negative

	for remaining > 0 {
		if err := c.failed(); err != nil {
			return err
		}

		free := cap(c.pending.data) - len(c.pending.data)
		n := int(min(remaining, int64(free)))
		start := len(c.pending.data)
		chunk := c.pending.data[start : start+n]

		if _, err := io.ReadFull(file, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = fmt.Errorf("file shrank while archiving: %w", err)
			}

			return c.fail(report.Wrap(report.CodeIO, err, "reading input"),
				report.File(item.Path), report.At(size-remaining))
		}

		_, _ = hasher.Write(chunk)

		c.pending.data = c.pending.data[:start+n]
		c.addSpan(idx, n)
		c.progress.add(n)

		remaining -= int64(n)

		if len(c.pending.data) == cap(c.pending.data) {
			c.submit(workers)
		}
	}

	c.records[idx].Digest = hasher.Sum(nil)

	return nil
}

func (c *creator) addSpan(idx, n int) {
	spans := c.pending.spans
	if len(spans) > 0 && spans[len(spans)-1].entry == idx {
		spans[len(spans)-1].bytes += n

		return
	}

	c.pending.spans = append(spans, span{entry: idx, bytes: n})
}

// newBlock allocates a block buffer no larger than the input still to be read.
func (c *creator) newBlock() block {
	size := min(uint64(c.settings.ChunkSize), c.progress.total-c.progress.processed) //nolint:gosec // positive chunk size

	return block{data: make([]byte, 0, size)}
}

// submit hands the pending block to a worker and starts a fresh one.
// Frames are written in submission order.
func (c *creator) submit(workers *stream.Stream) {
	if len(c.pending.data) == 0 {
		return
	}

	blk := c.pending
	c.pending = c.newBlock()

	if !c.probed {
		c.probed = true
		c.probe(blk.data)
	}

	method := c.method
	eng := c.engine
	params := c.params
	seq := c.blocks
	c.blocks++

	workers.Go(func() stream.Callback {
		tag := method

		packed, err := eng.Compress(blk.data, params)
		if errors.Is(err, engine.ErrIncompressible) {
			tag, packed, err = engine.Store, blk.data, nil
		}

		return func() {
			if c.failed() != nil {
				return
			}

			if err != nil {
				_ = c.fail(report.Wrap(report.CodeCompress, err, fmt.Sprintf("block %d", seq)),
					report.File(c.items[blk.spans[0].entry].Path))

				return
			}

			if err := writeFrame(c.payload, tag, len(blk.data), packed); err != nil {
				_ = c.outputFailure(err, "writing block")

				return
			}

			c.account(blk, len(packed))
		}
	})
}

// probe switches to store mode when a sample of the first block does not shrink.
func (c *creator) probe(data []byte) {
	if !c.settings.AutoDetectIncompressible || c.method == engine.Store {
		return
	}

	sample := data[:min(len(data), ProbeSize)]
	if len(sample) < minProbeSize {
		return
	}

	lz4, err := engine.New(engine.LZ4)
	if err != nil {
		return
	}

	packed, err := lz4.Compress(sample, engine.Params{Level: 1})
	if err == nil && len(packed)*100 < len(sample)*probeRatio {
		return
	}

	c.log.Info("input looks incompressible, storing blocks", "sample", len(sample))

	store, err := engine.New(engine.Store)
	if err != nil {
		return
	}

	c.method = engine.Store
	c.engine = store
}

// account splits a block's packed bytes across the entries it carries, in
// proportion to their raw bytes. The last span takes the remainder.
func (c *creator) account(blk block, packed int) {
	remaining := uint64(packed) //nolint:gosec // frame lengths are non-negative
	raw := uint64(len(blk.data))

	for i, sp := range blk.spans {
		share := uint64(packed) * uint64(sp.bytes) / raw //nolint:gosec // non-negative lengths
		if i == len(blk.spans)-1 {
			share = remaining
		}

		c.records[sp.entry].Packed += share
		remaining -= share
	}
}

// finish writes the index and trailer after the payload.
func (c *creator) finish(hdr header, enc *encryption.EncryptionContext) error {
	idx := index{
		Entries:   c.records,
		TotalSize: c.progress.total,
		Blocks:    c.blocks,
	}

	encoded, err := cbor.Marshal(idx)
	if err != nil {
		return c.fail(report.Wrap(report.CodeCompress, err, "encoding index"))
	}

	if enc != nil {
		encoded, err = enc.Seal(encoded, hdr.ArchiveID[:])
		if err != nil {
			return c.fail(err)
		}
	}

	tr := trailer{
		IndexOffset: uint64(c.out.Offset()), //nolint:gosec // offsets are non-negative
		IndexLen:    uint64(len(encoded)),
	}

	if _, err := c.out.Write(encoded); err != nil {
		return c.outputFailure(err, "writing index")
	}

	if _, err := c.out.Write(tr.marshal()); err != nil {
		return c.outputFailure(err, "writing trailer")
	}

	c.log.Debug("archive written",
		"entries", len(c.records),
		"blocks", c.blocks,
		"bytes", c.out.Offset(),
		"volumes", len(c.out.Paths()),
	)

	return nil
}
