package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/stream"
	"github.com/spf13/afero"
	"github.com/zeebo/blake3"

	"github.com/idelchi/volpack/pkg/encryption"
	"github.com/idelchi/volpack/pkg/engine"
	"github.com/idelchi/volpack/pkg/report"
)

// ExtractOptions control extraction.
type ExtractOptions struct {
	// Password decrypts encrypted archives.
	Password string
	// Files limits extraction to these entries and directories. Empty extracts everything.
	Files []string
	// NumThreads is the number of blocks decoded concurrently. 0 selects automatically.
	NumThreads int
}

var (
	errTrailingData = errors.New("payload holds more data than the index describes")
	errShortPayload = errors.New("payload ends before the last entry")
	errUnsafeName   = errors.New("entry name escapes the output directory")
)

// Extract extracts an unencrypted archive into outDir.
func (a *Archiver) Extract(archivePath, outDir string) error {
	return a.ExtractStreaming(archivePath, outDir, nil, nil)
}

// ExtractWithPassword extracts archivePath into outDir, reporting progress.
func (a *Archiver) ExtractWithPassword(archivePath, outDir, password string, progress BytesProgressFunc) error {
	return a.ExtractStreaming(archivePath, outDir, &ExtractOptions{Password: password}, progress)
}

// ExtractFiles extracts only the named entries. A directory name selects it
// and everything below it.
func (a *Archiver) ExtractFiles(archivePath, outDir string, names []string, password string) error {
	return a.ExtractStreaming(archivePath, outDir, &ExtractOptions{Password: password, Files: names}, nil)
}

// ExtractStreaming decodes archivePath block by block into outDir.
func (a *Archiver) ExtractStreaming(archivePath, outDir string, opts *ExtractOptions, progress BytesProgressFunc) error {
	a.reporter.Clear()

	if opts == nil {
		opts = &ExtractOptions{}
	}

	if outDir == "" {
		return a.fail(report.New(report.CodeInvalidParameter, "output directory is empty"))
	}

	if opts.NumThreads < 0 || opts.NumThreads > MaxThreads {
		return a.fail(report.Newf(report.CodeInvalidParameter, "thread count %d is outside 0..%d", opts.NumThreads, MaxThreads))
	}

	o, err := a.open(archivePath, opts.Password)
	if err != nil {
		return err
	}
	defer o.close()

	selected, err := selection(o.index.Entries, opts.Files)
	if err != nil {
		return a.fail(err, report.File(archivePath), report.Suggest("list the archive to see its entries"))
	}

	for _, rec := range o.index.Entries {
		if _, err := safeJoin(outDir, rec.Name); err != nil {
			return a.fail(report.Wrap(report.CodeInvalidArchive, err, rec.Name), report.File(archivePath))
		}
	}

	if err := a.fs.MkdirAll(outDir, 0o755); err != nil { //nolint:mnd
		return a.fail(report.Wrap(report.CodeOpenFile, err, "creating output directory"), report.File(outDir))
	}

	out := &fsHandler{fs: a.fs, root: outDir, selected: selected}

	if err := a.decode(o, opts.NumThreads, out, progress); err != nil {
		return err
	}

	if err := out.finish(); err != nil {
		return a.fail(report.Wrap(report.CodeIO, err, "setting directory times"), report.File(outDir))
	}

	return nil
}

// TestArchive decodes every block and verifies every entry digest without
// writing anything.
func (a *Archiver) TestArchive(archivePath, password string) error {
	a.reporter.Clear()

	o, err := a.open(archivePath, password)
	if err != nil {
		return err
	}
	defer o.close()

	return a.decode(o, 0, discardHandler{}, nil)
}

// selection returns the predicate for names, or nil to select everything.
func selection(entries []entryRecord, names []string) (func(string) bool, error) {
	if len(names) == 0 {
		return nil, nil
	}

	wanted := make([]string, 0, len(names))

	for _, name := range names {
		clean := path.Clean(strings.TrimPrefix(filepath.ToSlash(name), "./"))

		found := slices.ContainsFunc(entries, func(rec entryRecord) bool {
			return within(rec.Name, clean)
		})
		if !found {
			return nil, report.Newf(report.CodeInvalidParameter, "%q is not in the archive", name)
		}

		wanted = append(wanted, clean)
	}

	return func(entry string) bool {
		return slices.ContainsFunc(wanted, func(w string) bool { return within(entry, w) })
	}, nil
}

// within reports whether name is selector or lives below it.
func within(name, selector string) bool {
	return name == selector || strings.HasPrefix(name, selector+"/")
}

// safeJoin resolves an entry name below root, rejecting absolute names and
// names that climb out of root.
func safeJoin(root, name string) (string, error) {
	if name == "" || path.IsAbs(name) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: %q", errUnsafeName, name)
	}

	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", errUnsafeName, name)
	}

	return filepath.Join(root, filepath.FromSlash(clean)), nil
}

// decode streams every frame of o through parallel decompression into the
// handler, in order.
func (a *Archiver) decode(o *opened, threads int, handler entryHandler, progress BytesProgressFunc) error {
	payload, err := o.payload()
	if err != nil {
		return a.fail(err, report.File(o.path))
	}
	defer payload.Close()

	if threads == 0 {
		threads = AutoThreads(int64(o.index.TotalSize), int(o.header.ChunkSize), a.cpus) //nolint:gosec // bounded sizes
	}

	d := &decoder{
		archiver: a,
		opened:   o,
		sink:     &entrySink{entries: o.index.Entries, handler: handler},
		progress: progress,
		params:   engine.Params{Level: int(o.header.Level), DictSize: int(o.header.DictSize)},
	}

	defer d.sink.abort()

	workers := stream.New().WithMaxGoroutines(max(threads, 1))

	var offset int64 = headerSize

	for d.failed() == nil {
		f, err := readFrame(payload, o.header.ChunkSize)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			_ = d.frameFailure(err, offset)

			break
		}

		eng, err := engine.New(f.Method)
		if err != nil {
			_ = d.fail(report.Wrap(report.CodeInvalidArchive, err, ""), locate(o.set, offset)...)

			break
		}

		d.submit(workers, eng, f, offset)

		offset += frameHeaderSize + int64(len(f.Data))
	}

	workers.Wait()

	if err := d.failed(); err != nil {
		return err
	}

	if err := d.sink.finish(); err != nil {
		return d.sinkFailure(err)
	}

	o.log.Debug("decoded archive", "bytes", d.completed, "entries", len(o.index.Entries))

	return nil
}

type decoder struct {
	archiver  *Archiver
	opened    *opened
	sink      *entrySink
	progress  BytesProgressFunc
	params    engine.Params
	completed uint64

	mu  sync.Mutex
	err error
}

func (d *decoder) fail(err error, details ...report.Detail) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err == nil {
		d.err = d.archiver.fail(err, details...)
	}

	return d.err
}

func (d *decoder) failed() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.err
}

func (d *decoder) submit(workers *stream.Stream, eng engine.Engine, f frame, offset int64) {
	workers.Go(func() stream.Callback {
		data, err := eng.Decompress(f.Data, int(f.RawLen), d.params)

		return func() {
			if d.failed() != nil {
				return
			}

			if err != nil {
				_ = d.fail(report.Wrap(report.CodeExtract, err, "decompressing block"), locate(d.opened.set, offset)...)

				return
			}

			if err := d.sink.write(data); err != nil {
				_ = d.sinkFailure(err)

				return
			}

			d.completed += uint64(len(data))

			if d.progress != nil {
				d.progress(min(d.completed, d.opened.index.TotalSize), d.opened.index.TotalSize)
			}
		}
	})
}

// frameFailure maps an error reading the payload into the taxonomy.
func (d *decoder) frameFailure(err error, offset int64) error {
	switch {
	case errors.Is(err, encryption.ErrInvalidBlockSize):
		err = report.Wrap(report.CodeInvalidArchive, err, "encrypted payload is truncated")
	case errors.Is(err, errBadFrame):
		err = report.Wrap(report.CodeInvalidArchive, err, "")
	case report.CodeOf(err) != report.CodeUnknown:
	case errors.Is(err, io.ErrUnexpectedEOF):
		err = report.Wrap(report.CodeInvalidArchive, err, "payload is truncated")
	default:
		mapped := d.archiver.readFailure(err, d.opened.set, offset, "reading payload")

		d.mu.Lock()
		defer d.mu.Unlock()

		if d.err == nil {
			d.err = mapped
		}

		return d.err
	}

	return d.fail(err, locate(d.opened.set, offset)...)
}

func (d *decoder) sinkFailure(err error) error {
	var entryErr *entryError
	if !errors.As(err, &entryErr) {
		return d.fail(report.Wrap(report.CodeInvalidArchive, err, ""), report.File(d.opened.path))
	}

	code := report.CodeIO
	switch {
	case errors.Is(err, errDigest):
		code = report.CodeExtract
	case errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrPermission):
		code = report.CodeOpenFile
	}

	return d.fail(report.Wrap(code, entryErr.Err, entryErr.Name), report.File(entryErr.Name))
}

var errDigest = errors.New("checksum mismatch")

// entryError ties a sink failure to an entry.
type entryError struct {
	Name string
	Err  error
}

func (e *entryError) Error() string { return e.Name + ": " + e.Err.Error() }

func (e *entryError) Unwrap() error { return e.Err }

// entryHandler receives decoded entries in archive order.
type entryHandler interface {
	// open returns the destination of a file's contents. Directories get no writes.
	open(rec entryRecord) (io.Writer, error)
	// close completes the entry opened last.
	close(rec entryRecord) error
	// abort releases an entry left open by a failure.
	abort()
}

// entrySink cuts the uncompressed stream into entries and verifies digests.
type entrySink struct {
	entries []entryRecord
	handler entryHandler

	cur     int
	written uint64
	out     io.Writer
	hasher  *blake3.Hasher
}

func (s *entrySink) begin() error {
	rec := s.entries[s.cur]

	out, err := s.handler.open(rec)
	if err != nil {
		return &entryError{Name: rec.Name, Err: err}
	}

	s.out = out
	s.written = 0
	s.hasher = blake3.New()

	return nil
}

func (s *entrySink) end() error {
	rec := s.entries[s.cur]

	s.out = nil
	s.cur++

	if err := s.handler.close(rec); err != nil {
		return &entryError{Name: rec.Name, Err: err}
	}

	if !rec.Dir && len(rec.Digest) > 0 && !bytes.Equal(s.hasher.Sum(nil), rec.Digest) {
		return &entryError{Name: rec.Name, Err: errDigest}
	}

	return nil
}

// settle completes every entry at the cursor that expects no more bytes.
func (s *entrySink) settle() error {
	for s.cur < len(s.entries) {
		if s.out == nil {
			if err := s.begin(); err != nil {
				return err
			}
		}

		if s.written < s.entries[s.cur].Size {
			return nil
		}

		if err := s.end(); err != nil {
			return err
		}
	}

	return nil
}

func (s *entrySink) write(p []byte) error {
	for len(p) > 0 {
		if err := s.settle(); err != nil {
			return err
		}

		if s.cur >= len(s.entries) {
			return errTrailingData
		}

		rec := s.entries[s.cur]
		n := min(uint64(len(p)), rec.Size-s.written)
		chunk := p[:n]

		_, _ = s.hasher.Write(chunk)

		if _, err := s.out.Write(chunk); err != nil {
			return &entryError{Name: rec.Name, Err: err}
		}

		s.written += n
		p = p[n:]
	}

	return s.settle()
}

func (s *entrySink) finish() error {
	if err := s.settle(); err != nil {
		return err
	}

	if s.cur < len(s.entries) {
		return fmt.Errorf("%w: %q", errShortPayload, s.entries[s.cur].Name)
	}

	return nil
}

func (s *entrySink) abort() {
	if s.out != nil {
		s.handler.abort()
		s.out = nil
	}
}

// discardHandler verifies without writing.
type discardHandler struct{}

func (discardHandler) open(entryRecord) (io.Writer, error) { return io.Discard, nil }

func (discardHandler) close(entryRecord) error { return nil }

func (discardHandler) abort() {}

// fsHandler writes entries below root.
type fsHandler struct {
	fs       afero.Fs
	root     string
	selected func(string) bool

	file afero.File
	dirs []entryRecord
}

func (h *fsHandler) open(rec entryRecord) (io.Writer, error) {
	if h.selected != nil && !h.selected(rec.Name) {
		return io.Discard, nil
	}

	target, err := safeJoin(h.root, rec.Name)
	if err != nil {
		return nil, err
	}

	if rec.Dir {
		h.dirs = append(h.dirs, rec)

		return io.Discard, h.fs.MkdirAll(target, dirPerm(rec))
	}

	if err := h.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil { //nolint:mnd
		return nil, err
	}

	file, err := h.fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm(rec))
	if err != nil {
		return nil, err
	}

	h.file = file

	return file, nil
}

func (h *fsHandler) close(rec entryRecord) error {
	if h.file == nil {
		return nil
	}

	file := h.file
	h.file = nil

	if err := file.Close(); err != nil {
		return err
	}

	target, _ := safeJoin(h.root, rec.Name) //nolint:errcheck // checked in open

	modTime := time.Unix(0, rec.ModTime)

	return h.fs.Chtimes(target, modTime, modTime)
}

func (h *fsHandler) abort() {
	if h.file != nil {
		_ = h.file.Close()
		h.file = nil
	}
}

// finish applies directory times, deepest first, once their contents exist.
func (h *fsHandler) finish() error {
	for _, rec := range slices.Backward(h.dirs) {
		target, _ := safeJoin(h.root, rec.Name) //nolint:errcheck // checked in open

		modTime := time.Unix(0, rec.ModTime)
		if err := h.fs.Chtimes(target, modTime, modTime); err != nil {
			return err
		}
	}

	return nil
}

func filePerm(rec entryRecord) os.FileMode {
	if perm := os.FileMode(rec.Mode).Perm(); perm != 0 {
		return perm
	}

	return 0o644 //nolint:mnd
}

func dirPerm(rec entryRecord) os.FileMode {
	if perm := os.FileMode(rec.Mode).Perm(); perm != 0 {
		return perm | 0o700 //nolint:mnd
	}

	return 0o755 //nolint:mnd
}
