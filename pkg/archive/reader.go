package archive

import (
	"bufio"
	"errors"
	"io"
	"log/slog"

	"github.com/fxamacker/cbor/v2"

	"github.com/idelchi/volpack/pkg/encryption"
	"github.com/idelchi/volpack/pkg/report"
	"github.com/idelchi/volpack/pkg/volume"
)

const readBufferSize = 1 << 20

// opened is an archive whose header, trailer and index have been read and
// checked. The payload has not been touched yet.
type opened struct {
	path    string
	set     *volume.Set
	header  header
	trailer trailer
	index   index
	dec     *encryption.DecryptionContext
	log     *slog.Logger
}

// open reads the archive metadata at path, which may be a plain archive or
// any volume of a set.
func (a *Archiver) open(path, password string) (*opened, error) {
	if path == "" {
		return nil, a.fail(report.New(report.CodeInvalidParameter, "archive path is empty"))
	}

	set, err := volume.Open(a.fs, path, a.log)
	if err != nil {
		return nil, a.volumeFailure(err, path)
	}

	o := &opened{path: path, set: set, log: a.log.With("archive", path)}

	if err := a.readMetadata(o, password); err != nil {
		_ = o.close()

		return nil, err
	}

	o.log.Debug("opened archive",
		"volumes", len(set.Paths()),
		"entries", len(o.index.Entries),
		"bytes", o.index.TotalSize,
		"encrypted", o.header.encrypted(),
	)

	return o, nil
}

func (a *Archiver) readMetadata(o *opened, password string) error {
	size := o.set.Size()
	if size < headerSize+trailerSize {
		return a.fail(report.Newf(report.CodeInvalidArchive, "archive is %d bytes, too short to be valid", size),
			report.File(o.path), report.Suggest("the archive may be truncated or a volume is missing"))
	}

	buf := make([]byte, headerSize)
	if _, err := o.set.ReadAt(buf, 0); err != nil {
		return a.readFailure(err, o.set, 0, "reading header")
	}

	hdr, err := parseHeader(buf)
	if err != nil {
		details := []report.Detail{report.File(o.path), report.At(0)}
		if base, _, ok := volume.Parse(o.path); ok {
			details = append(details, report.Suggest("if this is a volume, "+volume.Name(base, 1)+" is missing"))
		}

		return a.fail(report.Wrap(report.CodeInvalidArchive, err, ""), details...)
	}

	o.header = hdr

	buf = make([]byte, trailerSize)
	if _, err := o.set.ReadAt(buf, size-trailerSize); err != nil {
		return a.readFailure(err, o.set, size-trailerSize, "reading trailer")
	}

	tr, err := parseTrailer(buf, size)
	if err != nil {
		return a.fail(report.Wrap(report.CodeInvalidArchive, err, ""),
			report.File(o.path), report.At(size-trailerSize),
			report.Suggest("the archive may be truncated or a volume is missing"))
	}

	o.trailer = tr

	raw := make([]byte, tr.IndexLen)
	if _, err := o.set.ReadAt(raw, int64(tr.IndexOffset)); err != nil { //nolint:gosec // bounded by the stream size
		return a.readFailure(err, o.set, int64(tr.IndexOffset), "reading index") //nolint:gosec // bounded by the stream size
	}

	if hdr.encrypted() {
		if raw, err = a.unseal(o, raw, password); err != nil {
			return err
		}
	} else if password != "" {
		o.log.Debug("archive is not encrypted, ignoring password")
	}

	if err := cbor.Unmarshal(raw, &o.index); err != nil {
		return a.fail(report.Wrap(report.CodeInvalidArchive, err, "decoding index"),
			report.File(o.path), report.At(int64(tr.IndexOffset))) //nolint:gosec // bounded by the stream size
	}

	var total uint64
	for _, rec := range o.index.Entries {
		total += rec.Size
	}

	if total != o.index.TotalSize {
		return a.fail(report.Newf(report.CodeInvalidArchive, "index entries sum to %d bytes, expected %d",
			total, o.index.TotalSize), report.File(o.path))
	}

	return nil
}

// unseal derives the archive key and opens the sealed index. A wrong
// password is detected here, before any payload is decrypted.
func (a *Archiver) unseal(o *opened, sealed []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, a.fail(report.New(report.CodeInvalidParameter, "archive is encrypted"),
			report.File(o.path), report.Suggest("supply the archive password"))
	}

	dec, err := encryption.NewDecryptionContext(password, o.header.Salt[:])
	if err != nil {
		return nil, a.fail(err, report.File(o.path))
	}

	o.dec = dec

	plain, err := dec.Open(sealed, o.header.ArchiveID[:])
	if err != nil {
		return nil, a.fail(err, report.File(o.path), report.At(int64(o.trailer.IndexOffset)), //nolint:gosec // bounded
			report.Suggest("check the password"))
	}

	return plain, nil
}

// payload returns the decrypted frame stream. Closing it zeroes buffered plaintext.
func (o *opened) payload() (io.ReadCloser, error) {
	length := int64(o.trailer.IndexOffset) - headerSize //nolint:gosec // checked against the stream size
	section := io.NewSectionReader(o.set, headerSize, length)

	if o.dec == nil {
		return io.NopCloser(bufio.NewReaderSize(section, readBufferSize)), nil
	}

	plain, err := o.dec.NewReader(section, o.header.IV[:])
	if err != nil {
		return nil, err
	}

	return plain, nil
}

func (o *opened) close() error {
	var errs []error

	if o.dec != nil {
		errs = append(errs, o.dec.Close())
	}

	errs = append(errs, o.set.Close())

	return errors.Join(errs...)
}

// volumeFailure maps discovery and open errors into the taxonomy.
func (a *Archiver) volumeFailure(err error, path string) error {
	var pathErr *volume.PathError
	if !errors.As(err, &pathErr) {
		return a.fail(report.Wrap(report.CodeOpenFile, err, "opening archive"), report.File(path))
	}

	if errors.Is(err, volume.ErrMissingFirst) {
		return a.fail(report.Wrap(report.CodeInvalidArchive, err, ""), report.File(pathErr.Path),
			report.Suggest("make sure the archive or its first volume exists"))
	}

	code := report.CodeIO
	if pathErr.Op == "open" {
		code = report.CodeOpenFile
	}

	return a.fail(report.Wrap(code, err, "opening archive"), report.File(pathErr.Path))
}

// readFailure maps an error reading the logical stream at off into the taxonomy.
func (a *Archiver) readFailure(err error, set *volume.Set, off int64, message string) error {
	if report.CodeOf(err) != report.CodeUnknown {
		return a.fail(err, locate(set, off)...)
	}

	code := report.CodeIO
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		code = report.CodeInvalidArchive
	}

	var pathErr *volume.PathError
	if errors.As(err, &pathErr) {
		return a.fail(report.Wrap(code, err, message), report.File(pathErr.Path), report.At(pathErr.Offset))
	}

	return a.fail(report.Wrap(code, err, message), locate(set, off)...)
}

// locate names the volume and local offset of a logical stream offset.
func locate(set *volume.Set, off int64) []report.Detail {
	path, local := set.Locate(off)
	if path == "" {
		return nil
	}

	return []report.Detail{report.File(path), report.At(local)}
}
