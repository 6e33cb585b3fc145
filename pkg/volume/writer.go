package volume

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"
)

// Writer is an io.WriteCloser that rolls over to the next volume whenever the
// current one reaches the split size. Volumes are opened lazily, so no empty
// trailing volume is created. With a split size of 0 it writes one plain file
// at base without a suffix.
type Writer struct {
	fs        afero.Fs
	base      string
	splitSize int64
	log       *slog.Logger

	current afero.File
	written int64 // bytes in the current volume
	offset  int64 // bytes across all volumes
	paths   []string
	closed  bool
}

// NewWriter prepares a writer for base. The first volume is created
// immediately so path errors surface before any data is produced.
func NewWriter(fs afero.Fs, base string, splitSize int64, log *slog.Logger) (*Writer, error) {
	if splitSize < 0 {
		return nil, fmt.Errorf("%w: split size %d", ErrInvalidSplit, splitSize)
	}

	if log == nil {
		log = slog.Default()
	}

	w := &Writer{
		fs:        fs,
		base:      base,
		splitSize: splitSize,
		log:       log.With("component", "volume-writer"),
	}

	if err := w.next(); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *Writer) next() error {
	if w.current != nil {
		if err := w.current.Close(); err != nil {
			return fmt.Errorf("closing volume %q: %w", w.paths[len(w.paths)-1], err)
		}

		w.current = nil
	}

	path := w.base
	if w.splitSize > 0 {
		path = Name(w.base, len(w.paths)+1)
	}

	file, err := w.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) //nolint:mnd
	if err != nil {
		return &PathError{Op: "create", Path: path, Err: err}
	}

	w.current = file
	w.written = 0
	w.paths = append(w.paths, path)

	w.log.Debug("opened volume", "path", path, "sequence", len(w.paths))

	return nil
}

// Write splits p across volumes as needed.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}

	total := 0

	for len(p) > 0 {
		if w.splitSize > 0 && w.written >= w.splitSize {
			if err := w.next(); err != nil {
				return total, err
			}
		}

		chunk := p
		if w.splitSize > 0 {
			chunk = p[:min(int64(len(p)), w.splitSize-w.written)]
		}

		n, err := w.current.Write(chunk)
		total += n
		w.written += int64(n)
		w.offset += int64(n)

		if err != nil {
			return total, &PathError{Op: "write", Path: w.paths[len(w.paths)-1], Offset: w.written, Err: err}
		}

		p = p[n:]
	}

	return total, nil
}

// Offset returns the number of bytes written across all volumes.
func (w *Writer) Offset() int64 {
	return w.offset
}

// Paths returns the volumes created so far, in order.
func (w *Writer) Paths() []string {
	return append([]string(nil), w.paths...)
}

// Close closes the current volume. It is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	if w.current == nil {
		return nil
	}

	if err := w.current.Close(); err != nil {
		return &PathError{Op: "close", Path: w.paths[len(w.paths)-1], Err: err}
	}

	w.log.Debug("volumes finished", "count", len(w.paths), "bytes", w.offset)

	return nil
}
