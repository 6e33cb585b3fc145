package volume

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/spf13/afero"
)

// Discover returns the ordered volume paths of the archive that path belongs to.
//
// path may be a plain single-file archive, any member "<base>.NNN" of a set,
// or a base whose "<base>.001" exists. A file with a numeric suffix but no
// "<base>.001" beside it is a plain archive. Probing stops at the first
// missing number; a later volume beyond such a gap is logged and ignored.
func Discover(fs afero.Fs, path string, log *slog.Logger) ([]string, error) {
	if log == nil {
		log = slog.Default()
	}

	log = log.With("component", "volume-discovery")

	base, _, isPart := Parse(path)

	switch {
	case !isPart:
		if regular(fs, path) {
			return []string{path}, nil
		}

		base = path
	case !regular(fs, Name(base, 1)) && regular(fs, path):
		return []string{path}, nil
	}

	var paths []string

	for seq := 1; ; seq++ {
		candidate := Name(base, seq)

		info, err := fs.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			if seq == 1 {
				return nil, &PathError{Op: "discover", Path: candidate, Err: ErrMissingFirst}
			}

			if exists(fs, Name(base, seq+1)) {
				log.Warn("volume set has a gap, treating it as the end of the set",
					"missing", candidate, "found", Name(base, seq+1))
			}

			break
		}

		paths = append(paths, candidate)
	}

	log.Debug("discovered volumes", "base", base, "count", len(paths))

	return paths, nil
}

func regular(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

func exists(fs afero.Fs, path string) bool {
	ok, err := afero.Exists(fs, path)

	return err == nil && ok
}

// Set presents an ordered list of volume files as one io.ReaderAt.
type Set struct {
	files   []afero.File
	paths   []string
	offsets []int64 // start offset of each volume in the logical stream
	size    int64
}

// Open discovers and opens every volume of the archive at path.
func Open(fs afero.Fs, path string, log *slog.Logger) (*Set, error) {
	paths, err := Discover(fs, path, log)
	if err != nil {
		return nil, err
	}

	set := &Set{paths: paths}

	for _, p := range paths {
		file, err := fs.Open(p)
		if err != nil {
			_ = set.Close()

			return nil, &PathError{Op: "open", Path: p, Err: err}
		}

		info, err := file.Stat()
		if err != nil {
			_ = file.Close()
			_ = set.Close()

			return nil, &PathError{Op: "stat", Path: p, Err: err}
		}

		set.files = append(set.files, file)
		set.offsets = append(set.offsets, set.size)
		set.size += info.Size()
	}

	return set, nil
}

// Size is the length of the logical stream.
func (s *Set) Size() int64 {
	return s.size
}

// Paths returns the volume paths in order.
func (s *Set) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Locate maps a logical offset to the volume holding it and the offset within it.
func (s *Set) Locate(off int64) (string, int64) {
	idx := s.index(off)
	if idx < 0 {
		return "", -1
	}

	return s.paths[idx], off - s.offsets[idx]
}

func (s *Set) index(off int64) int {
	if off < 0 || off >= s.size {
		return -1
	}

	return sort.Search(len(s.offsets), func(i int) bool { return s.offsets[i] > off }) - 1
}

// ReadAt reads len(p) bytes at logical offset off, crossing volume boundaries.
func (s *Set) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("volume: negative offset %d", off)
	}

	total := 0

	for len(p) > 0 {
		idx := s.index(off)
		if idx < 0 {
			return total, io.EOF
		}

		local := off - s.offsets[idx]

		end := s.size
		if idx+1 < len(s.offsets) {
			end = s.offsets[idx+1]
		}

		chunk := p[:min(int64(len(p)), end-off)]

		n, err := s.files[idx].ReadAt(chunk, local)
		total += n
		off += int64(n)
		p = p[n:]

		if err != nil && !(errors.Is(err, io.EOF) && n == len(chunk)) {
			if errors.Is(err, io.EOF) {
				// The volume shrank after Open.
				err = io.ErrUnexpectedEOF
			}

			return total, &PathError{Op: "read", Path: s.paths[idx], Offset: local + int64(n), Err: err}
		}
	}

	return total, nil
}

// Close closes every volume.
func (s *Set) Close() error {
	var errs []error

	for i, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, &PathError{Op: "close", Path: s.paths[i], Err: err})
		}
	}

	s.files = nil

	return errors.Join(errs...)
}
