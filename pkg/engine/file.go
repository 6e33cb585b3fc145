package engine

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// FileFormat selects a single-file container for CompressFile.
type FileFormat int

const (
	// FormatLZMA is the legacy .lzma container (LZMA1).
	FormatLZMA FileFormat = iota
	// FormatXZ is the .xz container around LZMA2.
	FormatXZ
)

// Extension returns the conventional file suffix.
func (f FileFormat) Extension() string {
	if f == FormatXZ {
		return ".xz"
	}

	return ".lzma"
}

// String returns the format name.
func (f FileFormat) String() string {
	if f == FormatXZ {
		return "xz"
	}

	return "lzma"
}

// CompressFile compresses src into dst as a single .lzma or .xz stream.
func CompressFile(fs afero.Fs, format FileFormat, src, dst string, level int) (err error) {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("opening %q: %w", src, err)
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) //nolint:mnd
	if err != nil {
		return fmt.Errorf("creating %q: %w", dst, err)
	}

	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %q: %w", dst, cerr)
		}
	}()

	dict := dictFor(Params{Level: max(level, 1)})

	var w io.WriteCloser

	switch format {
	case FormatXZ:
		cfg := xz.WriterConfig{DictCap: dict}
		w, err = cfg.NewWriter(out)
	default:
		cfg := lzma.WriterConfig{DictCap: dict, EOSMarker: true}
		w, err = cfg.NewWriter(out)
	}

	if err != nil {
		return fmt.Errorf("%s writer: %w", format, err)
	}

	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("compressing %q: %w", src, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing %s stream: %w", format, err)
	}

	return nil
}

// DecompressFile decodes a .lzma or .xz file src into dst.
func DecompressFile(fs afero.Fs, format FileFormat, src, dst string) (err error) {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("opening %q: %w", src, err)
	}
	defer in.Close()

	var r io.Reader

	switch format {
	case FormatXZ:
		r, err = xz.NewReader(in)
	default:
		r, err = lzma.NewReader(in)
	}

	if err != nil {
		return fmt.Errorf("%w: %s header: %w", ErrCorrupt, format, err)
	}

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) //nolint:mnd
	if err != nil {
		return fmt.Errorf("creating %q: %w", dst, err)
	}

	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %q: %w", dst, cerr)
		}
	}()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("%w: decompressing %q: %w", ErrCorrupt, src, err)
	}

	return nil
}

// CompressLZMA writes src as a .lzma file at dst.
func CompressLZMA(fs afero.Fs, src, dst string, level int) error {
	return CompressFile(fs, FormatLZMA, src, dst, level)
}

// DecompressLZMA decodes the .lzma file src into dst.
func DecompressLZMA(fs afero.Fs, src, dst string) error {
	return DecompressFile(fs, FormatLZMA, src, dst)
}

// CompressXZ writes src as a .xz file at dst.
func CompressXZ(fs afero.Fs, src, dst string, level int) error {
	return CompressFile(fs, FormatXZ, src, dst, level)
}

// DecompressXZ decodes the .xz file src into dst.
func DecompressXZ(fs afero.Fs, src, dst string) error {
	return DecompressFile(fs, FormatXZ, src, dst)
}
