package archive

import (
	"io/fs"
	"time"
)

// Entry describes one archived file or directory.
type Entry struct {
	// Name is the slash separated path inside the archive.
	Name        string
	Size        uint64
	PackedSize  uint64
	IsDirectory bool
	Mode        fs.FileMode
	ModTime     time.Time
}

// CompressionRatio is 1 - PackedSize/Size, or 0 for empty entries.
func (e Entry) CompressionRatio() float64 {
	if e.Size == 0 {
		return 0
	}

	return 1 - float64(e.PackedSize)/float64(e.Size)
}

func (r entryRecord) entry() Entry {
	return Entry{
		Name:        r.Name,
		Size:        r.Size,
		PackedSize:  r.Packed,
		IsDirectory: r.Dir,
		Mode:        fs.FileMode(r.Mode),
		ModTime:     time.Unix(0, r.ModTime),
	}
}
