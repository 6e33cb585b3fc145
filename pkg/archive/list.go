package archive

// List returns the entries of the archive at archivePath in archive order.
// password is required only for encrypted archives.
func (a *Archiver) List(archivePath, password string) ([]Entry, error) {
	a.reporter.Clear()

	o, err := a.open(archivePath, password)
	if err != nil {
		return nil, err
	}
	defer o.close()

	entries := make([]Entry, 0, len(o.index.Entries))
	for _, rec := range o.index.Entries {
		entries = append(entries, rec.entry())
	}

	return entries, nil
}

// Info summarizes an archive.
type Info struct {
	Volumes   []string
	Size      int64
	Entries   int
	TotalSize uint64
	Method    string
	Level     Level
	Solid     bool
	Encrypted bool
}

// Stat reads the metadata of the archive at archivePath.
func (a *Archiver) Stat(archivePath, password string) (Info, error) {
	a.reporter.Clear()

	o, err := a.open(archivePath, password)
	if err != nil {
		return Info{}, err
	}
	defer o.close()

	return Info{
		Volumes:   o.set.Paths(),
		Size:      o.set.Size(),
		Entries:   len(o.index.Entries),
		TotalSize: o.index.TotalSize,
		Method:    o.header.Method.String(),
		Level:     o.header.Level,
		Solid:     o.header.solid(),
		Encrypted: o.header.encrypted(),
	}, nil
}
