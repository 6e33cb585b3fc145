package logic

import (
	"fmt"
	"time"

	"github.com/idelchi/volpack/internal/filter"
	"github.com/idelchi/volpack/pkg/archive"
)

// RunCreate archives cfg.Inputs into cfg.Archive.
func RunCreate(e Env) error {
	cfg := e.Cfg
	start := time.Now()

	opts, err := e.streamOptions()
	if err != nil {
		return err
	}

	a := e.archiver()

	if err := a.CreateArchiveStreaming(cfg.Archive, cfg.Inputs, archive.Level(cfg.Level), &opts, e.createProgress()); err != nil {
		return e.explain(err)
	}

	info, err := a.Stat(cfg.Archive, opts.Password)
	if err != nil {
		return e.explain(err)
	}

	for _, path := range info.Volumes {
		e.printf("Created %q\n", path)
	}

	if cfg.Stats {
		e.printStats(stats{
			label:    "Input",
			inputs:   info.Entries,
			archived: info.TotalSize,
			written:  info.Size,
			volumes:  len(info.Volumes),
		}, time.Since(start))
	}

	return nil
}

// streamOptions translates the creation flags.
func (e Env) streamOptions() (archive.StreamOptions, error) {
	cfg := e.Cfg
	opts := archive.DefaultStreamOptions()

	sizes, err := cfg.Sizes()
	if err != nil {
		return opts, err
	}

	includes, excludes, err := e.loadPatterns()
	if err != nil {
		return opts, err
	}

	secret, err := e.password(true)
	if err != nil {
		return opts, err
	}

	opts.Method = cfg.Method
	opts.NumThreads = cfg.Threads
	opts.DictSize = sizes.Dict
	opts.Solid = cfg.Solid
	opts.Password = secret
	opts.SplitSize = sizes.Split
	opts.AutoDetectIncompressible = !cfg.NoProbe
	opts.Include = includes
	opts.Exclude = excludes
	opts.IgnoreCase = cfg.IgnoreCase

	if sizes.Chunk > 0 {
		opts.ChunkSize = sizes.Chunk
	}

	return opts, nil
}

// loadPatterns merges CLI and file-based include/exclude patterns.
func (e Env) loadPatterns() (includes, excludes []string, err error) {
	cfg := e.Cfg

	includes = append(includes, cfg.Include...)
	excludes = append(excludes, cfg.Exclude...)

	if cfg.IncludeFrom != "" {
		patterns, err := filter.LoadPatterns(e.Fs, cfg.IncludeFrom)
		if err != nil {
			return nil, nil, fmt.Errorf("loading include patterns: %w", err)
		}

		includes = append(includes, patterns...)
	}

	if cfg.ExcludeFrom != "" {
		patterns, err := filter.LoadPatterns(e.Fs, cfg.ExcludeFrom)
		if err != nil {
			return nil, nil, fmt.Errorf("loading exclude patterns: %w", err)
		}

		excludes = append(excludes, patterns...)
	}

	return filter.Normalize(includes), filter.Normalize(excludes), nil
}
