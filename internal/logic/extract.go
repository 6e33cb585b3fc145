package logic

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/idelchi/volpack/pkg/archive"
	"github.com/idelchi/volpack/pkg/report"
)

// RunExtract extracts cfg.Archive, or the entries named by cfg.Inputs, into cfg.Output.
func RunExtract(e Env) error {
	cfg := e.Cfg
	start := time.Now()

	secret, err := e.password(false)
	if err != nil {
		return err
	}

	out := cfg.Output
	if out == "" {
		out = "."
	}

	opts := archive.ExtractOptions{Password: secret, Files: cfg.Inputs, NumThreads: cfg.Threads}

	a := e.archiver()

	if err := a.ExtractStreaming(cfg.Archive, out, &opts, e.extractProgress("Extracting")); err != nil {
		return e.explain(err)
	}

	e.printf("Extracted %q -> %q\n", cfg.Archive, out)

	if cfg.Stats {
		info, err := a.Stat(cfg.Archive, secret)
		if err != nil {
			return e.explain(err)
		}

		e.printStats(stats{
			label:    "Output",
			inputs:   info.Entries,
			archived: info.TotalSize,
			written:  info.Size,
			volumes:  len(info.Volumes),
		}, time.Since(start))
	}

	return nil
}

// RunList prints the entries of cfg.Archive.
func RunList(e Env) error {
	cfg := e.Cfg

	secret, err := e.password(false)
	if err != nil {
		return err
	}

	a := e.archiver()

	entries, err := a.List(cfg.Archive, secret)
	if err != nil {
		return e.explain(err)
	}

	w := tabwriter.NewWriter(e.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight) //nolint:mnd

	fmt.Fprintln(w, "Mode\tSize\tPacked\tRatio\tModified\tName\t")

	var size, packed uint64

	for _, entry := range entries {
		size += entry.Size
		packed += entry.PackedSize

		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\t%s\t%s\t\n",
			entry.Mode,
			humanize.IBytes(entry.Size),
			humanize.IBytes(entry.PackedSize),
			100*entry.CompressionRatio(),
			entry.ModTime.Local().Format(time.DateTime),
			entry.Name,
		)
	}

	ratio := 0.0
	if size > 0 {
		ratio = 100 * (1 - float64(packed)/float64(size))
	}

	fmt.Fprintf(w, "\t%s\t%s\t%.1f%%\t\t%d entries\t\n", humanize.IBytes(size), humanize.IBytes(packed), ratio, len(entries))

	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing listing: %w", err)
	}

	if cfg.Stats {
		info, err := a.Stat(cfg.Archive, secret)
		if err != nil {
			return e.explain(err)
		}

		fmt.Fprintf(e.Stderr, "\nArchive\n")
		fmt.Fprintf(e.Stderr, "  Method:    %s (level %d, %s)\n", info.Method, int(info.Level), info.Level)
		fmt.Fprintf(e.Stderr, "  Solid:     %t\n", info.Solid)
		fmt.Fprintf(e.Stderr, "  Encrypted: %t\n", info.Encrypted)
		//nolint:gosec // sizes are non-negative
		fmt.Fprintf(e.Stderr, "  Size:      %s in %d volume(s)\n", humanize.IBytes(uint64(info.Size)), len(info.Volumes))
	}

	return nil
}

// RunTest verifies every archive named by cfg.Inputs, cfg.Parallel at a time.
func RunTest(e Env) error {
	cfg := e.Cfg
	start := time.Now()

	secret, err := e.password(false)
	if err != nil {
		return err
	}

	type result struct {
		archive string
		info    archive.Info
		err     error
	}

	results := make(chan result, len(cfg.Inputs))

	group := errgroup.Group{}
	group.SetLimit(cfg.Parallel)

	printed := make(chan struct{})

	var (
		passed, failed int
		total          uint64
	)

	go func() {
		defer close(printed)

		for res := range results {
			if res.err != nil {
				failed++

				fmt.Fprintf(e.Stderr, "FAILED %q: %v\n", res.archive, res.err)

				continue
			}

			passed++

			total += res.info.TotalSize

			e.printf("OK %q: %d entries, %s\n", res.archive, res.info.Entries, humanize.IBytes(res.info.TotalSize))
		}
	}()

	for _, path := range cfg.Inputs {
		group.Go(func() error {
			// A reporter per archive keeps concurrent failures apart.
			local := e
			local.Reporter = report.NewReporter()

			info, err := local.testOne(path, secret)
			results <- result{archive: path, info: info, err: err}

			return err
		})
	}

	err = group.Wait()

	close(results)

	<-printed

	if cfg.Stats {
		fmt.Fprintf(e.Stderr, "\nStats\n")
		fmt.Fprintf(e.Stderr, "  Passed:    %d\n", passed)
		fmt.Fprintf(e.Stderr, "  Failed:    %d\n", failed)
		fmt.Fprintf(e.Stderr, "  Verified:  %s\n", humanize.IBytes(total))
		fmt.Fprintf(e.Stderr, "  Duration:  %s\n", time.Since(start).Round(time.Millisecond))
	}

	if err != nil {
		return fmt.Errorf("%d of %d archive(s) failed: %w", failed, len(cfg.Inputs), err)
	}

	return nil
}

func (e Env) testOne(path, secret string) (archive.Info, error) {
	a := e.archiver()

	if err := a.TestArchive(path, secret); err != nil {
		return archive.Info{}, e.explain(err)
	}

	info, err := a.Stat(path, secret)
	if err != nil {
		return archive.Info{}, e.explain(err)
	}

	return info, nil
}
