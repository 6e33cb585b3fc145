package logic

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/idelchi/volpack/internal/fileutil"
	"github.com/idelchi/volpack/pkg/engine"
)

// RunCodec compresses every file of cfg.Inputs into a single-file .lzma or
// .xz container, or decompresses them with --decompress. Outputs appear
// atomically next to their inputs, which are removed unless --keep is set.
//
//nolint:cyclop // parallel processing pipeline with printer goroutine
func RunCodec(e Env, format engine.FileFormat) error {
	cfg := e.Cfg
	start := time.Now()

	type result struct {
		input      string
		output     string
		outputSize int64
		err        error
	}

	results := make(chan result, len(cfg.Inputs))

	group := errgroup.Group{}
	group.SetLimit(cfg.Parallel)

	printed := make(chan struct{})

	var processed, errored int

	var totalSize int64

	go func() {
		defer close(printed)

		for res := range results {
			if res.err != nil {
				errored++

				fmt.Fprintf(e.Stderr, "Error processing %q: %v\n", res.input, res.err)

				continue
			}

			processed++

			totalSize += res.outputSize

			e.printf("Processed %q -> %q\n", res.input, res.output)

			if !cfg.Keep {
				if err := e.Fs.Remove(res.input); err != nil {
					fmt.Fprintf(e.Stderr, "Error deleting %q: %v\n", res.input, err)
				}
			}
		}
	}()

	for _, file := range cfg.Inputs {
		group.Go(func() error {
			outPath, err := codecOutput(file, format, cfg.Decompress)
			if err != nil {
				results <- result{input: file, err: err}

				return err
			}

			size, err := e.codecFile(format, file, outPath)
			if err != nil {
				results <- result{input: file, err: err}

				return err
			}

			results <- result{input: file, output: outPath, outputSize: size}

			return nil
		})
	}

	err := group.Wait()

	close(results)

	<-printed

	if cfg.Stats {
		fmt.Fprintf(e.Stderr, "\nStats\n")
		fmt.Fprintf(e.Stderr, "  Processed: %d\n", processed)
		fmt.Fprintf(e.Stderr, "  Errors:    %d\n", errored)
		//nolint:gosec // totalSize is always non-negative (sum of file sizes)
		fmt.Fprintf(e.Stderr, "  Size:      %s\n", humanize.IBytes(uint64(max(0, totalSize))))
		fmt.Fprintf(e.Stderr, "  Duration:  %s\n", time.Since(start).Round(time.Millisecond))
	}

	if err != nil {
		return fmt.Errorf("%s: %d file(s) failed: %w", format, errored, err)
	}

	return nil
}

// codecOutput names the output: input plus the extension, or input without it.
func codecOutput(input string, format engine.FileFormat, decompress bool) (string, error) {
	ext := format.Extension()

	if !decompress {
		return input + ext, nil
	}

	out, ok := strings.CutSuffix(input, ext)
	if !ok || out == "" {
		return "", fmt.Errorf("%q does not end in %s", input, ext)
	}

	return out, nil
}

// codecFile writes through a temp file and renames it to outPath.
func (e Env) codecFile(format engine.FileFormat, input, outPath string) (size int64, err error) {
	tc, err := fileutil.NewTempContext(e.Fs, input, outPath)
	if err != nil {
		return 0, fmt.Errorf("preparing atomic write: %w", err)
	}

	defer tc.CleanupOnError(&err)

	if e.Cfg.Decompress {
		err = engine.DecompressFile(e.Fs, format, input, tc.TmpName)
	} else {
		err = engine.CompressFile(e.Fs, format, input, tc.TmpName, e.Cfg.Level)
	}

	if err != nil {
		return 0, err
	}

	size, err = tc.Commit(outPath, true)
	if err != nil {
		return 0, fmt.Errorf("finalizing output: %w", err)
	}

	return size, nil
}
