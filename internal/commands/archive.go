package commands

import (
	"github.com/spf13/cobra"

	"github.com/idelchi/volpack/internal/config"
	"github.com/idelchi/volpack/internal/logic"
)

// NewCreateCommand creates a new cobra command for the create subcommand.
func NewCreateCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "create [flags] archive paths...",
		Aliases: []string{"c", "a"},
		Short:   "Create an archive from files and directories",
		Long: `Create an archive from files and directories. Directories are walked
recursively. With --split the archive is written as numbered volumes
archive.001, archive.002, ...`,
		Args: cobra.MinimumNArgs(2), //nolint:mnd
		PreRunE: preRun(cfg, func(args []string) {
			cfg.Archive, cfg.Inputs = args[0], args[1:]
		}),
		RunE: run(cfg, logic.RunCreate),
	}

	flags := cmd.Flags()

	flags.IntP("level", "l", cfg.Level, "Compression level from 0 (store) to 9 (ultra)")
	flags.StringP("method", "m", cfg.Method, "Block codec: lzma2, zstd, lz4 or store")
	flags.IntP("threads", "t", 0, "Blocks compressed in parallel, 0 selects automatically")
	flags.String("dict", "", "Dictionary size such as 32MiB, empty selects automatically")
	flags.StringP("split", "v", "", "Split into volumes of this size such as 700MB")
	flags.String("chunk", "", "Bytes read per step and block size, default 64MiB")
	flags.Bool("solid", cfg.Solid, "Compress blocks across file boundaries")
	flags.Bool("no-probe", false, "Do not store incompressible input uncompressed")
	addFilterFlags(cmd)

	return cmd
}

// NewExtractCommand creates a new cobra command for the extract subcommand.
func NewExtractCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "extract [flags] archive [entries...]",
		Aliases: []string{"x"},
		Short:   "Extract an archive, or only the named entries",
		Long: `Extract an archive into the output directory. The archive may be named by
its base path or by any of its volumes. Named entries select files, or
directories together with everything below them.`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: preRun(cfg, func(args []string) {
			cfg.Archive, cfg.Inputs = args[0], args[1:]
		}),
		RunE: run(cfg, logic.RunExtract),
	}

	cmd.Flags().StringP("output", "o", ".", "Output directory")
	cmd.Flags().IntP("threads", "t", 0, "Blocks decoded in parallel, 0 selects automatically")

	return cmd
}

// NewListCommand creates a new cobra command for the list subcommand.
func NewListCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "list [flags] archive",
		Aliases: []string{"l", "ls"},
		Short:   "List the entries of an archive",
		Args:    cobra.ExactArgs(1),
		PreRunE: preRun(cfg, func(args []string) {
			cfg.Archive = args[0]
		}),
		RunE: run(cfg, logic.RunList),
	}
}

// NewTestCommand creates a new cobra command for the test subcommand.
func NewTestCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "test [flags] archives...",
		Aliases: []string{"t"},
		Short:   "Verify archives without writing anything",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: preRun(cfg, func(args []string) {
			cfg.Inputs = args
		}),
		RunE: run(cfg, logic.RunTest),
	}

	cmd.Flags().IntP("parallel", "j", cfg.Parallel, "Number of archives tested in parallel, defaults to number of CPUs")

	return cmd
}

// NewCheckCommand creates a new cobra command for the check subcommand.
func NewCheckCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] [paths...]",
		Short: "Validate that include/exclude patterns match files",
		Args:  cobra.ArbitraryArgs,
		PreRunE: preRun(cfg, func(args []string) {
			if len(args) == 0 {
				cfg.Inputs = []string{"."}
			} else {
				cfg.Inputs = args
			}
		}),
		RunE: run(cfg, logic.RunCheck),
	}

	addFilterFlags(cmd)

	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringSliceP("include", "i", nil, "Include only walked files matching these find -path patterns")
	flags.StringSliceP("exclude", "e", nil, "Exclude walked files and directories matching these find -path patterns")
	flags.String("include-from", "", "Read include patterns from a JSONC file")
	flags.String("exclude-from", "", "Read exclude patterns from a JSONC file")
	flags.Bool("ignore-case", false, "Match include and exclude patterns case-insensitively")
}
