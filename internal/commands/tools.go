package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idelchi/volpack/internal/config"
	"github.com/idelchi/volpack/internal/logic"
	"github.com/idelchi/volpack/pkg/engine"
)

const (
	lzmaFormat = engine.FormatLZMA
	xzFormat   = engine.FormatXZ
)

// NewCodecCommand creates the lzma or xz subcommand for single-file compression.
func NewCodecCommand(cfg *config.Config, format engine.FileFormat) *cobra.Command {
	cmd := &cobra.Command{
		Use:   format.String() + " [flags] files...",
		Short: fmt.Sprintf("Compress or decompress single files in the %s format", format.Extension()),
		Long: fmt.Sprintf(`Compress every file into file%[1]s, or with --decompress restore file from
file%[1]s. The input is removed after success unless --keep is set.`, format.Extension()),
		Args: cobra.MinimumNArgs(1),
		PreRunE: preRun(cfg, func(args []string) {
			cfg.Inputs = args
		}),
		RunE: run(cfg, func(env logic.Env) error {
			return logic.RunCodec(env, format)
		}),
	}

	flags := cmd.Flags()

	flags.BoolP("decompress", "d", false, "Decompress instead of compress")
	flags.BoolP("keep", "k", false, "Keep the input files")
	flags.IntP("level", "l", cfg.Level, "Compression level from 1 to 9")
	flags.IntP("parallel", "j", cfg.Parallel, "Number of parallel workers, defaults to number of CPUs")

	return cmd
}

// NewPasswordCommand creates a new cobra command for the password subcommand.
func NewPasswordCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "password [flags]",
		Aliases: []string{"pw"},
		Short:   "Generate a strong archive password",
		Args:    cobra.NoArgs,
		PreRunE: preRun(cfg, nil),
		RunE:    run(cfg, logic.RunPassword),
	}

	flags := cmd.Flags()

	flags.IntP("length", "n", cfg.Length, "Password length")
	flags.Int("digits", cfg.Digits, "Number of digits")
	flags.Int("symbols", cfg.Symbols, "Number of symbols")

	return cmd
}

// NewVersionCommand creates a new cobra command printing the version.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)

			return err
		},
	}
}
