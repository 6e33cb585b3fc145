package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/idelchi/volpack/internal/config"
	"github.com/idelchi/volpack/internal/logging"
	"github.com/idelchi/volpack/internal/logic"
)

// NewRootCommand creates the root command with common configuration.
// Every flag can also be set through a VOLPACK_* environment variable or
// the file named by --config.
func NewRootCommand(cfg *config.Config, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "volpack [flags] command [flags]",
		Short: "Multi-volume, encrypted archive utility",
		Long: `Create, extract, list and test solid archives that can be split into
volumes and protected with a password. Blocks are compressed in parallel
with LZMA2, zstd or lz4, and encrypted with AES-256.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate("{{.Version}}\n")

	flags := root.PersistentFlags()

	flags.String("config", "", "Path to a YAML, TOML or JSON configuration file")
	flags.BoolP("show", "s", false, "Show the configuration and exit")
	flags.BoolP("quiet", "q", false, "Suppress non-error output")
	flags.Bool("stats", false, "Print statistics when done")
	flags.String("log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	flags.String("log-format", cfg.LogFormat, "Log format: text or json")
	flags.String("log-file", "", "Write logs to a rotating file instead of stderr")

	flags.StringP("password", "p", "", "Archive password")
	flags.String("password-file", "", "Read the archive password from a file")
	flags.Bool("ask-password", false, "Prompt for the archive password")

	root.AddCommand(
		NewCreateCommand(cfg),
		NewExtractCommand(cfg),
		NewListCommand(cfg),
		NewTestCommand(cfg),
		NewCodecCommand(cfg, lzmaFormat),
		NewCodecCommand(cfg, xzFormat),
		NewPasswordCommand(cfg),
		NewCheckCommand(cfg),
		NewVersionCommand(version),
	)

	return root
}

// preRun returns a PreRunE handler that loads flags, environment and config
// file into cfg, stores the positional args and validates the result.
func preRun(cfg *config.Config, positional func(args []string)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.Load(cmd, cfg); err != nil {
			return err
		}

		if positional != nil {
			positional(args)
		}

		return cfg.Validate()
	}
}

// run returns a RunE handler that sets up logging and calls fn.
func run(cfg *config.Config, fn func(logic.Env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if cfg.Show {
			return show(cmd.OutOrStdout(), cfg)
		}

		log, closer, err := logging.New(cmd.ErrOrStderr(), logging.Options{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			File:   cfg.LogFile,
		})
		if err != nil {
			return err
		}
		defer closer.Close()

		env := logic.NewEnv(cfg, log)
		env.Stdout = cmd.OutOrStdout()
		env.Stderr = cmd.ErrOrStderr()

		return fn(env)
	}
}

// show prints the effective configuration as YAML with the password masked.
func show(w io.Writer, cfg *config.Config) error {
	masked := *cfg
	if masked.Password != "" {
		masked.Password = strings.Repeat("*", len(masked.Password))
	}

	out, err := yaml.Marshal(masked)
	if err != nil {
		return fmt.Errorf("rendering configuration: %w", err)
	}

	_, err = w.Write(out)

	return err
}
