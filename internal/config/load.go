package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables mirroring every flag,
// e.g. VOLPACK_SPLIT for --split.
const EnvPrefix = "VOLPACK"

// Load merges the config file named by --config, VOLPACK_* variables and the
// flags of cmd into cfg. Flags win over variables, variables over the file.
func Load(cmd *cobra.Command, cfg *Config) error {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return fmt.Errorf("config file %q not found: %w", file, err)
			}

			return fmt.Errorf("reading config file %q: %w", file, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	return nil
}
