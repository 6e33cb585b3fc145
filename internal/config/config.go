// Package config holds the command-line configuration of volpack.
package config

import (
	"fmt"
	"math"
	"runtime"

	"github.com/dustin/go-humanize"
)

// Config collects flags, environment variables and config-file values.
type Config struct {
	// Common flags
	Show      bool
	Quiet     bool
	Stats     bool
	LogLevel  string `mapstructure:"log-level"  validate:"oneof=debug info warn error" label:"--log-level"`
	LogFormat string `mapstructure:"log-format" validate:"oneof=text json"             label:"--log-format"`
	LogFile   string `mapstructure:"log-file"`

	// Password sources, at most one of them
	Password     string `validate:"exclusive=PasswordFile AskPassword"                label:"--password"`
	PasswordFile string `mapstructure:"password-file" validate:"exclusive=AskPassword" label:"--password-file"`
	AskPassword  bool   `mapstructure:"ask-password"`

	// Creation flags
	Level       int    `validate:"min=0,max=9"                    label:"--level"`
	Method      string `validate:"oneof=lzma2 zstd lz4 store"     label:"--method"`
	Threads     int    `validate:"min=0,max=1024"                 label:"--threads"`
	Dict        string `validate:"omitempty,size"                 label:"--dict"`
	Split       string `validate:"omitempty,size"                 label:"--split"`
	Chunk       string `validate:"omitempty,size"                 label:"--chunk"`
	Solid       bool
	NoProbe     bool     `mapstructure:"no-probe"`
	Include     []string `validate:"dive,required"                  label:"--include"`
	Exclude     []string `validate:"dive,required"                  label:"--exclude"`
	IncludeFrom string   `mapstructure:"include-from"`
	ExcludeFrom string   `mapstructure:"exclude-from"`
	IgnoreCase  bool     `mapstructure:"ignore-case"`

	// Extraction flags
	Output string

	// Test flags
	Parallel int `validate:"min=1" label:"--parallel"`

	// Raw codec flags
	Decompress bool
	Keep       bool

	// Password generation flags
	Length  int `validate:"min=8,max=256" label:"--length"`
	Digits  int `validate:"min=0"         label:"--digits"`
	Symbols int `validate:"min=0"         label:"--symbols"`

	// Positional arguments
	Archive string   `mapstructure:"-"`
	Inputs  []string `mapstructure:"-"`
}

// Default returns the configuration used for values no flag, variable or file sets.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Level:     5, //nolint:mnd
		Method:    "lzma2",
		Solid:     true,
		Parallel:  runtime.NumCPU(),
		Length:    32, //nolint:mnd
		Digits:    6,  //nolint:mnd
		Symbols:   4,  //nolint:mnd
	}
}

// Sizes are the byte values of the size flags, 0 meaning automatic.
type Sizes struct {
	Dict  int
	Split int64
	Chunk int
}

// Sizes parses the human-readable size flags such as "64MiB" or "700MB".
func (c Config) Sizes() (Sizes, error) {
	var sizes Sizes

	dict, err := parseSize(c.Dict)
	if err != nil {
		return sizes, fmt.Errorf("--dict: %w", err)
	}

	split, err := parseSize(c.Split)
	if err != nil {
		return sizes, fmt.Errorf("--split: %w", err)
	}

	chunk, err := parseSize(c.Chunk)
	if err != nil {
		return sizes, fmt.Errorf("--chunk: %w", err)
	}

	switch {
	case dict > math.MaxInt:
		return sizes, fmt.Errorf("--dict: %s is too large", c.Dict)
	case split > math.MaxInt64:
		return sizes, fmt.Errorf("--split: %s is too large", c.Split)
	case chunk > math.MaxInt:
		return sizes, fmt.Errorf("--chunk: %s is too large", c.Chunk)
	}

	sizes.Dict = int(dict)     //nolint:gosec // bounded above
	sizes.Split = int64(split) //nolint:gosec // bounded above
	sizes.Chunk = int(chunk)   //nolint:gosec // bounded above

	return sizes, nil
}

func parseSize(value string) (uint64, error) {
	if value == "" {
		return 0, nil
	}

	return humanize.ParseBytes(value)
}

// Validate validates the configuration against the struct tags.
func (c Config) Validate() error {
	validate, err := newValidator()
	if err != nil {
		return err
	}

	if err := validate.Struct(c); err != nil {
		return describe(err)
	}

	return nil
}
