// Package commands provides the command-line interface for the volpack tool.
//
// It implements commands for:
//   - creating, extracting, listing and testing volpack archives
//   - single-file .lzma and .xz compression
//   - password generation and include/exclude pattern checks
//
// The package handles command-line parsing, configuration validation,
// and environment variable binding through cobra and viper.
package commands
