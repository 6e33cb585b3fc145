package logic

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sethvargo/go-password/password"
	"github.com/spf13/afero"
	"golang.org/x/term"
)

// ErrPasswordMismatch is returned when a confirmed prompt differs.
var ErrPasswordMismatch = errors.New("passwords do not match")

// TerminalPrompt reads a line from the terminal without echo.
func TerminalPrompt(prompt string) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int

	if !term.IsTerminal(fd) {
		return "", errors.New("--ask-password requires an interactive terminal")
	}

	fmt.Fprint(os.Stderr, prompt)

	secret, err := term.ReadPassword(fd)

	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	return string(secret), nil
}

// password returns the password from --password, --password-file or the
// prompt, or "" when none is configured. confirm asks twice.
func (e Env) password(confirm bool) (string, error) {
	cfg := e.Cfg

	switch {
	case cfg.Password != "":
		return cfg.Password, nil
	case cfg.PasswordFile != "":
		data, err := afero.ReadFile(e.Fs, cfg.PasswordFile)
		if err != nil {
			return "", fmt.Errorf("reading password file: %w", err)
		}

		secret := strings.TrimRight(string(data), "\r\n")
		if secret == "" {
			return "", fmt.Errorf("password file %q is empty", cfg.PasswordFile)
		}

		return secret, nil
	case cfg.AskPassword:
		if e.Prompt == nil {
			return "", errors.New("no terminal to ask for a password")
		}

		secret, err := e.Prompt("Password: ")
		if err != nil {
			return "", err
		}

		if confirm {
			again, err := e.Prompt("Repeat password: ")
			if err != nil {
				return "", err
			}

			if again != secret {
				return "", ErrPasswordMismatch
			}
		}

		return secret, nil
	default:
		return "", nil
	}
}

// RunPassword prints a generated password suitable for archive encryption.
func RunPassword(e Env) error {
	cfg := e.Cfg

	if cfg.Digits+cfg.Symbols > cfg.Length {
		return fmt.Errorf("--digits and --symbols (%d) exceed --length (%d)", cfg.Digits+cfg.Symbols, cfg.Length)
	}

	secret, err := password.Generate(cfg.Length, cfg.Digits, cfg.Symbols, false, true)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}

	fmt.Fprintln(e.Stdout, secret)

	return nil
}
