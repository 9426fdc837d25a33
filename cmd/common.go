package cmd

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/illarion/revealstash/internal/core"
	"github.com/illarion/revealstash/internal/crypto"
	"github.com/illarion/revealstash/internal/keyring"
	"github.com/illarion/revealstash/internal/reveal"
)

// DebugEnv turns on debug logging for every command
const DebugEnv = "REVEALSTASH_DEBUG"

// PasswordSource says where a password came from
type PasswordSource int

const (
	SourceEnv PasswordSource = iota
	SourceKeyring
	SourcePrompt
)

// Options are the flags shared by every command
type Options struct {
	Verbose bool
}

// NewLogger builds the diagnostic logger. Only warnings reach stderr unless
// verbose output was requested.
func NewLogger(verbose bool) *zap.Logger {
	if verbose || os.Getenv(DebugEnv) == "1" {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		if logger, err := cfg.Build(); err == nil {
			return logger
		}
		return zap.NewNop()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// OpenStash opens the stash in the current directory or exits
func OpenStash(opts Options) (*core.Stash, *zap.Logger) {
	logger := NewLogger(opts.Verbose)
	stash, err := core.New(".", core.WithLogger(logger))
	if err != nil {
		HandleError(err)
	}
	return stash, logger
}

// GetPassword retrieves password from environment or prompts user
// The caller is responsible for calling crypto.ClearBytes on the returned password
func GetPassword(prompt string) ([]byte, error) {
	password := core.GetPasswordFromEnv()
	if password != nil {
		return password, nil
	}

	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	return password, nil
}

// GetPasswordWithRetry tries the environment, then the keyring, then a prompt.
// A keyring entry that no longer verifies is dropped and the user is asked instead.
func GetPasswordWithRetry(prompt, vaultID string, verify func([]byte) error) ([]byte, PasswordSource, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, SourceEnv, nil
	}

	if vaultID != "" {
		if password, err := keyring.GetPassword(vaultID); err == nil {
			if verify(password) == nil {
				return password, SourceKeyring, nil
			}
			crypto.ClearBytes(password)
			fmt.Fprintln(os.Stderr, "Keyring password is stale, removing it")
			_ = keyring.DeletePassword(vaultID)
		}
	}

	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, SourcePrompt, fmt.Errorf("failed to read password: %w", err)
	}
	if err := verify(password); err != nil {
		crypto.ClearBytes(password)
		return nil, SourcePrompt, err
	}
	return password, SourcePrompt, nil
}

// UnlockPassword gets a verified password for stash, exiting on failure.
// The returned source tells the caller whether to offer keyring storage.
func UnlockPassword(stash *core.Stash) ([]byte, PasswordSource) {
	vaultID, _ := stash.GetVaultID()
	password, source, err := GetPasswordWithRetry("Enter password: ", vaultID, stash.VerifyPassword)
	if err != nil {
		HandleError(err)
	}
	return password, source
}

// OfferToSavePassword asks whether a prompted password should go to the keyring
func OfferToSavePassword(stash *core.Stash, password []byte) {
	if !core.IsTerminal() {
		return
	}
	vaultID, err := stash.GetOrCreateVaultID()
	if err != nil || keyring.HasPassword(vaultID) {
		return
	}

	fmt.Print("Save password to keyring? [y/N]: ")
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return
	}
	if answer != "y" && answer != "Y" {
		return
	}
	if err := keyring.SavePassword(vaultID, password); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save to keyring: %s\n", err)
		return
	}
	fmt.Println("Password saved to keyring")
}

// GetPasswordForInit retrieves password for init command
// Checks environment variable first, then prompts with confirmation
func GetPasswordForInit() ([]byte, error) {
	password := core.GetPasswordFromEnv()
	if password != nil {
		return password, nil
	}

	return core.ReadPasswordConfirm()
}

// HandleError handles common errors consistently
func HandleError(err error) {
	switch {
	case errors.Is(err, core.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: revealstash not initialized\n")
		fmt.Fprintf(os.Stderr, "Run 'revealstash init' first\n")
	case errors.Is(err, core.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: %s already exists in this directory\n", core.StashFile)
		fmt.Fprintf(os.Stderr, "Use 'revealstash status' to see current state\n")
	case errors.Is(err, core.ErrWrongPassword):
		fmt.Fprintf(os.Stderr, "Error: wrong password\n")
	case errors.Is(err, core.ErrEmptyStash):
		fmt.Fprintf(os.Stderr, "Error: no nodes in stash\n")
		fmt.Fprintf(os.Stderr, "Use 'revealstash import' to add a consignment\n")
	case errors.Is(err, core.ErrAmbiguousID):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use a longer id prefix\n")
	default:
		if nodeType, ok := reveal.AsNodeMismatch(err); ok {
			fmt.Fprintf(os.Stderr, "Error: conflicting %s node: %s\n", nodeType, err)
			fmt.Fprintf(os.Stderr, "Nothing was imported\n")
			break
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}
