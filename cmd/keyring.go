package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/revealstash/internal/core"
	"github.com/illarion/revealstash/internal/crypto"
	"github.com/illarion/revealstash/internal/keyring"
)

// KeyringSave saves the password to the OS keyring
func KeyringSave(opts Options) {
	stash, _ := OpenStash(opts)
	defer stash.Close()

	password, err := core.ReadPassword("Enter password: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer crypto.ClearBytes(password)

	if err := stash.VerifyPassword(password); err != nil {
		HandleError(err)
	}

	vaultID, err := stash.GetOrCreateVaultID()
	if err != nil {
		HandleError(err)
	}

	if err := keyring.SavePassword(vaultID, password); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Password saved to keyring")
}

// KeyringDelete removes the password from the OS keyring
func KeyringDelete(opts Options) {
	stash, _ := OpenStash(opts)
	defer stash.Close()

	vaultID, err := stash.GetVaultID()
	if err != nil || !keyring.HasPassword(vaultID) {
		fmt.Println("No password stored in keyring")
		return
	}

	if err := keyring.DeletePassword(vaultID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to remove from keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Password removed from keyring")
}

// KeyringStatus checks if a password is stored in the keyring
func KeyringStatus(opts Options) {
	stash, _ := OpenStash(opts)
	defer stash.Close()

	vaultID, err := stash.GetVaultID()
	if err != nil {
		fmt.Println("Password: not stored")
		return
	}

	if keyring.HasPassword(vaultID) {
		fmt.Println("Password: stored in keyring")
	} else {
		fmt.Println("Password: not stored")
	}
}
