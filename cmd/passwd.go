package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/revealstash/internal/core"
	"github.com/illarion/revealstash/internal/crypto"
	"github.com/illarion/revealstash/internal/keyring"
)

// Passwd changes the stash password
func Passwd(opts Options) {
	stash, _ := OpenStash(opts)
	defer stash.Close()

	vaultID, _ := stash.GetVaultID()

	currentPassword, _, err := GetPasswordWithRetry("Enter current password: ", vaultID, stash.VerifyPassword)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(currentPassword)

	newPassword, err := core.ReadPasswordConfirm()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer crypto.ClearBytes(newPassword)

	if err := stash.ChangePassword(currentPassword, newPassword); err != nil {
		HandleError(err)
	}

	// Refresh the keyring so the next command does not hit a stale entry
	if vaultID != "" && keyring.HasPassword(vaultID) {
		if err := keyring.SavePassword(vaultID, newPassword); err == nil {
			fmt.Println("Keyring updated with new password")
		}
	}

	// Every node was re-encrypted, so the old pages are free
	if err := stash.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}

	fmt.Println("password changed successfully")
}
