package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/revealstash/internal/core"
	"github.com/illarion/revealstash/internal/crypto"
)

// Init creates a new stash in the current directory
func Init(opts Options) {
	stash, _ := OpenStash(opts)
	defer stash.Close()

	// Read password (env var or prompt with confirmation)
	password, err := GetPasswordForInit()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer crypto.ClearBytes(password)

	if err := stash.Init(password); err != nil {
		HandleError(err)
	}

	fmt.Printf("Initialized %s\n", core.StashFile)
}
