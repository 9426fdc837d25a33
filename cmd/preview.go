package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/revealstash/internal/crypto"
)

// Preview shows what importing a consignment would reveal, without writing
func Preview(ctx context.Context, opts Options, path string) {
	stash, _ := OpenStash(opts)
	defer stash.Close()

	password, _ := UnlockPassword(stash)
	defer crypto.ClearBytes(password)

	diff, err := stash.Preview(ctx, path, password)
	if err != nil {
		HandleError(err)
	}
	if diff == "" {
		fmt.Println("Nothing new to reveal")
		return
	}
	fmt.Print(diff)
}
