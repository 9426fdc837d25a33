package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/revealstash/internal/core"
	"github.com/illarion/revealstash/internal/crypto"
)

// Show prints the stored view of each named node
func Show(ctx context.Context, opts Options, ids []string) {
	stash, _ := OpenStash(opts)
	defer stash.Close()

	password, _ := UnlockPassword(stash)
	defer crypto.ClearBytes(password)

	for i, id := range ids {
		node, err := stash.Show(ctx, password, id)
		if err != nil {
			HandleError(fmt.Errorf("%s: %w", id, err))
		}
		if i > 0 {
			fmt.Println()
		}
		fmt.Print(core.RenderNode(*node))
	}
}
