package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/revealstash/internal/crypto"
)

// Export writes stored nodes to a consignment file. With conceal set every
// state is reduced to its commitment before writing.
func Export(ctx context.Context, opts Options, out string, ids []string, conceal bool) {
	stash, _ := OpenStash(opts)
	defer stash.Close()

	password, _ := UnlockPassword(stash)
	defer crypto.ClearBytes(password)

	n, err := stash.Export(ctx, password, out, ids, conceal)
	if err != nil {
		HandleError(err)
	}

	if conceal {
		fmt.Printf("exported: %d concealed nodes to %s\n", n, out)
		return
	}
	fmt.Printf("exported: %d nodes to %s\n", n, out)
}
