package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/revealstash/internal/crypto"
)

// Import reveal-merges consignment files into the stash, one file at a time
func Import(ctx context.Context, opts Options, paths []string) {
	stash, _ := OpenStash(opts)
	defer stash.Close()

	password, source := UnlockPassword(stash)
	defer crypto.ClearBytes(password)

	for _, path := range paths {
		report, err := stash.Import(ctx, path, password)
		if err != nil {
			HandleError(fmt.Errorf("%s: %w", path, err))
		}

		fmt.Printf("%s: %d nodes\n", report.Source, report.Total())
		printIDs("added", report.Added)
		printIDs("upgraded", report.Upgraded)
		if len(report.Unchanged) > 0 {
			fmt.Printf("  unchanged: %d\n", len(report.Unchanged))
		}
	}

	if source == SourcePrompt {
		OfferToSavePassword(stash, password)
	}
}

func printIDs(label string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Printf("  %s: %d\n", label, len(ids))
	for _, id := range ids {
		fmt.Printf("    - %s\n", id)
	}
}
