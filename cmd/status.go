package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/illarion/revealstash/internal/core"
	"github.com/illarion/revealstash/internal/git"
	"github.com/illarion/revealstash/internal/state"
	"github.com/illarion/revealstash/internal/storage"
)

// Status shows the current state of the stash. It does not need a password.
func Status(ctx context.Context, opts Options) {
	stash, _ := OpenStash(opts)
	defer stash.Close()

	status, err := stash.Status(ctx)
	if errors.Is(err, core.ErrNotInitialized) {
		fmt.Printf("No %s file found in current directory\n", core.StashFile)
		fmt.Println("Run 'revealstash init' to create one")
		return
	}
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Stash: %s\n", stash.Path())
	fmt.Printf("  Encryption: %s (PBKDF2, %d iterations)\n", status.Algorithm, status.KDFIterations)
	fmt.Printf("  Consignment version: %d\n", status.Version)
	if !status.LastModified.IsZero() {
		fmt.Printf("  Last modified: %s\n", status.LastModified.Format(time.RFC3339))
	}

	sum := status.Summary
	fmt.Printf("\nNodes: %d (%s)\n", sum.Nodes, formatCounts(sum.ByType))
	fmt.Printf("States: %d (%s)\n", sum.States, formatDisclosures(sum.Disclosures))

	if len(status.Nodes) > 0 {
		fmt.Println()
		for _, e := range status.Nodes {
			fmt.Printf("  %s %-10s %s\n", shortID(e.ID), e.Type, nodeProgress(e))
		}
	}

	if status.GitStatus != nil {
		fmt.Print(git.FormatGitStatus(status.GitStatus, core.StashFile))
	}
}

// nodeProgress reports how much of a node is fully revealed
func nodeProgress(e storage.IndexEntry) string {
	revealed := e.Count(state.Revealed.String())
	switch {
	case e.States == 0:
		return "no states"
	case revealed == e.States:
		return fmt.Sprintf("%d/%d revealed", revealed, e.States)
	default:
		return fmt.Sprintf("%d/%d revealed, %d confidential", revealed, e.States, e.Count(state.Confidential.String()))
	}
}

func formatDisclosures(counts map[string]int) string {
	parts := make([]string, 0, len(state.Disclosures))
	for _, d := range state.Disclosures {
		parts = append(parts, fmt.Sprintf("%s: %d", d, counts[d.String()]))
	}
	return strings.Join(parts, ", ")
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
