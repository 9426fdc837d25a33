package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"

	"github.com/illarion/revealstash/internal/consignment"
	"github.com/illarion/revealstash/internal/crypto"
	"github.com/illarion/revealstash/internal/state"
	"github.com/illarion/revealstash/internal/storage"
)

// Outcome says what an import does to one node
type Outcome int

const (
	OutcomeAdded     Outcome = iota // node was not in the stash
	OutcomeUpgraded                 // merge revealed something new
	OutcomeUnchanged                // incoming view added nothing
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeUpgraded:
		return "upgraded"
	case OutcomeUnchanged:
		return "unchanged"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ImportReport lists the node ids touched by an import, by outcome
type ImportReport struct {
	Source    string
	Added     []string
	Upgraded  []string
	Unchanged []string
}

// Total returns the number of nodes in the imported consignment
func (r *ImportReport) Total() int {
	return len(r.Added) + len(r.Upgraded) + len(r.Unchanged)
}

// pendingNode is the result of merging one incoming node with the stash
type pendingNode struct {
	outcome Outcome
	before  *consignment.Node // nil when added
	after   consignment.Node
}

// readConsignment loads a consignment file from inside the working directory
func (s *Stash) readConsignment(path string) (*consignment.Consignment, string, error) {
	validPath, err := s.workdir.Clean(path)
	if err != nil {
		return nil, "", fmt.Errorf("invalid path %s: %w", path, err)
	}
	format, err := consignment.FormatFromPath(validPath)
	if err != nil {
		return nil, "", err
	}

	data, err := s.workdir.ReadFile(validPath, MaxConsignmentSize)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", validPath, err)
	}
	defer crypto.ClearBytes(data)

	c, err := consignment.Decode(data, format)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", validPath, err)
	}
	return c, validPath, nil
}

// plan merges every incoming node with its stored view. It writes nothing:
// the first conflicting node aborts the whole plan.
func (s *Stash) plan(ctx context.Context, db *storage.Storage, enc *crypto.Encryptor, c *consignment.Consignment) ([]pendingNode, error) {
	pending := make([]pendingNode, 0, len(c.Nodes))
	for _, incoming := range c.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := incoming.ID.String()
		stored, err := s.loadNode(db, enc, id)
		if errors.Is(err, ErrNodeNotFound) {
			pending = append(pending, pendingNode{outcome: OutcomeAdded, after: incoming})
			s.logger.Debug("node added",
				zap.String("id", id),
				zap.Stringer("type", incoming.Type),
				zap.Int("revealed", incoming.Rights.CountDisclosure(state.Revealed)))
			continue
		}
		if err != nil {
			return nil, err
		}

		merged, err := consignment.Merge(stored, incoming)
		if err != nil {
			s.logger.Warn("node rejected",
				zap.String("id", id),
				zap.Stringer("type", incoming.Type),
				zap.Error(err))
			return nil, fmt.Errorf("node %s: %w", incoming.ID.Short(), err)
		}

		outcome := OutcomeUpgraded
		if merged.Rights.Equal(stored.Rights) {
			outcome = OutcomeUnchanged
		}
		pending = append(pending, pendingNode{outcome: outcome, before: &stored, after: merged})
		s.logger.Debug("node merged",
			zap.String("id", id),
			zap.Stringer("type", merged.Type),
			zap.Stringer("outcome", outcome),
			zap.Int("revealed_before", stored.Rights.CountDisclosure(state.Revealed)),
			zap.Int("revealed_after", merged.Rights.CountDisclosure(state.Revealed)))
	}
	return pending, nil
}

// Import reveal-merges a consignment into the stash. Unknown nodes are
// added and known nodes are upgraded. If any node fails to merge the
// import is rejected and the stash is left untouched.
func (s *Stash) Import(ctx context.Context, path string, password []byte) (*ImportReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, source, err := s.readConsignment(path)
	if err != nil {
		return nil, err
	}

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	enc, err := s.unlock(db, password)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	pending, err := s.plan(ctx, db, enc, c)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{Source: source}
	err = db.Update(func(tx *storage.Tx) error {
		for _, p := range pending {
			id := p.after.ID.String()
			switch p.outcome {
			case OutcomeUnchanged:
				report.Unchanged = append(report.Unchanged, id)
				continue
			case OutcomeAdded:
				report.Added = append(report.Added, id)
			case OutcomeUpgraded:
				report.Upgraded = append(report.Upgraded, id)
			}
			if err := storeNode(tx, enc, p.after, source); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store import: %w", err)
	}

	s.logger.Info("consignment imported",
		zap.String("source", source),
		zap.Int("added", len(report.Added)),
		zap.Int("upgraded", len(report.Upgraded)),
		zap.Int("unchanged", len(report.Unchanged)))
	return report, nil
}

// Preview shows what Import would change as a unified diff of the
// per-state disclosure view. An empty result means nothing would change.
func (s *Stash) Preview(ctx context.Context, path string, password []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c, source, err := s.readConsignment(path)
	if err != nil {
		return "", err
	}

	db, err := s.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	enc, err := s.unlock(db, password)
	if err != nil {
		return "", err
	}
	defer enc.Destroy()

	pending, err := s.plan(ctx, db, enc, c)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, p := range pending {
		if p.outcome == OutcomeUnchanged {
			continue
		}
		before := ""
		if p.before != nil {
			before = RenderNode(*p.before)
		}
		out.WriteString(GenerateUnifiedDiff(source+"#"+p.after.ID.Short(), before, RenderNode(p.after)))
	}
	return out.String(), nil
}

// RenderNode prints a node one state per line, in key then position order
func RenderNode(n consignment.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "node %s %s\n", n.ID, n.Type)
	for _, e := range n.Rights.Entries() {
		fmt.Fprintf(&b, "  right %d %s\n", e.Type, e.Assignments.Kind())
		for i, st := range e.Assignments.States() {
			fmt.Fprintf(&b, "    %d: %s\n", i, st)
		}
	}
	return b.String()
}

// GenerateUnifiedDiff generates a unified diff using go-diff library
func GenerateUnifiedDiff(name, before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for better output
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(before, diffs)
	if len(patches) == 0 {
		return ""
	}

	var result strings.Builder
	fmt.Fprintf(&result, "--- a/%s\n", name)
	fmt.Fprintf(&result, "+++ b/%s\n", name)
	result.WriteString(dmp.PatchToText(patches))
	return result.String()
}
