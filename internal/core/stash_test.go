package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/illarion/revealstash/internal/consignment"
	"github.com/illarion/revealstash/internal/reveal"
	"github.com/illarion/revealstash/internal/state"
)

var testPassword = []byte("test123")

func newTestStash(t *testing.T) (*Stash, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir, WithIterations(1000))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Init(testPassword); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return s, dir
}

func testSeal(n byte) state.SealDefinition {
	var txid state.Txid
	for i := range txid {
		txid[i] = n
	}
	return state.SealDefinition{Txid: txid, Vout: uint32(n), Blinding: uint64(n) * 3}
}

func revealedNode(t state.NodeType, seed byte) consignment.Node {
	return consignment.NewNode(t, state.NewOwnedRights(
		state.Entry{Type: 1, Assignments: state.NewAssignments(state.KindDiscrete,
			state.NewRevealed(testSeal(seed), state.Amount{Value: 1000 + uint64(seed), Blinding: state.BlindingFactor{seed}}),
			state.NewRevealed(testSeal(seed+1), state.Amount{Value: 7}))},
		state.Entry{Type: 4, Assignments: state.NewAssignments(state.KindCustomData,
			state.NewRevealed(testSeal(seed+2), state.Data("metadata")))},
	))
}

// view applies conceal to every state of n
func view(n consignment.Node, conceal func(state.OwnedState) state.OwnedState) consignment.Node {
	var entries []state.Entry
	for _, e := range n.Rights.Entries() {
		states := e.Assignments.States()
		for i := range states {
			states[i] = conceal(states[i])
		}
		entries = append(entries, state.Entry{Type: e.Type, Assignments: state.NewAssignments(e.Assignments.Kind(), states...)})
	}
	return consignment.Node{ID: n.ID, Type: n.Type, Rights: state.NewOwnedRights(entries...)}
}

func writeConsignment(t *testing.T, dir, name string, nodes ...consignment.Node) string {
	t.Helper()
	format, err := consignment.FormatFromPath(name)
	if err != nil {
		t.Fatalf("FormatFromPath failed: %v", err)
	}
	data, err := consignment.Encode(&consignment.Consignment{Version: consignment.Version, Nodes: nodes}, format)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0600); err != nil {
		t.Fatalf("Failed to write consignment: %v", err)
	}
	return name
}

func TestInit(t *testing.T) {
	s, dir := newTestStash(t)

	if _, err := os.Stat(filepath.Join(dir, StashFile)); err != nil {
		t.Errorf("Stash file should exist: %v", err)
	}
	if err := s.Init(testPassword); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
	if err := s.VerifyPassword(testPassword); err != nil {
		t.Errorf("VerifyPassword failed: %v", err)
	}
	if err := s.VerifyPassword([]byte("wrong")); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}
}

func TestNotInitialized(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	if _, err := s.Status(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestImport_AddedThenUnchanged(t *testing.T) {
	s, dir := newTestStash(t)
	ctx := context.Background()
	n := revealedNode(state.Genesis, 1)
	path := writeConsignment(t, dir, "genesis.json", n)

	report, err := s.Import(ctx, path, testPassword)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if diff := cmp.Diff([]string{n.ID.String()}, report.Added); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}

	report, err = s.Import(ctx, path, testPassword)
	if err != nil {
		t.Fatalf("second Import failed: %v", err)
	}
	if len(report.Added) != 0 || len(report.Upgraded) != 0 || len(report.Unchanged) != 1 {
		t.Errorf("Repeated import must be a no-op, got %+v", report)
	}
}

func TestImport_ComplementaryViewsReveal(t *testing.T) {
	s, dir := newTestStash(t)
	ctx := context.Background()
	n := revealedNode(state.Transition, 10)

	sealsHidden := writeConsignment(t, dir, "payloads.json", view(n, state.OwnedState.ConcealSeal))
	payloadsHidden := writeConsignment(t, dir, "seals.yaml", view(n, state.OwnedState.ConcealPayload))

	if _, err := s.Import(ctx, sealsHidden, testPassword); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	report, err := s.Import(ctx, payloadsHidden, testPassword)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if diff := cmp.Diff([]string{n.ID.String()}, report.Upgraded); diff != "" {
		t.Errorf("upgraded mismatch (-want +got):\n%s", diff)
	}

	got, err := s.Show(ctx, testPassword, n.ID.String())
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if diff := cmp.Diff(n, *got); diff != "" {
		t.Errorf("stored node mismatch (-want +got):\n%s", diff)
	}

	status, err := s.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Nodes[0].Count("revealed") != n.Rights.StateCount() {
		t.Errorf("Index must report every state revealed, got %v", status.Nodes[0].Disclosures)
	}
	if status.Nodes[0].Source != payloadsHidden {
		t.Errorf("Source = %s, want %s", status.Nodes[0].Source, payloadsHidden)
	}
}

func TestImport_ConcealedViewNeverDowngrades(t *testing.T) {
	s, dir := newTestStash(t)
	ctx := context.Background()
	n := revealedNode(state.Extension, 20)

	if _, err := s.Import(ctx, writeConsignment(t, dir, "full.json", n), testPassword); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	report, err := s.Import(ctx, writeConsignment(t, dir, "hidden.json", n.Conceal()), testPassword)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(report.Unchanged) != 1 {
		t.Errorf("Expected unchanged node, got %+v", report)
	}

	got, err := s.Show(ctx, testPassword, n.ID.String())
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if !got.Rights.Equal(n.Rights) {
		t.Error("Importing a concealed view must not hide stored data")
	}
}

func TestImport_ForgedNodeRejected(t *testing.T) {
	s, dir := newTestStash(t)
	ctx := context.Background()
	n := revealedNode(state.Transition, 30)

	if _, err := s.Import(ctx, writeConsignment(t, dir, "good.json", n), testPassword); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	// Same id, different rights, alongside an otherwise valid new node
	forged := revealedNode(state.Transition, 31)
	forged.ID = n.ID
	fresh := revealedNode(state.Genesis, 40)
	path := writeConsignment(t, dir, "forged.json", fresh, forged)

	_, err := s.Import(ctx, path, testPassword)
	if !errors.Is(err, reveal.NodeMismatchError(state.Transition)) {
		t.Fatalf("Expected NodeMismatch(transition), got %v", err)
	}
	if typ, ok := reveal.AsNodeMismatch(err); !ok || typ != state.Transition {
		t.Errorf("AsNodeMismatch = %s, %v", typ, ok)
	}

	status, err := s.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Summary.Nodes != 1 {
		t.Errorf("Rejected import must not write anything, got %d nodes", status.Summary.Nodes)
	}
	got, err := s.Show(ctx, testPassword, n.ID.String())
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if diff := cmp.Diff(n, *got); diff != "" {
		t.Errorf("stored node changed (-want +got):\n%s", diff)
	}
}

func TestImport_Errors(t *testing.T) {
	s, dir := newTestStash(t)
	ctx := context.Background()
	path := writeConsignment(t, dir, "node.json", revealedNode(state.Genesis, 1))

	tests := []struct {
		name     string
		path     string
		password []byte
		wantErr  error
	}{
		{"wrong password", path, []byte("nope"), ErrWrongPassword},
		{"missing password", path, nil, ErrPasswordRequired},
		{"unknown extension", "node.txt", testPassword, consignment.ErrUnknownFormat},
		{"missing file", "absent.json", testPassword, os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Import(ctx, tt.path, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := s.Import(ctx, "../outside.json", testPassword); err == nil {
		t.Error("Expected error for path outside working directory")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.Import(cancelled, path, testPassword); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	s, dir := newTestStash(t)
	ctx := context.Background()
	n := revealedNode(state.Transition, 50)

	partial := writeConsignment(t, dir, "partial.json", view(n, state.OwnedState.ConcealSeal))
	full := writeConsignment(t, dir, "full.json", n)

	if _, err := s.Import(ctx, partial, testPassword); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	out, err := s.Preview(ctx, full, testPassword)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if !strings.Contains(out, "+++ b/full.json#"+n.ID.Short()) {
		t.Errorf("Preview missing header:\n%s", out)
	}
	if !strings.Contains(out, "confidential_seal") || !strings.Contains(out, "revealed") {
		t.Errorf("Preview must show the disclosure upgrade:\n%s", out)
	}

	status, err := s.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Summary.Disclosures["revealed"] != 0 {
		t.Error("Preview must not write")
	}

	out, err = s.Preview(ctx, partial, testPassword)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if out != "" {
		t.Errorf("Expected empty preview for a known view, got:\n%s", out)
	}
}

func TestExportConcealedRoundTrip(t *testing.T) {
	s, dir := newTestStash(t)
	ctx := context.Background()
	nodes := []consignment.Node{revealedNode(state.Genesis, 60), revealedNode(state.Transition, 70)}

	if _, err := s.Import(ctx, writeConsignment(t, dir, "all.json", nodes...), testPassword); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	count, err := s.Export(ctx, testPassword, "out.yaml", nil, true)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Exported %d nodes, want 2", count)
	}

	exported, err := os.ReadFile(filepath.Join(dir, "out.yaml"))
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if strings.Contains(string(exported), "amount") {
		t.Errorf("Concealed export leaks payloads:\n%s", exported)
	}

	other, otherDir := newTestStash(t)
	if err := os.WriteFile(filepath.Join(otherDir, "in.yaml"), exported, 0600); err != nil {
		t.Fatalf("Failed to copy export: %v", err)
	}
	report, err := other.Import(ctx, "in.yaml", testPassword)
	if err != nil {
		t.Fatalf("Import into fresh stash failed: %v", err)
	}

	var want []string
	for _, n := range nodes {
		want = append(want, n.ID.String())
	}
	got := append([]string(nil), report.Added...)
	if diff := cmp.Diff(want, got, cmpSorted); diff != "" {
		t.Errorf("node ids mismatch (-want +got):\n%s", diff)
	}

	status, err := other.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Summary.Disclosures["confidential"] != status.Summary.States {
		t.Errorf("Expected every state confidential, got %v", status.Summary.Disclosures)
	}
}

var cmpSorted = cmp.Transformer("sort", func(in []string) []string {
	out := append([]string(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
})

func TestShow_Prefix(t *testing.T) {
	s, dir := newTestStash(t)
	ctx := context.Background()
	n := revealedNode(state.Genesis, 80)

	if _, err := s.Import(ctx, writeConsignment(t, dir, "n.json", n), testPassword); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	got, err := s.Show(ctx, testPassword, strings.ToUpper(n.ID.Short()))
	if err != nil {
		t.Fatalf("Show by prefix failed: %v", err)
	}
	if got.ID != n.ID {
		t.Errorf("Show returned %s, want %s", got.ID, n.ID)
	}

	if _, err := s.Show(ctx, testPassword, "zz"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound, got %v", err)
	}
	if _, err := s.Export(ctx, testPassword, "out.json", []string{""}, false); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound for empty id, got %v", err)
	}
}

func TestExport_EmptyStash(t *testing.T) {
	s, _ := newTestStash(t)

	if _, err := s.Export(context.Background(), testPassword, "out.json", nil, false); !errors.Is(err, ErrEmptyStash) {
		t.Errorf("Expected ErrEmptyStash, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	s, dir := newTestStash(t)
	ctx := context.Background()
	n := revealedNode(state.Transition, 90)
	newPassword := []byte("rotated")

	if _, err := s.Import(ctx, writeConsignment(t, dir, "n.json", n), testPassword); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if err := s.ChangePassword([]byte("wrong"), newPassword); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}
	if err := s.ChangePassword(testPassword, newPassword); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if err := s.VerifyPassword(testPassword); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Old password must stop working, got %v", err)
	}
	got, err := s.Show(ctx, newPassword, n.ID.String())
	if err != nil {
		t.Fatalf("Show with new password failed: %v", err)
	}
	if diff := cmp.Diff(n, *got); diff != "" {
		t.Errorf("node mismatch after rotation (-want +got):\n%s", diff)
	}

	status, err := s.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Nodes[0].Source != "n.json" {
		t.Errorf("Rotation must keep the node source, got %q", status.Nodes[0].Source)
	}
}

func TestCompactAndVaultID(t *testing.T) {
	s, dir := newTestStash(t)
	ctx := context.Background()
	n := revealedNode(state.Genesis, 100)

	if _, err := s.Import(ctx, writeConsignment(t, dir, "n.json", view(n, state.OwnedState.Conceal)), testPassword); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if _, err := s.Import(ctx, writeConsignment(t, dir, "m.json", n), testPassword); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	id, err := s.GetOrCreateVaultID()
	if err != nil {
		t.Fatalf("GetOrCreateVaultID failed: %v", err)
	}
	if err := s.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	again, err := s.GetVaultID()
	if err != nil {
		t.Fatalf("GetVaultID failed: %v", err)
	}
	if again != id {
		t.Errorf("Vault id changed across compact: %s != %s", again, id)
	}
	if _, err := s.Show(ctx, testPassword, n.ID.String()); err != nil {
		t.Errorf("Show after compact failed: %v", err)
	}
}

func TestGenerateUnifiedDiff(t *testing.T) {
	if got := GenerateUnifiedDiff("x", "same\n", "same\n"); got != "" {
		t.Errorf("Expected empty diff, got %q", got)
	}

	got := GenerateUnifiedDiff("node", "a\nb\n", "a\nc\n")
	for _, want := range []string{"--- a/node\n", "+++ b/node\n", "-b", "+c"} {
		if !strings.Contains(got, want) {
			t.Errorf("Diff missing %q:\n%s", want, got)
		}
	}
}
