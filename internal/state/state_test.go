package state

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testSeal(n byte) SealDefinition {
	var txid Txid
	for i := range txid {
		txid[i] = n
	}
	return SealDefinition{Txid: txid, Vout: uint32(n), Blinding: 1000 + uint64(n)}
}

// views returns the four disclosures of one revealed state
func views(rev OwnedState) (revealed, confSeal, confAmount, conf OwnedState) {
	return rev, rev.ConcealSeal(), rev.ConcealPayload(), rev.Conceal()
}

func TestDisclosure_Lattice(t *testing.T) {
	tests := []struct {
		a, b Disclosure
		join Disclosure
	}{
		{Confidential, Confidential, Confidential},
		{Confidential, ConfidentialSeal, ConfidentialSeal},
		{Confidential, ConfidentialAmount, ConfidentialAmount},
		{Confidential, Revealed, Revealed},
		{ConfidentialSeal, ConfidentialSeal, ConfidentialSeal},
		{ConfidentialSeal, ConfidentialAmount, Revealed},
		{ConfidentialSeal, Revealed, Revealed},
		{ConfidentialAmount, ConfidentialAmount, ConfidentialAmount},
		{ConfidentialAmount, Revealed, Revealed},
		{Revealed, Revealed, Revealed},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"+"+tt.b.String(), func(t *testing.T) {
			if got := tt.a.Join(tt.b); got != tt.join {
				t.Errorf("Join = %s, want %s", got, tt.join)
			}
			if got := tt.b.Join(tt.a); got != tt.join {
				t.Errorf("Join is not commutative: got %s, want %s", got, tt.join)
			}
			if !tt.a.Leq(tt.join) || !tt.b.Leq(tt.join) {
				t.Errorf("join %s is not an upper bound", tt.join)
			}
		})
	}

	if ConfidentialSeal.Leq(ConfidentialAmount) || ConfidentialAmount.Leq(ConfidentialSeal) {
		t.Error("confidential_seal and confidential_amount must be incomparable")
	}
}

func TestDisclosure_Text(t *testing.T) {
	for _, d := range Disclosures {
		text, err := d.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%s) failed: %v", d, err)
		}
		var parsed Disclosure
		if err := parsed.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s) failed: %v", text, err)
		}
		if parsed != d {
			t.Errorf("got %s, want %s", parsed, d)
		}
	}

	var d Disclosure
	if err := d.UnmarshalText([]byte("half_revealed")); !errors.Is(err, ErrUnknownDisclosure) {
		t.Errorf("expected ErrUnknownDisclosure, got %v", err)
	}
	if _, err := Disclosure(4).MarshalText(); !errors.Is(err, ErrUnknownDisclosure) {
		t.Errorf("expected ErrUnknownDisclosure for invalid level, got %v", err)
	}
}

func TestOwnedState_CommitStableAcrossDisclosure(t *testing.T) {
	payloads := []Payload{
		Void{},
		Amount{Value: 42, Blinding: BlindingFactor{1, 2, 3}},
		Data("hello"),
	}

	for _, p := range payloads {
		t.Run(p.Kind().String(), func(t *testing.T) {
			rev, confSeal, confAmount, conf := views(NewRevealed(testSeal(1), p))
			want := rev.Commit()
			for _, s := range []OwnedState{confSeal, confAmount, conf} {
				if s.Commit() != want {
					t.Errorf("%s commitment differs from revealed", s.Disclosure())
				}
			}

			if conf.Disclosure() != Confidential || confSeal.Disclosure() != ConfidentialSeal ||
				confAmount.Disclosure() != ConfidentialAmount {
				t.Error("conceal operations produced unexpected levels")
			}
			if _, ok := conf.Seal(); ok {
				t.Error("confidential state must not expose a seal")
			}
			if _, ok := confAmount.Payload(); ok {
				t.Error("confidential_amount state must not expose a payload")
			}
		})
	}
}

func TestOwnedState_CommitDistinguishesValues(t *testing.T) {
	base := NewRevealed(testSeal(1), Data("hello"))
	others := map[string]OwnedState{
		"other seal":    NewRevealed(testSeal(2), Data("hello")),
		"other payload": NewRevealed(testSeal(1), Data("world")),
		"other kind": NewConfidential(KindDiscrete,
			base.SealCommitment(), base.PayloadCommitment()),
	}

	for name, other := range others {
		if other.Commit() == base.Commit() {
			t.Errorf("%s: commitments must differ", name)
		}
	}
}

func TestOwnedRights_OrderAndLookup(t *testing.T) {
	a := NewAssignments(KindDeclarative, NewRevealed(testSeal(1), Void{}))
	b := NewAssignments(KindCustomData, NewRevealed(testSeal(2), Data("x")))
	c := NewAssignments(KindCustomData, NewRevealed(testSeal(3), Data("y")))

	rights := NewOwnedRights(Entry{Type: 7, Assignments: a}, Entry{Type: 2, Assignments: b}, Entry{Type: 7, Assignments: c})

	var types []TypeID
	for _, e := range rights.Entries() {
		types = append(types, e.Type)
	}
	if diff := cmp.Diff([]TypeID{2, 7}, types); diff != "" {
		t.Errorf("entry order mismatch (-want +got):\n%s", diff)
	}

	got, ok := rights.Get(7)
	if !ok || !got.Equal(c) {
		t.Error("later entry for a repeated type must win")
	}
	if _, ok := rights.Get(3); ok {
		t.Error("unexpected entry for type 3")
	}

	if !RightsFromMap(map[TypeID]Assignments{7: c, 2: b}).Equal(rights) {
		t.Error("RightsFromMap must produce the same ordered rights")
	}
}

func TestOwnedRights_MerkleRoot(t *testing.T) {
	rev := NewRevealed(testSeal(1), Data("payload"))
	revealed := NewOwnedRights(Entry{Type: 1, Assignments: NewAssignments(KindCustomData, rev)})
	concealed := NewOwnedRights(Entry{Type: 1, Assignments: NewAssignments(KindCustomData, rev.Conceal())})

	if revealed.MerkleRoot() != concealed.MerkleRoot() {
		t.Error("Merkle root must not depend on disclosure")
	}

	rekeyed := NewOwnedRights(Entry{Type: 2, Assignments: NewAssignments(KindCustomData, rev)})
	if revealed.MerkleRoot() == rekeyed.MerkleRoot() {
		t.Error("Merkle root must depend on keys")
	}

	extended := NewOwnedRights(
		Entry{Type: 1, Assignments: NewAssignments(KindCustomData, rev)},
		Entry{Type: 2, Assignments: NewAssignments(KindCustomData, rev)},
	)
	if revealed.MerkleRoot() == extended.MerkleRoot() {
		t.Error("Merkle root must depend on entry count")
	}
}

func TestCodec_RoundTripAllDisclosures(t *testing.T) {
	rev, confSeal, confAmount, conf := views(NewRevealed(testSeal(9), Amount{Value: 5, Blinding: BlindingFactor{9}}))
	rights := NewOwnedRights(
		Entry{Type: 1, Assignments: NewAssignments(KindDiscrete, rev, confSeal, confAmount, conf)},
		Entry{Type: 3, Assignments: NewAssignments(KindDeclarative, NewRevealed(testSeal(4), Void{}).ConcealSeal())},
		Entry{Type: 4, Assignments: NewAssignments(KindCustomData, NewRevealed(testSeal(5), Data{}))},
	)

	data, err := json.Marshal(rights)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded OwnedRights
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !decoded.Equal(rights) {
		t.Errorf("decoded rights differ from original:\n%s", data)
	}
}

func TestCodec_RejectsMalformedStates(t *testing.T) {
	seal := `{"txid":"` + strings.Repeat("01", 32) + `","vout":0,"blinding":1}`
	digest := `"` + strings.Repeat("ab", 32) + `"`

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "missing seal facet",
			input:   `[{"type":1,"kind":"custom_data","states":[{"data":"aGk="}]}]`,
			wantErr: ErrInvalidState,
		},
		{
			name:    "both seal facets",
			input:   `[{"type":1,"kind":"custom_data","states":[{"seal":` + seal + `,"concealed_seal":` + digest + `,"data":"aGk="}]}]`,
			wantErr: ErrInvalidState,
		},
		{
			name:    "two payload facets",
			input:   `[{"type":1,"kind":"custom_data","states":[{"seal":` + seal + `,"data":"aGk=","concealed_state":` + digest + `}]}]`,
			wantErr: ErrInvalidState,
		},
		{
			name:    "payload of wrong kind",
			input:   `[{"type":1,"kind":"discrete","states":[{"seal":` + seal + `,"data":"aGk="}]}]`,
			wantErr: ErrKindMismatch,
		},
		{
			name:    "duplicate type",
			input:   `[{"type":1,"kind":"declarative","states":[]},{"type":1,"kind":"declarative","states":[]}]`,
			wantErr: ErrDuplicateType,
		},
		{
			name:    "missing kind",
			input:   `[{"type":1,"states":[]}]`,
			wantErr: ErrMissingKind,
		},
		{
			name:    "unknown kind",
			input:   `[{"type":1,"kind":"fungible","states":[]}]`,
			wantErr: ErrUnknownKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r OwnedRights
			err := json.Unmarshal([]byte(tt.input), &r)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
