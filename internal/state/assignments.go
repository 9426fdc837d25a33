package state

import (
	"encoding/binary"
	"sort"

	"github.com/illarion/revealstash/internal/crypto"
)

// Assignments is an ordered collection of owned states of a single kind.
// Order is significant: two views of the same assignments list the same
// values at the same positions.
type Assignments struct {
	kind   Kind
	states []OwnedState
}

// NewAssignments copies states into a collection tagged with kind.
// The tag is taken as given; Decode is where untrusted input is checked.
func NewAssignments(kind Kind, states ...OwnedState) Assignments {
	return Assignments{kind: kind, states: append([]OwnedState(nil), states...)}
}

func (a Assignments) Kind() Kind { return a.kind }

func (a Assignments) Len() int { return len(a.states) }

// At returns the state at position i
func (a Assignments) At(i int) OwnedState { return a.states[i] }

// States returns a copy of the states in order
func (a Assignments) States() []OwnedState {
	return append([]OwnedState(nil), a.states...)
}

// Commit returns the aggregate commitment: the kind plus every element's
// commitment in order. It does not depend on disclosure levels.
func (a Assignments) Commit() crypto.Digest {
	parts := make([][]byte, 0, len(a.states)+1)
	parts = append(parts, []byte{byte(a.kind)})
	for _, s := range a.states {
		c := s.Commit()
		parts = append(parts, c[:])
	}
	return crypto.TaggedHash(tagAssignments, parts...)
}

// Conceal hides every state in the collection
func (a Assignments) Conceal() Assignments {
	concealed := make([]OwnedState, len(a.states))
	for i, s := range a.states {
		concealed[i] = s.Conceal()
	}
	return Assignments{kind: a.kind, states: concealed}
}

// CountDisclosure returns how many states sit at level d
func (a Assignments) CountDisclosure(d Disclosure) int {
	n := 0
	for _, s := range a.states {
		if s.disclosure == d {
			n++
		}
	}
	return n
}

func (a Assignments) Equal(other Assignments) bool {
	if a.kind != other.kind || len(a.states) != len(other.states) {
		return false
	}
	for i := range a.states {
		if !a.states[i].Equal(other.states[i]) {
			return false
		}
	}
	return true
}

// TypeID identifies the owned right type an assignment belongs to
type TypeID uint16

// Entry is one key/value pair of OwnedRights
type Entry struct {
	Type        TypeID
	Assignments Assignments
}

// OwnedRights maps right types to assignments, ordered by ascending type
type OwnedRights struct {
	entries []Entry
}

// NewOwnedRights orders entries by type. When a type repeats the later
// entry wins, as with successive map inserts.
func NewOwnedRights(entries ...Entry) OwnedRights {
	sorted := make([]Entry, 0, len(entries))
	for _, e := range entries {
		i := sort.Search(len(sorted), func(i int) bool { return sorted[i].Type >= e.Type })
		if i < len(sorted) && sorted[i].Type == e.Type {
			sorted[i] = e
			continue
		}
		sorted = append(sorted, Entry{})
		copy(sorted[i+1:], sorted[i:])
		sorted[i] = e
	}
	return OwnedRights{entries: sorted}
}

// RightsFromMap builds OwnedRights from an unordered map
func RightsFromMap(m map[TypeID]Assignments) OwnedRights {
	entries := make([]Entry, 0, len(m))
	for t, a := range m {
		entries = append(entries, Entry{Type: t, Assignments: a})
	}
	return NewOwnedRights(entries...)
}

func (r OwnedRights) Len() int { return len(r.entries) }

// Entries returns a copy of the entries in key order
func (r OwnedRights) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Get returns the assignments stored under t
func (r OwnedRights) Get(t TypeID) (Assignments, bool) {
	i := sort.Search(len(r.entries), func(i int) bool { return r.entries[i].Type >= t })
	if i < len(r.entries) && r.entries[i].Type == t {
		return r.entries[i].Assignments, true
	}
	return Assignments{}, false
}

// MerkleRoot returns the structural commitment over the whole map.
// Each leaf commits to a key and its assignments in concealed form.
func (r OwnedRights) MerkleRoot() crypto.Digest {
	leaves := make([]crypto.Digest, len(r.entries))
	for i, e := range r.entries {
		var key [2]byte
		binary.BigEndian.PutUint16(key[:], uint16(e.Type))
		commit := e.Assignments.Conceal().Commit()
		leaves[i] = crypto.TaggedHash(tagRightsLeaf, key[:], commit[:])
	}
	return crypto.MerkleRoot(tagOwnedRights, leaves)
}

// Conceal hides every state under every key
func (r OwnedRights) Conceal() OwnedRights {
	concealed := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		concealed[i] = Entry{Type: e.Type, Assignments: e.Assignments.Conceal()}
	}
	return OwnedRights{entries: concealed}
}

// CountDisclosure returns how many states across all keys sit at level d
func (r OwnedRights) CountDisclosure(d Disclosure) int {
	n := 0
	for _, e := range r.entries {
		n += e.Assignments.CountDisclosure(d)
	}
	return n
}

// StateCount returns the number of states across all keys
func (r OwnedRights) StateCount() int {
	n := 0
	for _, e := range r.entries {
		n += e.Assignments.Len()
	}
	return n
}

func (r OwnedRights) Equal(other OwnedRights) bool {
	if len(r.entries) != len(other.entries) {
		return false
	}
	for i := range r.entries {
		if r.entries[i].Type != other.entries[i].Type ||
			!r.entries[i].Assignments.Equal(other.entries[i].Assignments) {
			return false
		}
	}
	return true
}
