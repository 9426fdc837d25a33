package reveal

import (
	"fmt"

	"github.com/illarion/revealstash/internal/crypto"
	"github.com/illarion/revealstash/internal/state"
)

// Scheme supplies the commitments compared before each merge.
// A scheme must give every disclosure of the same data the same commitment.
type Scheme interface {
	StateCommitment(state.OwnedState) crypto.Digest
	AssignmentsCommitment(state.Assignments) crypto.Digest
	RightsCommitment(state.OwnedRights) crypto.Digest
}

type consensusScheme struct{}

func (consensusScheme) StateCommitment(s state.OwnedState) crypto.Digest { return s.Commit() }

func (consensusScheme) AssignmentsCommitment(a state.Assignments) crypto.Digest { return a.Commit() }

func (consensusScheme) RightsCommitment(r state.OwnedRights) crypto.Digest { return r.MerkleRoot() }

// DefaultScheme uses the consensus commitments of the state package
var DefaultScheme Scheme = consensusScheme{}

// Merger combines two views of the same state into the most revealed one.
// Operands are consumed: callers must not rely on them after a merge.
// The zero value uses DefaultScheme.
type Merger struct {
	Scheme Scheme
}

func (m Merger) scheme() Scheme {
	if m.Scheme == nil {
		return DefaultScheme
	}
	return m.Scheme
}

// MergeState merges two disclosures of one owned state:
//
//	merge(Revealed, any)                          = Revealed
//	merge(ConfidentialSeal, ConfidentialAmount)   = Revealed
//	merge(Confidential, x)                        = x
//	merge(x, x)                                   = x
func (m Merger) MergeState(a, b state.OwnedState) (state.OwnedState, error) {
	if m.scheme().StateCommitment(a) != m.scheme().StateCommitment(b) {
		return state.OwnedState{}, ErrOwnedStateMismatch
	}

	switch a.Disclosure() {
	case state.Revealed:
		return a, nil
	case state.Confidential:
		return b, nil
	case state.ConfidentialSeal:
		switch b.Disclosure() {
		case state.ConfidentialAmount:
			return complete(a, b), nil
		case state.Revealed:
			return b, nil
		case state.Confidential, state.ConfidentialSeal:
			return a, nil
		}
	case state.ConfidentialAmount:
		switch b.Disclosure() {
		case state.ConfidentialSeal:
			return complete(b, a), nil
		case state.Revealed:
			return b, nil
		case state.Confidential, state.ConfidentialAmount:
			return a, nil
		}
	}
	panic(fmt.Sprintf("reveal: invalid disclosure pair %s, %s", a.Disclosure(), b.Disclosure()))
}

// complete assembles a revealed state from the payload of one view and the
// seal of the other
func complete(withPayload, withSeal state.OwnedState) state.OwnedState {
	payload, _ := withPayload.Payload()
	seal, _ := withSeal.Seal()
	return state.NewRevealed(seal, payload)
}

// MergeState merges two owned states with DefaultScheme
func MergeState(a, b state.OwnedState) (state.OwnedState, error) {
	return Merger{}.MergeState(a, b)
}

// MergeAssignments merges two assignments with DefaultScheme
func MergeAssignments(a, b state.Assignments) (state.Assignments, error) {
	return Merger{}.MergeAssignments(a, b)
}

// MergeRights merges two owned rights maps with DefaultScheme
func MergeRights(a, b state.OwnedRights) (state.OwnedRights, error) {
	return Merger{}.MergeRights(a, b)
}
