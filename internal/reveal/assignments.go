package reveal

import (
	"fmt"

	"github.com/illarion/revealstash/internal/state"
)

// MergeAssignments merges two views of one assignment position by position.
//
// Equal aggregate commitments imply equal kind and length. Operands that
// pass the commitment check but disagree on either mean the scheme is not
// injective; that is an invariant breach and panics with ErrBrokenCommitment.
func (m Merger) MergeAssignments(a, b state.Assignments) (state.Assignments, error) {
	if m.scheme().AssignmentsCommitment(a) != m.scheme().AssignmentsCommitment(b) {
		return state.Assignments{}, ErrAssignmentMismatch
	}
	if a.Kind() != b.Kind() {
		panic(fmt.Errorf("%w: %s and %s assignments share a commitment", ErrBrokenCommitment, a.Kind(), b.Kind()))
	}
	if a.Len() != b.Len() {
		panic(fmt.Errorf("%w: assignments of length %d and %d share a commitment", ErrBrokenCommitment, a.Len(), b.Len()))
	}

	merged := make([]state.OwnedState, a.Len())
	for i := range merged {
		s, err := m.MergeState(a.At(i), b.At(i))
		if err != nil {
			return state.Assignments{}, err
		}
		merged[i] = s
	}
	return state.NewAssignments(a.Kind(), merged...), nil
}
