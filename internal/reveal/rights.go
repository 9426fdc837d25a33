package reveal

import (
	"fmt"

	"github.com/illarion/revealstash/internal/state"
)

// MergeRights merges two views of one owned rights map key by key.
// Both maps are walked in key order; the result takes the keys of a.
func (m Merger) MergeRights(a, b state.OwnedRights) (state.OwnedRights, error) {
	if m.scheme().RightsCommitment(a) != m.scheme().RightsCommitment(b) {
		return state.OwnedRights{}, ErrOwnedRightsMismatch
	}

	left, right := a.Entries(), b.Entries()
	if len(left) != len(right) {
		panic(fmt.Errorf("%w: rights of size %d and %d share a commitment", ErrBrokenCommitment, len(left), len(right)))
	}

	merged := make([]state.Entry, len(left))
	for i := range left {
		assignments, err := m.MergeAssignments(left[i].Assignments, right[i].Assignments)
		if err != nil {
			return state.OwnedRights{}, err
		}
		merged[i] = state.Entry{Type: left[i].Type, Assignments: assignments}
	}
	return state.NewOwnedRights(merged...), nil
}
