// Package reveal merges two partial views of the same committed state.
//
// Merging never hides information that either side already knows. Each
// layer first checks that both operands commit to the same data and fails
// with a typed *Error otherwise:
//   - MergeState: ErrOwnedStateMismatch
//   - MergeAssignments: ErrAssignmentMismatch
//   - MergeRights: ErrOwnedRightsMismatch
//
// Failures propagate unchanged from inner layers and no partial result is
// returned. Merges are pure and safe to run concurrently on disjoint operands.
package reveal
