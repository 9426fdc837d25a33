// Package state models selectively disclosed contract state.
//
// An OwnedState binds a payload to a single-use seal. Either facet may be
// hidden behind its commitment, giving four disclosure levels:
//   - Confidential: seal and payload hidden
//   - ConfidentialSeal: seal hidden, payload revealed
//   - ConfidentialAmount: seal revealed, payload hidden
//   - Revealed: both visible
//
// Assignments group states of one Kind in a fixed order, and OwnedRights map
// right types to assignments in ascending type order. Each layer exposes a
// commitment that is identical for every disclosure of the same data:
// OwnedState.Commit, Assignments.Commit and OwnedRights.MerkleRoot.
package state
