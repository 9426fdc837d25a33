package reveal

import (
	"errors"
	"fmt"

	"github.com/illarion/revealstash/internal/state"
)

// ErrorKind enumerates why two views could not be reveal-merged
type ErrorKind uint8

const (
	OwnedStateMismatch ErrorKind = iota
	AssignmentMismatch
	OwnedRightsMismatch
	// AnchorsMismatch is reserved for merging anchors of the same node
	AnchorsMismatch
	// NodeMismatch is reserved for merging whole nodes; Error.Node says which type
	NodeMismatch
)

// Error is a typed reveal-merge failure. It is never retryable: the two
// operands do not commit to the same state.
type Error struct {
	Kind ErrorKind
	Node state.NodeType
}

var (
	ErrOwnedStateMismatch  = &Error{Kind: OwnedStateMismatch}
	ErrAssignmentMismatch  = &Error{Kind: AssignmentMismatch}
	ErrOwnedRightsMismatch = &Error{Kind: OwnedRightsMismatch}
	ErrAnchorsMismatch     = &Error{Kind: AnchorsMismatch}

	// ErrBrokenCommitment is wrapped by the panic raised when operands with
	// equal commitments turn out to be structurally different.
	ErrBrokenCommitment = errors.New("commitment scheme is broken")
)

// NodeMismatchError reports that two nodes of type t do not commit to the same data
func NodeMismatchError(t state.NodeType) *Error {
	return &Error{Kind: NodeMismatch, Node: t}
}

func (e *Error) Error() string {
	switch e.Kind {
	case OwnedStateMismatch:
		return "owned state has different commitment ids and can't be reveal-merged"
	case AssignmentMismatch:
		return "assignment has different commitment ids and can't be reveal-merged"
	case OwnedRightsMismatch:
		return "owned rights have different commitment ids and can't be reveal-merged"
	case AnchorsMismatch:
		return "anchors have different commitment ids and can't be reveal-merged"
	case NodeMismatch:
		return fmt.Sprintf("node of type %s has different commitment ids and can't be reveal-merged", e.Node)
	}
	return fmt.Sprintf("reveal-merge error %d", e.Kind)
}

// Is matches errors of the same kind; node mismatches also compare the node type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return e.Kind != NodeMismatch || e.Node == t.Node
}

// AsNodeMismatch returns the node type of a NodeMismatch anywhere in err's chain
func AsNodeMismatch(err error) (state.NodeType, bool) {
	for _, t := range []state.NodeType{state.Genesis, state.Extension, state.Transition} {
		if errors.Is(err, NodeMismatchError(t)) {
			return t, true
		}
	}
	return 0, false
}
