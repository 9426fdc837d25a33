package consignment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/illarion/revealstash/internal/crypto"
	"github.com/illarion/revealstash/internal/reveal"
	"github.com/illarion/revealstash/internal/state"
)

const tagNode = "revealstash:node"

var ErrMissingNodeType = errors.New("node type is required")

// Node is a contract node together with the owned rights it assigns.
// The id commits to the node type and the structure of its rights, so it
// stays the same at every disclosure level.
type Node struct {
	ID     crypto.Digest
	Type   state.NodeType
	Rights state.OwnedRights
}

// NewNode builds a node and computes its id
func NewNode(t state.NodeType, rights state.OwnedRights) Node {
	n := Node{Type: t, Rights: rights}
	n.ID = n.ComputeID()
	return n
}

// ComputeID derives the node id from its type and rights commitment
func (n Node) ComputeID() crypto.Digest {
	root := n.Rights.MerkleRoot()
	return crypto.TaggedHash(tagNode, []byte{byte(n.Type)}, root[:])
}

// Conceal returns the node with every state fully hidden
func (n Node) Conceal() Node {
	return Node{ID: n.ID, Type: n.Type, Rights: n.Rights.Conceal()}
}

// Merge reveal-merges two views of the same node.
// On failure the error matches reveal.NodeMismatchError(a.Type) and, when
// the rights themselves disagree, the underlying layer error as well.
func Merge(a, b Node) (Node, error) {
	if a.ID != b.ID || a.Type != b.Type {
		return Node{}, reveal.NodeMismatchError(a.Type)
	}
	rights, err := reveal.MergeRights(a.Rights, b.Rights)
	if err != nil {
		return Node{}, errors.Join(reveal.NodeMismatchError(a.Type), err)
	}
	return Node{ID: a.ID, Type: a.Type, Rights: rights}, nil
}

type nodeWire struct {
	ID     *crypto.Digest    `json:"id,omitempty"`
	Type   *state.NodeType   `json:"type"`
	Rights state.OwnedRights `json:"rights"`
}

func (n Node) MarshalJSON() ([]byte, error) {
	id, t := n.ID, n.Type
	return json.Marshal(nodeWire{ID: &id, Type: &t, Rights: n.Rights})
}

// UnmarshalJSON decodes a node and checks its declared id, if any,
// against the id computed from its content
func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type == nil {
		return ErrMissingNodeType
	}

	decoded := NewNode(*w.Type, w.Rights)
	if w.ID != nil && *w.ID != decoded.ID {
		return fmt.Errorf("node %s: %w", w.ID.Short(), reveal.NodeMismatchError(decoded.Type))
	}
	*n = decoded
	return nil
}
