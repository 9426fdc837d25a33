package state

import "fmt"

// Kind tags an assignment with the type of state its entries carry
type Kind uint8

const (
	KindDeclarative Kind = iota // rights without payload
	KindDiscrete                // blinded numeric amounts
	KindCustomData              // opaque data, concealed by hash
)

var kindNames = [...]string{
	KindDeclarative: "declarative",
	KindDiscrete:    "discrete",
	KindCustomData:  "custom_data",
}

func (k Kind) Valid() bool {
	return int(k) < len(kindNames)
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// NodeType identifies the contract node that owns a set of rights
type NodeType uint8

const (
	Genesis NodeType = iota
	Extension
	Transition
)

var nodeTypeNames = [...]string{
	Genesis:    "genesis",
	Extension:  "extension",
	Transition: "transition",
}

func (t NodeType) Valid() bool {
	return int(t) < len(nodeTypeNames)
}

func (t NodeType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("node(%d)", uint8(t))
	}
	return nodeTypeNames[t]
}

func ParseNodeType(s string) (NodeType, error) {
	for i, name := range nodeTypeNames {
		if name == s {
			return NodeType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownNodeType, s)
}

func (t NodeType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNodeType, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *NodeType) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
