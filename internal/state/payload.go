package state

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/illarion/revealstash/internal/crypto"
)

// Payload is the revealed value assigned to a seal.
// The set of implementations is closed: Void, Amount and Data.
type Payload interface {
	Kind() Kind
	// Conceal returns the commitment that stands in for the payload when hidden
	Conceal() crypto.Digest
	String() string
	payload()
}

// Void is the payload of declarative rights
type Void struct{}

func (Void) Kind() Kind { return KindDeclarative }

func (Void) Conceal() crypto.Digest {
	return crypto.TaggedHash(tagVoid)
}

func (Void) String() string { return "void" }

func (Void) payload() {}

// Amount is a numeric value with its blinding factor
type Amount struct {
	Value    uint64         `json:"value"`
	Blinding BlindingFactor `json:"blinding"`
}

func (Amount) Kind() Kind { return KindDiscrete }

func (a Amount) Conceal() crypto.Digest {
	var value [8]byte
	binary.BigEndian.PutUint64(value[:], a.Value)
	return crypto.TaggedHash(tagAmount, value[:], a.Blinding[:])
}

func (a Amount) String() string { return fmt.Sprintf("amount=%d", a.Value) }

func (Amount) payload() {}

// Data is an opaque custom payload
type Data []byte

func (Data) Kind() Kind { return KindCustomData }

func (d Data) Conceal() crypto.Digest {
	return crypto.TaggedHash(tagData, d)
}

func (d Data) String() string { return fmt.Sprintf("data=%d bytes", len(d)) }

func (Data) payload() {}

func payloadsEqual(a, b Payload) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch pa := a.(type) {
	case Void:
		_, ok := b.(Void)
		return ok
	case Amount:
		pb, ok := b.(Amount)
		return ok && pa == pb
	case Data:
		pb, ok := b.(Data)
		return ok && bytes.Equal(pa, pb)
	}
	return false
}
