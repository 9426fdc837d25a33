package state

import (
	"fmt"

	"github.com/illarion/revealstash/internal/crypto"
)

// OwnedState is one state value bound to a seal, at one disclosure level.
//
// Values are immutable and can only be built through NewRevealed,
// NewConfidentialSeal, NewConfidentialAmount and NewConfidential. Facet
// commitments are computed once at construction, so every disclosure level
// of the same underlying value reports the same Commit().
type OwnedState struct {
	kind          Kind
	disclosure    Disclosure
	seal          SealDefinition
	sealCommit    crypto.Digest
	payload       Payload
	payloadCommit crypto.Digest
}

// NewRevealed builds a state with both seal and payload visible
func NewRevealed(seal SealDefinition, payload Payload) OwnedState {
	return OwnedState{
		kind:          payload.Kind(),
		disclosure:    Revealed,
		seal:          seal,
		sealCommit:    seal.Conceal(),
		payload:       payload,
		payloadCommit: payload.Conceal(),
	}
}

// NewConfidentialSeal builds a state whose seal is hidden behind its commitment
func NewConfidentialSeal(seal crypto.Digest, payload Payload) OwnedState {
	return OwnedState{
		kind:          payload.Kind(),
		disclosure:    ConfidentialSeal,
		sealCommit:    seal,
		payload:       payload,
		payloadCommit: payload.Conceal(),
	}
}

// NewConfidentialAmount builds a state whose payload is hidden behind its commitment
func NewConfidentialAmount(seal SealDefinition, kind Kind, payload crypto.Digest) OwnedState {
	return OwnedState{
		kind:          kind,
		disclosure:    ConfidentialAmount,
		seal:          seal,
		sealCommit:    seal.Conceal(),
		payloadCommit: payload,
	}
}

// NewConfidential builds a fully hidden state
func NewConfidential(kind Kind, seal, payload crypto.Digest) OwnedState {
	return OwnedState{
		kind:          kind,
		disclosure:    Confidential,
		sealCommit:    seal,
		payloadCommit: payload,
	}
}

func (s OwnedState) Kind() Kind { return s.kind }

func (s OwnedState) Disclosure() Disclosure { return s.disclosure }

// Seal returns the seal definition if it is revealed
func (s OwnedState) Seal() (SealDefinition, bool) {
	if !s.disclosure.SealRevealed() {
		return SealDefinition{}, false
	}
	return s.seal, true
}

// Payload returns the assigned payload if it is revealed
func (s OwnedState) Payload() (Payload, bool) {
	if !s.disclosure.PayloadRevealed() {
		return nil, false
	}
	return s.payload, true
}

func (s OwnedState) SealCommitment() crypto.Digest { return s.sealCommit }

func (s OwnedState) PayloadCommitment() crypto.Digest { return s.payloadCommit }

// Commit returns the consensus commitment of the state.
// It covers the kind and both facet commitments, never the revealed data.
func (s OwnedState) Commit() crypto.Digest {
	return crypto.TaggedHash(tagOwnedState, []byte{byte(s.kind)}, s.sealCommit[:], s.payloadCommit[:])
}

// Conceal hides both facets
func (s OwnedState) Conceal() OwnedState {
	return NewConfidential(s.kind, s.sealCommit, s.payloadCommit)
}

// ConcealSeal hides the seal and keeps the payload as it is
func (s OwnedState) ConcealSeal() OwnedState {
	if s.disclosure.PayloadRevealed() {
		return NewConfidentialSeal(s.sealCommit, s.payload)
	}
	return s.Conceal()
}

// ConcealPayload hides the payload and keeps the seal as it is
func (s OwnedState) ConcealPayload() OwnedState {
	if s.disclosure.SealRevealed() {
		return NewConfidentialAmount(s.seal, s.kind, s.payloadCommit)
	}
	return s.Conceal()
}

// Equal reports whether both states are the same value at the same level
func (s OwnedState) Equal(other OwnedState) bool {
	if s.kind != other.kind || s.disclosure != other.disclosure ||
		s.sealCommit != other.sealCommit || s.payloadCommit != other.payloadCommit {
		return false
	}
	if s.disclosure.SealRevealed() && s.seal != other.seal {
		return false
	}
	if s.disclosure.PayloadRevealed() && !payloadsEqual(s.payload, other.payload) {
		return false
	}
	return true
}

func (s OwnedState) String() string {
	seal := "seal=concealed:" + s.sealCommit.Short()
	if s.disclosure.SealRevealed() {
		seal = "seal=" + s.seal.String()
	}
	payload := "state=concealed:" + s.payloadCommit.Short()
	if s.disclosure.PayloadRevealed() {
		payload = "state=" + s.payload.String()
	}
	return fmt.Sprintf("%s %s %s", s.disclosure, seal, payload)
}
