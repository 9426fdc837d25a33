package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/illarion/revealstash/internal/crypto"
)

var (
	ErrInvalidState  = errors.New("invalid owned state")
	ErrKindMismatch  = errors.New("payload kind does not match assignment kind")
	ErrDuplicateType = errors.New("duplicate owned right type")
	ErrMissingKind   = errors.New("assignment kind is required")
)

// stateWire is the JSON shape of one owned state. Exactly one seal facet
// and exactly one payload facet are present; which ones determines the
// disclosure level.
type stateWire struct {
	Seal           *SealDefinition `json:"seal,omitempty"`
	ConcealedSeal  *crypto.Digest  `json:"concealed_seal,omitempty"`
	Void           bool            `json:"void,omitempty"`
	Amount         *Amount         `json:"amount,omitempty"`
	Data           *Data           `json:"data,omitempty"`
	ConcealedState *crypto.Digest  `json:"concealed_state,omitempty"`
}

type assignmentsWire struct {
	Kind   *Kind       `json:"kind"`
	States []stateWire `json:"states"`
}

type rightsWire struct {
	Type   TypeID      `json:"type"`
	Kind   *Kind       `json:"kind"`
	States []stateWire `json:"states"`
}

func encodeState(s OwnedState) stateWire {
	var w stateWire
	if s.disclosure.SealRevealed() {
		seal := s.seal
		w.Seal = &seal
	} else {
		commit := s.sealCommit
		w.ConcealedSeal = &commit
	}

	if !s.disclosure.PayloadRevealed() {
		commit := s.payloadCommit
		w.ConcealedState = &commit
		return w
	}
	switch p := s.payload.(type) {
	case Void:
		w.Void = true
	case Amount:
		w.Amount = &p
	case Data:
		w.Data = &p
	}
	return w
}

func decodeState(kind Kind, w stateWire) (OwnedState, error) {
	if (w.Seal == nil) == (w.ConcealedSeal == nil) {
		return OwnedState{}, fmt.Errorf("%w: exactly one of seal and concealed_seal is required", ErrInvalidState)
	}

	var payload Payload
	facets := 0
	if w.Void {
		payload = Void{}
		facets++
	}
	if w.Amount != nil {
		payload = *w.Amount
		facets++
	}
	if w.Data != nil {
		payload = *w.Data
		facets++
	}
	if w.ConcealedState != nil {
		facets++
	}
	if facets != 1 {
		return OwnedState{}, fmt.Errorf("%w: exactly one of void, amount, data and concealed_state is required", ErrInvalidState)
	}
	if payload != nil && payload.Kind() != kind {
		return OwnedState{}, fmt.Errorf("%w: %s payload in %s assignment", ErrKindMismatch, payload.Kind(), kind)
	}

	switch {
	case w.Seal != nil && payload != nil:
		return NewRevealed(*w.Seal, payload), nil
	case w.Seal != nil:
		return NewConfidentialAmount(*w.Seal, kind, *w.ConcealedState), nil
	case payload != nil:
		return NewConfidentialSeal(*w.ConcealedSeal, payload), nil
	default:
		return NewConfidential(kind, *w.ConcealedSeal, *w.ConcealedState), nil
	}
}

func encodeStates(a Assignments) []stateWire {
	states := make([]stateWire, len(a.states))
	for i, s := range a.states {
		states[i] = encodeState(s)
	}
	return states
}

func decodeStates(kind *Kind, wires []stateWire) (Assignments, error) {
	if kind == nil {
		return Assignments{}, ErrMissingKind
	}
	states := make([]OwnedState, len(wires))
	for i, w := range wires {
		s, err := decodeState(*kind, w)
		if err != nil {
			return Assignments{}, fmt.Errorf("state %d: %w", i, err)
		}
		states[i] = s
	}
	return Assignments{kind: *kind, states: states}, nil
}

func (a Assignments) MarshalJSON() ([]byte, error) {
	kind := a.kind
	return json.Marshal(assignmentsWire{Kind: &kind, States: encodeStates(a)})
}

func (a *Assignments) UnmarshalJSON(data []byte) error {
	var w assignmentsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := decodeStates(w.Kind, w.States)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

func (r OwnedRights) MarshalJSON() ([]byte, error) {
	wires := make([]rightsWire, len(r.entries))
	for i, e := range r.entries {
		kind := e.Assignments.kind
		wires[i] = rightsWire{Type: e.Type, Kind: &kind, States: encodeStates(e.Assignments)}
	}
	return json.Marshal(wires)
}

func (r *OwnedRights) UnmarshalJSON(data []byte) error {
	var wires []rightsWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return err
	}

	seen := make(map[TypeID]bool, len(wires))
	entries := make([]Entry, len(wires))
	for i, w := range wires {
		if seen[w.Type] {
			return fmt.Errorf("%w: %d", ErrDuplicateType, w.Type)
		}
		seen[w.Type] = true

		a, err := decodeStates(w.Kind, w.States)
		if err != nil {
			return fmt.Errorf("right %d: %w", w.Type, err)
		}
		entries[i] = Entry{Type: w.Type, Assignments: a}
	}
	*r = NewOwnedRights(entries...)
	return nil
}
