package state

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownDisclosure = errors.New("unknown disclosure level")
	ErrUnknownKind       = errors.New("unknown state kind")
	ErrUnknownNodeType   = errors.New("unknown node type")
)

// Disclosure is how much of an owned state is visible.
// The four levels form a lattice that is the product of two facets
// (seal revealed, payload revealed).
type Disclosure uint8

const (
	Confidential       Disclosure = iota // seal hidden, payload hidden
	ConfidentialSeal                     // seal hidden, payload revealed
	ConfidentialAmount                   // seal revealed, payload hidden
	Revealed                             // seal revealed, payload revealed
)

var disclosureNames = [...]string{
	Confidential:       "confidential",
	ConfidentialSeal:   "confidential_seal",
	ConfidentialAmount: "confidential_amount",
	Revealed:           "revealed",
}

// Disclosures lists every level from bottom to top
var Disclosures = []Disclosure{Confidential, ConfidentialSeal, ConfidentialAmount, Revealed}

func disclosureOf(sealRevealed, payloadRevealed bool) Disclosure {
	switch {
	case sealRevealed && payloadRevealed:
		return Revealed
	case sealRevealed:
		return ConfidentialAmount
	case payloadRevealed:
		return ConfidentialSeal
	default:
		return Confidential
	}
}

// Valid reports whether d is one of the four levels
func (d Disclosure) Valid() bool {
	return int(d) < len(disclosureNames)
}

func (d Disclosure) SealRevealed() bool {
	return d == ConfidentialAmount || d == Revealed
}

func (d Disclosure) PayloadRevealed() bool {
	return d == ConfidentialSeal || d == Revealed
}

// Leq reports whether d carries no more information than other
func (d Disclosure) Leq(other Disclosure) bool {
	return (!d.SealRevealed() || other.SealRevealed()) &&
		(!d.PayloadRevealed() || other.PayloadRevealed())
}

// Join returns the least level that is at least as informative as both
func (d Disclosure) Join(other Disclosure) Disclosure {
	return disclosureOf(
		d.SealRevealed() || other.SealRevealed(),
		d.PayloadRevealed() || other.PayloadRevealed(),
	)
}

func (d Disclosure) String() string {
	if !d.Valid() {
		return fmt.Sprintf("disclosure(%d)", uint8(d))
	}
	return disclosureNames[d]
}

// ParseDisclosure parses a level name as produced by String
func ParseDisclosure(s string) (Disclosure, error) {
	for i, name := range disclosureNames {
		if name == s {
			return Disclosure(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDisclosure, s)
}

func (d Disclosure) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDisclosure, uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Disclosure) UnmarshalText(text []byte) error {
	parsed, err := ParseDisclosure(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
