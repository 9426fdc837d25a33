package state

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/illarion/revealstash/internal/crypto"
)

// Commitment tags. Changing any of them changes every stored node id.
const (
	tagSeal        = "revealstash:seal"
	tagVoid        = "revealstash:void"
	tagAmount      = "revealstash:amount"
	tagData        = "revealstash:data"
	tagOwnedState  = "revealstash:owned_state"
	tagAssignments = "revealstash:assignments"
	tagRightsLeaf  = "revealstash:rights_leaf"
	tagOwnedRights = "revealstash:owned_rights"
)

// Txid is the id of the transaction an outpoint belongs to
type Txid [32]byte

func (t Txid) String() string {
	return hex.EncodeToString(t[:])
}

func (t Txid) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Txid) UnmarshalText(text []byte) error {
	return decodeFixedHex(t[:], text, "txid")
}

// BlindingFactor hides an amount inside its commitment
type BlindingFactor [32]byte

func (b BlindingFactor) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(b[:])), nil
}

func (b *BlindingFactor) UnmarshalText(text []byte) error {
	return decodeFixedHex(b[:], text, "blinding factor")
}

func decodeFixedHex(dst, text []byte, what string) error {
	if len(text) != 2*len(dst) {
		return fmt.Errorf("invalid %s: expected %d bytes", what, len(dst))
	}
	if _, err := hex.Decode(dst, text); err != nil {
		return fmt.Errorf("invalid %s: %w", what, err)
	}
	return nil
}

// SealDefinition is the revealed form of a single-use seal: the outpoint
// the state is bound to plus the blinding that hides it.
type SealDefinition struct {
	Txid     Txid   `json:"txid"`
	Vout     uint32 `json:"vout"`
	Blinding uint64 `json:"blinding"`
}

// Conceal returns the commitment that stands in for the seal when hidden
func (s SealDefinition) Conceal() crypto.Digest {
	var buf [44]byte
	copy(buf[:32], s.Txid[:])
	binary.BigEndian.PutUint32(buf[32:36], s.Vout)
	binary.BigEndian.PutUint64(buf[36:], s.Blinding)
	return crypto.TaggedHash(tagSeal, buf[:])
}

func (s SealDefinition) String() string {
	return fmt.Sprintf("%s:%d", s.Txid.String()[:16], s.Vout)
}
