package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// DigestSize is the size of every commitment in bytes
const DigestSize = 32

var ErrInvalidDigest = errors.New("invalid digest")

// Digest is a BLAKE2b-256 commitment
type Digest [DigestSize]byte

// ParseDigest decodes a hex-encoded digest
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
	if len(b) != DigestSize {
		return d, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidDigest, DigestSize, len(b))
	}
	copy(d[:], b)
	return d, nil
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 8 hex characters, for display only
func (d Digest) Short() string {
	return hex.EncodeToString(d[:4])
}

// IsZero reports whether the digest is all zeroes
func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TaggedHash commits to parts under a domain tag.
// The tag keys BLAKE2b and every part is length-prefixed, so two different
// part lists never produce the same preimage.
func TaggedHash(tag string, parts ...[]byte) Digest {
	key := blake2b.Sum256([]byte(tag))
	h, err := blake2b.New256(key[:])
	if err != nil {
		// Only returned for keys longer than 64 bytes
		panic(err)
	}

	var prefix [8]byte
	for _, part := range parts {
		binary.BigEndian.PutUint64(prefix[:], uint64(len(part)))
		h.Write(prefix[:])
		h.Write(part)
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// MerkleRoot builds a binary Merkle tree over leaves and commits to its root
// together with the leaf count. An odd node at any level is promoted to the
// next level unchanged.
func MerkleRoot(tag string, leaves []Digest) Digest {
	if len(leaves) == 0 {
		return TaggedHash(tag + ":empty")
	}

	level := make([]Digest, len(leaves))
	for i, leaf := range leaves {
		level[i] = TaggedHash(tag+":leaf", leaf[:])
	}

	for len(level) > 1 {
		next := make([]Digest, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, TaggedHash(tag+":branch", level[i][:], level[i+1][:]))
		}
		level = next
	}

	var count [8]byte
	binary.BigEndian.PutUint64(count[:], uint64(len(leaves)))
	return TaggedHash(tag+":root", level[0][:], count[:])
}
