// Package crypto provides the commitment and encryption primitives of revealstash.
//
// Commitments use BLAKE2b-256 keyed by a domain tag:
//   - TaggedHash length-prefixes every part before hashing
//   - MerkleRoot builds a binary tree over digests and binds the leaf count
//
// Stash records are encrypted with AES-256-GCM:
//   - 32-byte key derived from password via PBKDF2-HMAC-SHA256
//   - 210,000 iterations, 32-byte random salt (stored unencrypted)
//   - 12-byte random nonce per record, storage key as additional data
//
// Use ClearBytes() to zero sensitive data after use and call
// Encryptor.Destroy() when done.
package crypto
