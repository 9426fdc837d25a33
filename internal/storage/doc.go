// Package storage provides the BBolt database interface for a stash.
//
// Database structure uses four buckets:
//   - config: KDF parameters (salt, iterations), timestamps, vault id (unencrypted)
//   - index: node id, type and disclosure counts (unencrypted, for status)
//   - nodes: encrypted nodes with their owned rights
//   - private: encrypted password check
//
// The unencrypted index bucket lets revealstash status work without a
// password. It never holds revealed seals or payloads.
//
// All writes of one import go through a single Update call so a
// rejected consignment leaves the database untouched.
package storage
