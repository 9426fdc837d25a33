// Package core provides the stash operations behind the revealstash CLI.
//
// A stash is a single encrypted database holding contract nodes. Each
// node is kept at the highest disclosure level ever imported for it:
//   - Init: create the stash with a password-derived key
//   - Import: reveal-merge a consignment into the stash, all or nothing
//   - Preview: show what an import would reveal without writing
//   - Show/Export: read nodes back, optionally concealed for transfer
//   - Status: password-free summary from the unencrypted index
//   - ChangePassword: re-encrypt every node under a new key
//
// A consignment that disagrees with a stored node about its committed
// state is rejected with a reveal.NodeMismatchError for the node type.
package core
