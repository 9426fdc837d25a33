// Package git reports whether a stash and the consignments imported into
// it are exposed through the surrounding git repository.
//
// Imported consignment files may carry revealed seals and payloads, so
// they should stay untracked and ignored. The stash itself is encrypted.
package git
