// Package security confines the files a stash reads and writes to its
// working directory.
package security
