package cmd

import (
	"fmt"
	"os"
)

// Compact compacts the stash database to reclaim unused space
func Compact(opts Options) {
	stash, _ := OpenStash(opts)
	defer stash.Close()

	info, err := os.Stat(stash.Path())
	if err != nil {
		HandleError(err)
	}
	sizeBefore := info.Size()

	if err := stash.Compact(); err != nil {
		HandleError(err)
	}

	info, err = os.Stat(stash.Path())
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(info.Size()))
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
