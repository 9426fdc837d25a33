package cmd

import (
	"testing"

	"github.com/illarion/revealstash/internal/state"
	"github.com/illarion/revealstash/internal/storage"
)

func TestNodeProgress(t *testing.T) {
	revealed := state.Revealed.String()
	confidential := state.Confidential.String()

	tests := []struct {
		name  string
		entry storage.IndexEntry
		want  string
	}{
		{"empty", storage.IndexEntry{}, "no states"},
		{"fully revealed", storage.IndexEntry{States: 3, Disclosures: map[string]int{revealed: 3}}, "3/3 revealed"},
		{"partial", storage.IndexEntry{States: 4, Disclosures: map[string]int{revealed: 1, confidential: 2}}, "1/4 revealed, 2 confidential"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nodeProgress(tt.entry); got != tt.want {
				t.Errorf("nodeProgress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatCounts(t *testing.T) {
	if got := formatCounts(nil); got != "none" {
		t.Errorf("formatCounts(nil) = %q, want none", got)
	}
	got := formatCounts(map[string]int{"transition": 2, "genesis": 1})
	if want := "genesis: 1, transition: 2"; got != want {
		t.Errorf("formatCounts() = %q, want %q", got, want)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 bytes"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
		{5 << 30, "5.0 GB"},
	}

	for _, tt := range tests {
		if got := formatSize(tt.size); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID() = %q", got)
	}
}
