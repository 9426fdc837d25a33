package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// GitStatus reports how the stash and the consignments it was built from
// relate to the surrounding git repository
type GitStatus struct {
	IsRepo           bool
	StashTracked     bool
	StashIgnored     bool
	TrackedSources   []string // Consignments committed to git (may leak revealed state)
	UntrackedSources []string
	UnignoredSources []string // Consignments not covered by .gitignore
}

func run(workDir string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = workDir
	return cmd.Output()
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	_, err := run(workDir, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	output, err := run(workDir, "ls-files", "--", path)
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	// git check-ignore exits 0 if the file is ignored
	_, err := run(workDir, "check-ignore", "-q", "--", path)
	return err == nil
}

// CheckGitIntegration checks the stash file and every recorded consignment source
func CheckGitIntegration(workDir, stashFile string, sources []string) (*GitStatus, error) {
	status := &GitStatus{}
	if !IsGitRepo(workDir) {
		return status, nil
	}
	status.IsRepo = true

	status.StashTracked = IsTracked(workDir, stashFile)
	status.StashIgnored = IsIgnored(workDir, stashFile)

	for _, src := range sources {
		if IsTracked(workDir, src) {
			status.TrackedSources = append(status.TrackedSources, src)
		} else {
			status.UntrackedSources = append(status.UntrackedSources, src)
		}
		if !IsIgnored(workDir, src) {
			status.UnignoredSources = append(status.UnignoredSources, src)
		}
	}

	return status, nil
}

// FormatGitStatus formats git status for display
func FormatGitStatus(status *GitStatus, stashFile string) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit Integration:\n")

	switch {
	case status.StashTracked:
		fmt.Fprintf(&result, "   ok: %s is tracked by git\n", stashFile)
	case status.StashIgnored:
		fmt.Fprintf(&result, "   ok: %s is ignored by git\n", stashFile)
	default:
		fmt.Fprintf(&result, "   warning: %s is neither tracked nor ignored\n", stashFile)
	}

	if len(status.TrackedSources) > 0 {
		fmt.Fprintf(&result, "   error: %d consignment(s) with revealed state tracked by git:\n", len(status.TrackedSources))
		for _, src := range status.TrackedSources {
			fmt.Fprintf(&result, "      - %s (run: git rm --cached %s)\n", src, src)
		}
	} else if len(status.UntrackedSources) > 0 {
		result.WriteString("   ok: no imported consignments tracked by git\n")
	}

	tracked := make(map[string]bool, len(status.TrackedSources))
	for _, src := range status.TrackedSources {
		tracked[src] = true
	}
	for _, src := range status.UnignoredSources {
		if !tracked[src] {
			fmt.Fprintf(&result, "   warning: %s not in .gitignore\n", src)
		}
	}

	return result.String()
}
