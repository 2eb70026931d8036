// Package gitstatus wraps go-git worktree status for the one read-only
// check the engine needs before it ever mutates a repository: is the
// worktree clean. Every mutating git operation still goes through
// internal/executor, since go-git does not expose apply/write-tree
// plumbing (spec.md §6).
package gitstatus

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// ignoredPatterns are generated-file shapes spec.md §4.5 names as safe to
// ignore when judging whether a worktree is clean enough to reorganize.
var ignoredPatterns = []string{
	"*.pyc",
	"*.log",
}

// ignoredDirs are directory name components spec.md §4.5 names alongside
// ignoredPatterns; any path with one of these as a component is ignored.
var ignoredDirs = map[string]bool{
	"__pycache__": true,
	"dist":        true,
	"build":       true,
}

// CheckClean reports whether repoPath's worktree has no staged or
// unstaged changes outside the ignored generated-file patterns. It
// returns the list of offending paths when the worktree is not clean,
// grounded on the teacher's DefaultGitStatusReader.ReadStatus
// (internal/stager/git_status_reader.go), narrowed to the single
// boolean question the backup/restore precondition needs.
func CheckClean(repoPath string) (bool, []string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return false, nil, fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return false, nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return false, nil, fmt.Errorf("failed to get status: %w", err)
	}

	var dirty []string
	for path, fileStatus := range status {
		if fileStatus.Staging == git.Unmodified && fileStatus.Worktree == git.Unmodified {
			continue
		}
		if isIgnored(path) {
			continue
		}
		dirty = append(dirty, path)
	}

	return len(dirty) == 0, dirty, nil
}

func isIgnored(path string) bool {
	for _, component := range strings.Split(path, "/") {
		if ignoredDirs[component] {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range ignoredPatterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}

	return false
}
