// Package testutils provides shared fixtures for exercising the engine
// against a real git repository, the way the teacher package's own e2e
// tests set up throwaway repos with go-git plus the git binary.
package testutils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// TestData contains common test data like binary files
var TestData = struct {
	// MinimalPNGTransparent is a 1x1 transparent PNG image
	MinimalPNGTransparent []byte
	// MinimalPNGRed is a 1x1 red PNG image
	MinimalPNGRed []byte
}{
	MinimalPNGTransparent: []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
		0x89, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x44, 0x41, // IDAT chunk
		0x54, 0x78, 0x9C, 0x62, 0x00, 0x00, 0x00, 0x02,
		0x00, 0x01, 0xE5, 0x27, 0xDE, 0xFC, 0x00, 0x00, // IEND chunk
		0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE, 0x42,
		0x60, 0x82,
	},
	MinimalPNGRed: []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
		0xDE, 0x00, 0x00, 0x00, 0x0C, 0x49, 0x44, 0x41, // IDAT chunk
		0x54, 0x08, 0x99, 0x63, 0xF8, 0xCF, 0xC0, 0x00,
		0x00, 0x03, 0x01, 0x01, 0x00, 0x18, 0xDD, 0x8D, // IEND chunk
		0xB4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E,
		0x44, 0xAE, 0x42, 0x60, 0x82,
	},
}

// TestRepo provides a unified interface for test repositories
type TestRepo struct {
	t       *testing.T
	Path    string
	Repo    *git.Repository
	cleanup func()
}

// NewTestRepo creates a new test repository with proper initialization
func NewTestRepo(t *testing.T, prefix string) *TestRepo {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", prefix)
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}

	repo, err := git.PlainInit(tmpDir, false)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to initialize git repository: %v", err)
	}

	cfg, err := repo.Config()
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to get config: %v", err)
	}

	cfg.User.Name = "Test User"
	cfg.User.Email = "test@example.com"
	if err := repo.SetConfig(cfg); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to set config: %v", err)
	}

	return &TestRepo{
		t:    t,
		Path: tmpDir,
		Repo: repo,
		cleanup: func() {
			os.RemoveAll(tmpDir)
		},
	}
}

// Cleanup removes the test repository
func (tr *TestRepo) Cleanup() {
	if tr.cleanup != nil {
		tr.cleanup()
	}
}

// Chdir changes to the repository directory and returns a cleanup function
func (tr *TestRepo) Chdir() func() {
	tr.t.Helper()

	originalDir, err := os.Getwd()
	if err != nil {
		tr.t.Fatalf("Failed to get current dir: %v", err)
	}

	if err := os.Chdir(tr.Path); err != nil {
		tr.t.Fatalf("Failed to change to temp dir: %v", err)
	}

	return func() {
		os.Chdir(originalDir)
	}
}

// RunCommand executes a command in the repository directory
func (tr *TestRepo) RunCommand(command string, args ...string) (string, error) {
	tr.t.Helper()
	cmd := exec.Command(command, args...)
	cmd.Dir = tr.Path
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// RunCommandOrFail executes a command and fails the test if it errors
func (tr *TestRepo) RunCommandOrFail(command string, args ...string) string {
	tr.t.Helper()
	output, err := tr.RunCommand(command, args...)
	if err != nil {
		tr.t.Fatalf("Command failed: %s %s\nOutput: %s\nError: %v",
			command, strings.Join(args, " "), output, err)
	}
	return output
}

// CreateFile creates a file with the given content
func (tr *TestRepo) CreateFile(filename, content string) {
	tr.t.Helper()
	path := filepath.Join(tr.Path, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		tr.t.Fatalf("Failed to create parent dir for %s: %v", filename, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		tr.t.Fatalf("Failed to create file %s: %v", filename, err)
	}
}

// CreateBinaryFile creates a binary file with the given content
func (tr *TestRepo) CreateBinaryFile(filename string, content []byte) {
	tr.t.Helper()
	path := filepath.Join(tr.Path, filename)
	if err := os.WriteFile(path, content, 0644); err != nil {
		tr.t.Fatalf("Failed to create binary file %s: %v", filename, err)
	}
}

// ModifyFile modifies an existing file with new content
func (tr *TestRepo) ModifyFile(filename, newContent string) {
	tr.t.Helper()
	path := filepath.Join(tr.Path, filename)
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		tr.t.Fatalf("Failed to modify file %s: %v", filename, err)
	}
}

// RemoveFile deletes a tracked file from the worktree without staging the removal.
func (tr *TestRepo) RemoveFile(filename string) {
	tr.t.Helper()
	if err := os.Remove(filepath.Join(tr.Path, filename)); err != nil {
		tr.t.Fatalf("Failed to remove file %s: %v", filename, err)
	}
}

// CommitChanges commits all changes with the given message
func (tr *TestRepo) CommitChanges(message string) string {
	tr.t.Helper()
	w, err := tr.Repo.Worktree()
	if err != nil {
		tr.t.Fatalf("Failed to get worktree: %v", err)
	}

	if _, err := w.Add("."); err != nil {
		tr.t.Fatalf("Failed to add files: %v", err)
	}

	hash, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		tr.t.Fatalf("Failed to commit: %v", err)
	}

	return hash.String()
}

// CreateAndCommitFile creates a file and commits it in one operation
func (tr *TestRepo) CreateAndCommitFile(filename, content, message string) string {
	tr.t.Helper()
	tr.CreateFile(filename, content)
	return tr.CommitChanges(message)
}

// HeadTreeHash returns the tree hash HEAD currently points at, the
// comparison spec.md §3/§8 uses to confirm a reorganization preserved the
// branch's final tree byte-for-byte.
func (tr *TestRepo) HeadTreeHash() string {
	tr.t.Helper()
	out := tr.RunCommandOrFail("git", "show", "-s", "--format=%T", "HEAD")
	return strings.TrimSpace(out)
}

// GetStagedFiles returns a list of staged files
func (tr *TestRepo) GetStagedFiles() []string {
	tr.t.Helper()
	output, err := tr.RunCommand("git", "diff", "--cached", "--name-only")
	if err != nil {
		tr.t.Fatalf("Failed to get staged files: %v", err)
	}

	files := strings.Split(strings.TrimSpace(output), "\n")
	if len(files) == 1 && files[0] == "" {
		return []string{}
	}

	sort.Strings(files)
	return files
}

// GetCommitCount returns the number of commits in the repository
func (tr *TestRepo) GetCommitCount() int {
	tr.t.Helper()
	output, err := tr.RunCommand("git", "rev-list", "--count", "HEAD")
	if err != nil {
		tr.t.Fatalf("Failed to get commit count: %v", err)
	}

	count := 0
	if _, err := fmt.Sscanf(strings.TrimSpace(output), "%d", &count); err != nil {
		tr.t.Fatalf("Failed to parse commit count: %v", err)
	}

	return count
}

// Diff returns the diff between two refs in unified format, the raw input
// the diff parser (internal/diffengine) consumes.
func (tr *TestRepo) Diff(base, head string) string {
	tr.t.Helper()
	return tr.RunCommandOrFail("git", "diff", fmt.Sprintf("%s..%s", base, head))
}

// CreateLargeFileWithManyHunks creates a file with many functions for performance testing
func (tr *TestRepo) CreateLargeFileWithManyHunks(numFunctions int) {
	tr.t.Helper()

	var initialContent strings.Builder
	initialContent.WriteString("#!/usr/bin/env python3\n\n")
	for i := 0; i < numFunctions; i++ {
		initialContent.WriteString(GenerateFunction(i, "initial"))
	}

	filename := "large_module.py"
	tr.CreateFile(filename, initialContent.String())
	tr.CommitChanges("Initial large file")

	var modifiedContent strings.Builder
	modifiedContent.WriteString("#!/usr/bin/env python3\n\n")
	for i := 0; i < numFunctions; i++ {
		if i%2 == 0 {
			modifiedContent.WriteString(GenerateFunction(i, "modified"))
		} else {
			modifiedContent.WriteString(GenerateFunction(i, "initial"))
		}
	}

	tr.ModifyFile(filename, modifiedContent.String())
}

// GenerateFunction generates a function with the given index and version
func GenerateFunction(index int, version string) string {
	body := `def function_{INDEX}():
    """Function {INDEX} - {VERSION} version"""
    result = 0
    for i in range(10):
        result += i * {INDEX}
    print(f"Function {INDEX} result: {result}")
    return result

`
	body = strings.ReplaceAll(body, "{INDEX}", fmt.Sprintf("%d", index))
	body = strings.ReplaceAll(body, "{VERSION}", version)
	return body
}
