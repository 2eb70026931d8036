package gitops

import (
	"context"
	"fmt"
	"strings"

	"github.com/syou6162/git-rebuild-history/internal/executor"
	"github.com/syou6162/git-rebuild-history/internal/gitstatus"
	"github.com/syou6162/git-rebuild-history/internal/logger"
)

// BackupManager creates a named ref pointing at the branch tip before a
// reorganization run begins, and restores the repository to it if the run
// needs to roll back (spec.md §4.5). Grounded on the teacher's
// SafetyChecker.EvaluateStagingArea (internal/stager/safety_checker.go)
// for the clean-worktree precondition, adapted here to use
// internal/gitstatus instead of shelling out to `git status --porcelain`
// for the read-only check, while still shelling out for the mutating
// branch/reset operations through CommandExecutor.
type BackupManager struct {
	exec     executor.CommandExecutor
	repoPath string
	log      *logger.Logger

	nowFunc func() string // overridable in tests; defaults to a unix-seconds string
}

// NewBackupManager returns a BackupManager rooted at repoPath, the
// worktree gitstatus.CheckClean inspects.
func NewBackupManager(exec executor.CommandExecutor, repoPath string, log *logger.Logger, nowFunc func() string) *BackupManager {
	return &BackupManager{exec: exec, repoPath: repoPath, log: log, nowFunc: nowFunc}
}

// CheckClean enforces the precondition spec.md §4.5 requires before a run
// may create a backup ref at all: no staged or unstaged changes outside
// the generated-file patterns internal/gitstatus ignores.
func (b *BackupManager) CheckClean() error {
	clean, dirty, err := gitstatus.CheckClean(b.repoPath)
	if err != nil {
		return fmt.Errorf("failed to check worktree status: %w", err)
	}
	if !clean {
		return &UncleanWorktreeError{DirtyPaths: dirty}
	}
	return nil
}

// CreateBackup creates a branch ref named "<branch>-backup-<unix_seconds>"
// at branch's current tip and returns the ref name.
func (b *BackupManager) CreateBackup(ctx context.Context, branch string) (string, error) {
	refName := fmt.Sprintf("%s-backup-%s", branch, b.nowFunc())

	if _, err := b.exec.Execute(ctx, "git", "branch", refName, branch); err != nil {
		return "", fmt.Errorf("failed to create backup ref %s: %w", refName, err)
	}

	b.log.Info("created backup ref %s from %s", refName, branch)
	return refName, nil
}

// Restore resets the current branch's worktree and index back to
// backupRef, the rollback path a failed or cancelled run takes.
func (b *BackupManager) Restore(ctx context.Context, backupRef string) error {
	b.log.Info("restoring from backup ref %s", backupRef)
	if _, err := b.exec.Execute(ctx, "git", "reset", "--hard", backupRef); err != nil {
		return fmt.Errorf("failed to restore from backup ref %s: %w", backupRef, err)
	}
	return nil
}

// CurrentTreeHash returns the tree hash `ref` currently points at, used
// to confirm a completed run's final tree matches the original branch
// tip (spec.md §3's tree-equivalence invariant).
func (b *BackupManager) CurrentTreeHash(ctx context.Context, ref string) (string, error) {
	out, err := b.exec.Execute(ctx, "git", "show", "-s", "--format=%T", ref)
	if err != nil {
		return "", fmt.Errorf("failed to read tree hash for %s: %w", ref, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// UncleanWorktreeError reports which paths failed the clean-worktree
// precondition.
type UncleanWorktreeError struct {
	DirtyPaths []string
}

func (e *UncleanWorktreeError) Error() string {
	return fmt.Sprintf("worktree is not clean: %s", strings.Join(e.DirtyPaths, ", "))
}
