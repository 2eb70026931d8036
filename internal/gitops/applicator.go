// Package gitops owns every mutating invocation of the host VCS: applying
// a synthesized patch as a commit, and creating/restoring the backup ref
// a reorganization run can roll back to. internal/diffengine never
// touches git directly; everything here goes through
// internal/executor.CommandExecutor so it stays testable with
// executor.MockCommandExecutor, the way the teacher's stager tests do.
package gitops

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/syou6162/git-rebuild-history/internal/executor"
	"github.com/syou6162/git-rebuild-history/internal/logger"
)

// Applicator runs the transactional commit protocol of spec.md §4.4 and
// §4.6 step 5: snapshot, stage each subgroup's patch, commit once,
// checkout, with rollback to the snapshot on any step's failure.
// Grounded on the teacher's Stager.StageHunksNew apply loop
// (internal/stager/stager_new.go), generalized from "apply one hunk via
// git apply --cached, repeat" to "apply one subgroup's synthesized patch,
// repeat, then commit the whole group once".
type Applicator struct {
	exec executor.CommandExecutor
	log  *logger.Logger
}

// NewApplicator returns an Applicator that shells out through exec.
func NewApplicator(exec executor.CommandExecutor, log *logger.Logger) *Applicator {
	return &Applicator{exec: exec, log: log}
}

// ApplyGroup stages patches into the index in order — one `git apply
// --cached` per patch — and, once every patch in the group has staged
// cleanly, commits the index once with message. This is spec.md §9's
// mandated shape for a group spanning several dependency subgroups: one
// patch per subgroup, one commit per group, never one bundled patch for
// the whole group. Staging subgroups as separate git apply invocations
// (rather than concatenating them into one patch blob) lets each
// subgroup's hunks re-locate against the index state left by the
// previous subgroup's apply.
//
// On any failure after the snapshot it rolls the index and worktree back
// to the snapshot tree captured before the attempt, so a failed apply or
// commit leaves the branch tip, index and worktree as they were. When the
// final checkout step fails, the commit already made is not undone here.
func (a *Applicator) ApplyGroup(ctx context.Context, patches [][]byte, message string) (commitHash string, err error) {
	snapshot, err := a.writeTree(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to snapshot index before apply: %w", err)
	}

	for _, patch := range patches {
		if err := a.applyCached(ctx, patch); err != nil {
			a.rollback(ctx, snapshot)
			return "", &ApplyError{Stage: StageApply, Err: err}
		}
	}

	hash, err := a.commit(ctx, message)
	if err != nil {
		a.rollback(ctx, snapshot)
		return "", &ApplyError{Stage: StageCommit, Err: err}
	}

	if err := a.checkoutIndex(ctx); err != nil {
		a.rollback(ctx, snapshot)
		return "", &ApplyError{Stage: StageCheckout, Err: err}
	}

	return hash, nil
}

func (a *Applicator) writeTree(ctx context.Context) (string, error) {
	out, err := a.exec.Execute(ctx, "git", "write-tree")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (a *Applicator) applyCached(ctx context.Context, patch []byte) error {
	a.log.Debug("applying patch (%d bytes) to index", len(patch))
	_, err := a.exec.ExecuteWithStdin(ctx, "git", bytes.NewReader(patch), "apply", "--cached", "--whitespace=nowarn")
	return err
}

func (a *Applicator) commit(ctx context.Context, message string) (string, error) {
	if _, err := a.exec.Execute(ctx, "git", "commit", "-m", message); err != nil {
		return "", err
	}
	out, err := a.exec.Execute(ctx, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (a *Applicator) checkoutIndex(ctx context.Context) error {
	_, err := a.exec.Execute(ctx, "git", "checkout-index", "-fa")
	return err
}

// rollback restores the index and worktree to a tree snapshot captured by
// writeTree. Errors here are logged, not returned: rollback runs only
// after a failure we're already propagating, and a failed rollback must
// not mask the original error.
func (a *Applicator) rollback(ctx context.Context, treeHash string) {
	if _, err := a.exec.Execute(ctx, "git", "read-tree", treeHash); err != nil {
		a.log.Error("rollback read-tree failed: %v", err)
	}
	if _, err := a.exec.Execute(ctx, "git", "checkout-index", "-fa"); err != nil {
		a.log.Error("rollback checkout-index failed: %v", err)
	}
}

// ApplyStage names the step of the commit protocol that failed.
type ApplyStage int

const (
	StageApply ApplyStage = iota
	StageCommit
	StageCheckout
)

func (s ApplyStage) String() string {
	switch s {
	case StageApply:
		return "apply"
	case StageCommit:
		return "commit"
	case StageCheckout:
		return "checkout"
	default:
		return "unknown"
	}
}

// ApplyError reports which stage of ApplyGroup failed.
type ApplyError struct {
	Stage ApplyStage
	Err   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("git %s failed: %v", e.Stage, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}
