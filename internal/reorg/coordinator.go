// Package reorg implements the group coordinator that drives a full
// reorganization run: parse, validate, partition, synthesize, apply,
// backup/restore (spec.md §4.6). Grounded on the teacher's
// Stager.StageHunksNew outer loop (internal/stager/stager_new.go) and
// main.go's thin orchestration over it.
package reorg

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/syou6162/git-rebuild-history/internal/advisor"
	"github.com/syou6162/git-rebuild-history/internal/diffengine"
	"github.com/syou6162/git-rebuild-history/internal/executor"
	"github.com/syou6162/git-rebuild-history/internal/gitops"
	"github.com/syou6162/git-rebuild-history/internal/logger"
)

// Coordinator drives the seven-step reorganization protocol of spec.md
// §4.6 against one repository at a time (spec.md §5).
type Coordinator struct {
	exec       executor.CommandExecutor
	repoPath   string
	log        *logger.Logger
	backup     *gitops.BackupManager
	applicator *gitops.Applicator
}

// NewCoordinator wires a Coordinator against repoPath, constructing its
// own BackupManager and Applicator over exec the way main.go wires
// Stager's collaborators in the teacher.
func NewCoordinator(exec executor.CommandExecutor, repoPath string, log *logger.Logger) *Coordinator {
	nowFunc := func() string { return strconv.FormatInt(time.Now().Unix(), 10) }
	return &Coordinator{
		exec:       exec,
		repoPath:   repoPath,
		log:        log,
		backup:     gitops.NewBackupManager(exec, repoPath, log, nowFunc),
		applicator: gitops.NewApplicator(exec, log),
	}
}

// RunResult reports the outcome of one reorganization run (spec.md §6).
type RunResult struct {
	Success   bool
	NewTip    string
	BackupRef string
	Error     ErrorKind
	Restored  bool
}

// Run executes the full protocol:
//  1. check the worktree is clean,
//  2. create a backup ref at headRef's current tip,
//  3. parse the full diff between baseRef and the branch's current tip,
//  4. validate the grouping plan against the parsed hunks, then hard-reset
//     to baseRef,
//  5. for each group in plan order, partition its hunks into dependency
//     subgroups, synthesize a patch, and apply+commit it,
//  6. on any failure after the reset to baseRef, restore from the backup
//     ref (earlier failures return without restoring, since nothing has
//     been mutated beyond creating the backup ref),
//  7. on success, confirm the final tree matches the pre-run tree.
func (c *Coordinator) Run(ctx context.Context, baseRef string, headRef string, plan advisor.GroupingPlan) (RunResult, error) {
	if err := c.backup.CheckClean(); err != nil {
		return RunResult{Error: UncleanWorktree}, newReorgError(UncleanWorktree, "worktree must be clean before reorganizing", err)
	}

	originalTree, err := c.backup.CurrentTreeHash(ctx, headRef)
	if err != nil {
		return RunResult{Error: HostVcsUnavailable}, newReorgError(HostVcsUnavailable, "failed to read original tree", err)
	}

	backupRef, err := c.backup.CreateBackup(ctx, headRef)
	if err != nil {
		return RunResult{Error: HostVcsUnavailable}, newReorgError(HostVcsUnavailable, "failed to create backup ref", err)
	}

	fullDiff, err := c.exec.Execute(ctx, "git", "diff", fmt.Sprintf("%s..%s", baseRef, headRef))
	if err != nil {
		return RunResult{BackupRef: backupRef, Error: HostVcsUnavailable}, newReorgError(HostVcsUnavailable, "failed to read base..head diff", err)
	}

	hunks, err := diffengine.ParseDiff(fullDiff)
	if err != nil {
		return RunResult{BackupRef: backupRef, Error: DiffParseError}, newReorgError(DiffParseError, "failed to parse diff", err)
	}

	if err := advisor.Validate(plan, hunks); err != nil {
		kind, validationErr := translateValidationError(err)
		return RunResult{BackupRef: backupRef, Error: kind}, newReorgError(kind, "grouping plan failed validation", validationErr)
	}

	hunksByID := make(map[string]*diffengine.Hunk, len(hunks))
	for _, h := range hunks {
		hunksByID[h.ID] = h
	}

	if err := c.resetToBase(ctx, baseRef); err != nil {
		return RunResult{BackupRef: backupRef, Error: HostVcsUnavailable}, newReorgError(HostVcsUnavailable, "failed to reset to base ref", err)
	}

	synth := diffengine.NewSynthesizer()
	newTip := baseRef
	for _, group := range plan.Groups {
		groupHunks := make([]*diffengine.Hunk, 0, len(group.HunkIDs))
		for _, id := range group.HunkIDs {
			groupHunks = append(groupHunks, hunksByID[id])
		}

		subgroups := diffengine.AnalyzeDependencies(groupHunks)

		// spec.md §9 option (b): one synthesized patch per dependency
		// subgroup, staged individually, with a single commit per group.
		patches := make([][]byte, 0, len(subgroups))
		for _, sub := range subgroups {
			patch, err := synth.SynthesizePatch([]*diffengine.DependencySubgroup{sub})
			if err != nil {
				c.restoreAndLog(ctx, backupRef)
				return RunResult{BackupRef: backupRef, Restored: true, Error: DiffParseError}, newReorgError(DiffParseError, "failed to synthesize patch", err)
			}
			patches = append(patches, patch)
		}

		hash, err := c.applicator.ApplyGroup(ctx, patches, group.Message)
		if err != nil {
			c.restoreAndLog(ctx, backupRef)
			kind := PatchApplyFailed
			if applyErr, ok := err.(*gitops.ApplyError); ok && applyErr.Stage == gitops.StageCommit {
				kind = CommitFailed
			}
			return RunResult{BackupRef: backupRef, Restored: true, Error: kind}, newReorgError(kind, "failed to apply group", err)
		}
		newTip = hash
	}

	finalTree, err := c.backup.CurrentTreeHash(ctx, "HEAD")
	if err != nil {
		c.restoreAndLog(ctx, backupRef)
		return RunResult{BackupRef: backupRef, Restored: true, Error: HostVcsUnavailable}, newReorgError(HostVcsUnavailable, "failed to read final tree", err)
	}
	if finalTree != originalTree {
		c.restoreAndLog(ctx, backupRef)
		return RunResult{BackupRef: backupRef, Restored: true, Error: TreeMismatch}, newReorgError(TreeMismatch, "final tree does not match original branch tip", nil)
	}

	return RunResult{Success: true, NewTip: newTip, BackupRef: backupRef}, nil
}

func (c *Coordinator) resetToBase(ctx context.Context, baseRef string) error {
	_, err := c.exec.Execute(ctx, "git", "reset", "--hard", baseRef)
	return err
}

func (c *Coordinator) restoreAndLog(ctx context.Context, backupRef string) {
	if err := c.backup.Restore(context.WithoutCancel(ctx), backupRef); err != nil {
		c.log.Error("restore from %s failed: %v", backupRef, err)
	}
}

func translateValidationError(err error) (ErrorKind, error) {
	ve, ok := err.(*advisor.ValidationError)
	if !ok {
		return IncompletePartition, err
	}
	switch ve.Kind {
	case advisor.UnknownHunk:
		return UnknownHunk, err
	case advisor.DuplicateHunk:
		return DuplicateHunk, err
	default:
		return IncompletePartition, err
	}
}
