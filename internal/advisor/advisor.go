// Package advisor defines the boundary-stable contract between the
// reorganization engine and whatever decides which hunks belong in which
// commit (spec.md §6: the "grouping advisor"). The engine never talks to
// a model provider directly; it only consumes a GroupingPlan, produced
// either by a static JSON file or by shelling out to an already-built
// advisor binary.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/syou6162/git-rebuild-history/internal/diffengine"
)

// Group is one commit-to-be: a message and the ordered set of hunk ids it
// claims (spec.md §3).
type Group struct {
	Message string   `json:"message"`
	HunkIDs []string `json:"hunk_ids"`
}

// GroupingPlan is the advisor's full output: an ordered partition of every
// hunk id in the diff into Groups, applied in slice order.
type GroupingPlan struct {
	Groups []Group `json:"groups"`
}

// Source produces a GroupingPlan for a given full diff. FileSource and
// CommandSource are the two realizations spec.md §6 anticipates; callers
// may supply their own for tests.
type Source interface {
	Plan(ctx context.Context, fullDiff []byte) (GroupingPlan, error)
}

// Validate cross-checks a plan against the hunks actually present in the
// diff, per spec.md §6: every referenced id must exist, no id may appear
// twice across the whole plan, and every parsed hunk must be claimed by
// exactly one group. It returns the first violation found, wrapped the
// way internal/reorg's error taxonomy expects callers to check with
// errors.As.
func Validate(plan GroupingPlan, hunks []*diffengine.Hunk) error {
	known := make(map[string]bool, len(hunks))
	for _, h := range hunks {
		known[h.ID] = false // false = not yet claimed
	}

	for _, group := range plan.Groups {
		for _, id := range group.HunkIDs {
			claimed, ok := known[id]
			if !ok {
				return &ValidationError{Kind: UnknownHunk, HunkID: id}
			}
			if claimed {
				return &ValidationError{Kind: DuplicateHunk, HunkID: id}
			}
			known[id] = true
		}
	}

	var unclaimed []string
	for id, claimed := range known {
		if !claimed {
			unclaimed = append(unclaimed, id)
		}
	}
	if len(unclaimed) > 0 {
		return &ValidationError{Kind: IncompletePartition, HunkID: unclaimed[0], Unclaimed: unclaimed}
	}

	return nil
}

// ValidationErrorKind distinguishes the three ways a GroupingPlan can fail
// Validate (spec.md §7).
type ValidationErrorKind int

const (
	UnknownHunk ValidationErrorKind = iota
	DuplicateHunk
	IncompletePartition
)

// ValidationError reports why a GroupingPlan failed Validate.
type ValidationError struct {
	Kind      ValidationErrorKind
	HunkID    string
	Unclaimed []string // populated only for IncompletePartition
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case UnknownHunk:
		return fmt.Sprintf("grouping plan references unknown hunk id %q", e.HunkID)
	case DuplicateHunk:
		return fmt.Sprintf("grouping plan claims hunk id %q more than once", e.HunkID)
	case IncompletePartition:
		return fmt.Sprintf("grouping plan leaves %d hunk(s) unclaimed, starting with %q", len(e.Unclaimed), e.HunkID)
	default:
		return "invalid grouping plan"
	}
}

// FileSource reads a GroupingPlan from a JSON file on disk, the shape the
// CLI's -groups flag uses to run the engine without a live advisor.
type FileSource struct {
	Path string
}

func (s FileSource) Plan(_ context.Context, _ []byte) (GroupingPlan, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return GroupingPlan{}, fmt.Errorf("failed to read grouping plan %s: %w", s.Path, err)
	}

	var plan GroupingPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return GroupingPlan{}, fmt.Errorf("failed to parse grouping plan %s: %w", s.Path, err)
	}

	return plan, nil
}

// CommandSource runs an external advisor binary, feeding it the full diff
// on stdin and parsing its stdout as a GroupingPlan. It never constructs
// a prompt or talks to a model provider itself (spec.md §1 Non-goals) —
// whatever decides the grouping lives entirely inside the named binary.
type CommandSource struct {
	Path string
	Args []string
}

func (s CommandSource) Plan(ctx context.Context, fullDiff []byte) (GroupingPlan, error) {
	cmd := exec.CommandContext(ctx, s.Path, s.Args...)
	cmd.Stdin = bytes.NewReader(fullDiff)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return GroupingPlan{}, fmt.Errorf("advisor command %s failed: %w (stderr: %s)", s.Path, err, stderr.String())
	}

	var plan GroupingPlan
	if err := json.Unmarshal(stdout.Bytes(), &plan); err != nil {
		return GroupingPlan{}, fmt.Errorf("failed to parse advisor output from %s: %w", s.Path, err)
	}

	return plan, nil
}
