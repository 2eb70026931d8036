package reorg

import "fmt"

// ErrorKind is the consolidated error taxonomy spec.md §7 names, replacing
// the teacher's ad hoc StagerError.ErrorType/SafetyError.SafetyErrorType
// split (internal/stager/errors.go) with a single enum.
type ErrorKind int

const (
	// UncleanWorktree is returned when the backup precondition check
	// (internal/gitstatus) finds changes outside the ignored patterns.
	UncleanWorktree ErrorKind = iota
	// DiffParseError wraps a diffengine.ParseError, or a failure to
	// synthesize a patch from the parsed hunks.
	DiffParseError
	// UnknownHunk means the grouping plan referenced a hunk id the diff
	// parser never produced.
	UnknownHunk
	// IncompletePartition means the grouping plan left at least one
	// parsed hunk unclaimed by any group.
	IncompletePartition
	// DuplicateHunk means the grouping plan claimed the same hunk id in
	// more than one group.
	DuplicateHunk
	// PatchApplyFailed means `git apply --cached` rejected a synthesized
	// patch.
	PatchApplyFailed
	// CommitFailed means `git commit` failed after a successful apply.
	CommitFailed
	// TreeMismatch means the final HEAD tree does not match the original
	// branch tip's tree after all groups were committed.
	TreeMismatch
	// HostVcsUnavailable means a CommandExecutor invocation of the git
	// binary outside the apply/commit steps failed: either git could not
	// be started, or it ran and exited with an error.
	HostVcsUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case UncleanWorktree:
		return "UncleanWorktree"
	case DiffParseError:
		return "DiffParseError"
	case UnknownHunk:
		return "UnknownHunk"
	case IncompletePartition:
		return "IncompletePartition"
	case DuplicateHunk:
		return "DuplicateHunk"
	case PatchApplyFailed:
		return "PatchApplyFailed"
	case CommitFailed:
		return "CommitFailed"
	case TreeMismatch:
		return "TreeMismatch"
	case HostVcsUnavailable:
		return "HostVcsUnavailable"
	default:
		return "Unknown"
	}
}

// ReorgError is the single typed error the engine returns, generalized
// from the teacher's StagerError/SafetyError pair
// (internal/stager/errors.go, safety_errors.go) into one struct carrying
// the spec.md §7 taxonomy.
type ReorgError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ReorgError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ReorgError) Unwrap() error {
	return e.Err
}

func (e *ReorgError) Is(target error) bool {
	t, ok := target.(*ReorgError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newReorgError(kind ErrorKind, message string, err error) *ReorgError {
	return &ReorgError{Kind: kind, Message: message, Err: err}
}
