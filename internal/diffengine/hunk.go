// Package diffengine implements the hunk-granular diff parser, dependency
// analyzer, and patch synthesizer that together let a full branch diff be
// replayed as a smaller set of semantically coherent commits. It never
// shells out to git itself — internal/gitops owns every mutating
// invocation of the host VCS.
package diffengine

import (
	"fmt"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// ChangeKind classifies the kind of change a Hunk's file underwent.
type ChangeKind int

const (
	// ChangeModify is an ordinary content change to an existing file.
	ChangeModify ChangeKind = iota
	// ChangeAddFile introduces a new file.
	ChangeAddFile
	// ChangeDeleteFile removes an existing file.
	ChangeDeleteFile
	// ChangeRename renames (optionally with content changes) a file.
	ChangeRename
	// ChangeBinary is a binary file change; Body carries the original
	// "GIT binary patch" block and no line ranges apply.
	ChangeBinary
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAddFile:
		return "add_file"
	case ChangeDeleteFile:
		return "delete_file"
	case ChangeRename:
		return "rename"
	case ChangeBinary:
		return "binary"
	default:
		return "modify"
	}
}

// Hunk is the atomic unit of reorganization: one contiguous change region
// inside one file of the unified diff (spec.md §3).
type Hunk struct {
	// ID is "<file_path>:<old_start>-<old_end>", the boundary-stable
	// identifier the grouping advisor references (spec.md §6).
	ID string

	FilePath   string
	OldPath    string // pre-image path; empty for ChangeAddFile and ChangeDeleteFile
	ChangeKind ChangeKind

	OldStart, OldCount int
	NewStart, NewCount int

	// Body holds the literal hunk body lines (each prefixed by ' ', '+',
	// or '-'), including any "\ No newline at end of file" marker. For
	// ChangeBinary it holds the verbatim "GIT binary patch" block.
	Body []byte

	// FileHeader holds the diff --git/---/+++ lines (plus any mode,
	// rename or "Binary files" lines) rebuilt from the parsed file, to be
	// re-emitted verbatim by the synthesizer whenever a patch touches this
	// file. It is not the source text: the index line is not included.
	FileHeader []byte

	fragment *gitdiff.TextFragment // nil for binary and zero-body hunks
}

// hunkID computes the boundary-stable identifier spec.md §6 mandates:
// old_end = old_start + max(old_count, 1) - 1.
func hunkID(filePath string, oldStart, oldCount int) string {
	oldEnd := oldStart + max(oldCount, 1) - 1
	return fmt.Sprintf("%s:%d-%d", filePath, oldStart, oldEnd)
}
