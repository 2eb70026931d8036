package diffengine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// ParseDiff decomposes the text of `git diff BASE..HEAD` (unified format,
// default context) into an ordered sequence of Hunk records (spec.md §4.1).
// Parsing is delegated to go-gitdiff for tokenizing diff --git blocks and
// @@ fragments; this function adds the boundary-stable id, quoted-path
// decoding, and the synthetic zero-body/binary hunks spec.md names.
func ParseDiff(fullDiff []byte) ([]*Hunk, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(string(fullDiff)))
	if err != nil {
		return nil, newParseError("", "malformed diff header", err)
	}

	var hunks []*Hunk
	for _, file := range files {
		fileHunks, err := hunksForFile(file)
		if err != nil {
			return nil, err
		}
		hunks = append(hunks, fileHunks...)
	}

	return hunks, nil
}

func hunksForFile(file *gitdiff.File) ([]*Hunk, error) {
	kind, filePath, oldPath := classify(file)
	header := synthesizeFileHeader(file, kind)

	if file.IsBinary {
		return []*Hunk{{
			ID:         hunkID(filePath, 0, 0),
			FilePath:   filePath,
			OldPath:    oldPath,
			ChangeKind: ChangeBinary,
			FileHeader: header,
			Body:       []byte("GIT binary patch\n"),
		}}, nil
	}

	if len(file.TextFragments) == 0 {
		// Pure rename, pure mode change, or an otherwise bodyless file
		// event: spec.md §4.1 mandates a single zero-line hunk at 0-0.
		return []*Hunk{{
			ID:         hunkID(filePath, 0, 0),
			FilePath:   filePath,
			OldPath:    oldPath,
			ChangeKind: kind,
			FileHeader: header,
		}}, nil
	}

	hunks := make([]*Hunk, 0, len(file.TextFragments))
	for _, frag := range file.TextFragments {
		oldStart, oldCount := int(frag.OldPosition), int(frag.OldLines)
		if oldStart < 0 || oldCount < 0 || frag.NewPosition < 0 || frag.NewLines < 0 {
			return nil, newParseError(filePath, "negative line number in hunk header", nil)
		}

		body, err := renderFragmentBody(frag)
		if err != nil {
			return nil, newParseError(filePath, err.Error(), err)
		}

		hunks = append(hunks, &Hunk{
			ID:         hunkID(filePath, oldStart, oldCount),
			FilePath:   filePath,
			OldPath:    oldPath,
			ChangeKind: kind,
			OldStart:   oldStart,
			OldCount:   oldCount,
			NewStart:   int(frag.NewPosition),
			NewCount:   int(frag.NewLines),
			Body:       body,
			FileHeader: header,
			fragment:   frag,
		})
	}

	if err := checkMonotonic(filePath, hunks); err != nil {
		return nil, err
	}

	return hunks, nil
}

func classify(file *gitdiff.File) (kind ChangeKind, filePath, oldPath string) {
	switch {
	case file.IsDelete:
		return ChangeDeleteFile, unquoteGitPath(file.OldName), ""
	case file.IsNew:
		return ChangeAddFile, unquoteGitPath(file.NewName), ""
	case file.IsRename, file.IsCopy:
		return ChangeRename, unquoteGitPath(file.NewName), unquoteGitPath(file.OldName)
	default:
		return ChangeModify, unquoteGitPath(file.NewName), unquoteGitPath(file.OldName)
	}
}

// synthesizeFileHeader rebuilds the diff --git/index/---/+++ block for a
// file. go-gitdiff tokenizes this block without retaining the exact source
// bytes, so the header is reconstructed in the same shape git itself emits;
// the patch synthesizer (synthesize.go) re-emits this verbatim per
// spec.md §4.3.
func synthesizeFileHeader(file *gitdiff.File, kind ChangeKind) []byte {
	var b strings.Builder
	oldName := file.OldName
	newName := file.NewName
	if oldName == "" {
		oldName = newName
	}
	if newName == "" {
		newName = oldName
	}

	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", oldName, newName)

	if file.OldMode != 0 && file.NewMode != 0 && file.OldMode != file.NewMode && kind != ChangeAddFile && kind != ChangeDeleteFile {
		fmt.Fprintf(&b, "old mode %o\n", file.OldMode)
		fmt.Fprintf(&b, "new mode %o\n", file.NewMode)
	}
	if kind == ChangeAddFile {
		fmt.Fprintf(&b, "new file mode %o\n", file.NewMode)
	}
	if kind == ChangeDeleteFile {
		fmt.Fprintf(&b, "deleted file mode %o\n", file.OldMode)
	}
	if kind == ChangeRename {
		fmt.Fprintf(&b, "rename from %s\n", file.OldName)
		fmt.Fprintf(&b, "rename to %s\n", file.NewName)
	}

	if file.IsBinary {
		fmt.Fprintf(&b, "Binary files a/%s and b/%s differ\n", oldName, newName)
		return []byte(b.String())
	}

	oldLabel, newLabel := "a/"+oldName, "b/"+newName
	if kind == ChangeAddFile {
		oldLabel = "/dev/null"
	}
	if kind == ChangeDeleteFile {
		newLabel = "/dev/null"
	}
	fmt.Fprintf(&b, "--- %s\n", oldLabel)
	fmt.Fprintf(&b, "+++ %s\n", newLabel)

	return []byte(b.String())
}

func renderFragmentBody(frag *gitdiff.TextFragment) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", frag.OldPosition, frag.OldLines, frag.NewPosition, frag.NewLines)

	for _, line := range frag.Lines {
		switch line.Op {
		case gitdiff.OpContext:
			b.WriteString(" ")
		case gitdiff.OpDelete:
			b.WriteString("-")
		case gitdiff.OpAdd:
			b.WriteString("+")
		default:
			return nil, fmt.Errorf("unknown line operation %v", line.Op)
		}
		b.WriteString(line.Line)
		if !strings.HasSuffix(line.Line, "\n") {
			b.WriteString("\n\\ No newline at end of file\n")
		}
	}

	return []byte(b.String()), nil
}

func checkMonotonic(filePath string, hunks []*Hunk) error {
	for i := 1; i < len(hunks); i++ {
		if hunks[i].OldStart < hunks[i-1].OldStart {
			return newParseError(filePath, "hunks are not monotonic by old_start", nil)
		}
	}
	return nil
}

// unquoteGitPath decodes git's C-style quoting of non-ASCII/special bytes
// in a path (e.g. "caf\303\251.go" -> "café.go"). Paths git does not need
// to quote are returned unchanged.
func unquoteGitPath(path string) string {
	if len(path) < 2 || path[0] != '"' || path[len(path)-1] != '"' {
		return path
	}
	inner := path[1 : len(path)-1]

	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' || i+1 >= len(inner) {
			b.WriteByte(c)
			continue
		}
		next := inner[i+1]
		switch next {
		case 'n':
			b.WriteByte('\n')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case '"', '\\':
			b.WriteByte(next)
			i++
		default:
			if isOctalDigit(next) && i+3 < len(inner) && isOctalDigit(inner[i+2]) && isOctalDigit(inner[i+3]) {
				v, err := strconv.ParseUint(inner[i+1:i+4], 8, 8)
				if err == nil {
					b.WriteByte(byte(v))
					i += 3
					continue
				}
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}
