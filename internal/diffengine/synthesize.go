package diffengine

import (
	"bytes"
	"fmt"
)

// Synthesizer builds git-apply-able patch text from dependency subgroups,
// tracking the cumulative per-file line offset a run accumulates as
// earlier commits in the same run shift later hunks' pre-image line
// numbers (spec.md §4.3). A Synthesizer is scoped to one reorganization
// run: offsets must not be shared across unrelated runs.
//
// Grounded on the teacher's extractHunkContentFromFragment
// (patch_parser_gitdiff.go), generalized here to multiple hunks per file
// header and a nonzero shift, and on Roasbeef-hunk's GenerateForFile,
// which emits one file header followed by N hunk blocks in the same
// shape this synthesizer produces.
type Synthesizer struct {
	offsets map[string]int
}

// NewSynthesizer returns a Synthesizer with a fresh, empty offset map.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{offsets: make(map[string]int)}
}

// SynthesizePatch renders subgroups into a single patch applicable with
// `git apply --cached`, in the order given. Subgroups sharing a file are
// concatenated under one file header; the offset accumulated by earlier
// hunks (in this subgroup or an earlier one synthesized by this same
// Synthesizer) is applied to every later hunk's header in that file.
func (s *Synthesizer) SynthesizePatch(subgroups []*DependencySubgroup) ([]byte, error) {
	var order []string
	byFile := make(map[string][]*DependencySubgroup)
	for _, sub := range subgroups {
		if _, ok := byFile[sub.FilePath]; !ok {
			order = append(order, sub.FilePath)
		}
		byFile[sub.FilePath] = append(byFile[sub.FilePath], sub)
	}

	var buf bytes.Buffer
	for _, file := range order {
		subs := byFile[file]
		if len(subs) == 0 || len(subs[0].Hunks) == 0 {
			continue
		}
		buf.Write(subs[0].Hunks[0].FileHeader)

		for _, sub := range subs {
			for _, h := range sub.Hunks {
				if h.ChangeKind == ChangeBinary {
					buf.Write(h.Body)
					continue
				}
				if h.OldCount == 0 && h.NewCount == 0 && len(h.Body) == 0 {
					continue // pure rename / mode change: header alone is the whole patch
				}

				shift := s.offsets[file]
				body, err := shiftHunkHeader(h, shift)
				if err != nil {
					return nil, err
				}
				buf.Write(body)
				s.offsets[file] += h.NewCount - h.OldCount
			}
		}
	}

	return buf.Bytes(), nil
}

// shiftHunkHeader rewrites a hunk's leading "@@ -a,b +c,d @@" line per
// spec.md §4.3: the old side stays at the literal pre-image h.OldStart —
// it is never shifted, since git apply locates a hunk by its context
// text, not by trusting the line number hint, and the pre-image text
// itself did not move. Only the new side is advanced, computed from
// h.OldStart+shift rather than h.NewStart, because h.NewStart already
// bakes in whatever offset sibling hunks contributed within the
// original, single base..head diff — an offset that has nothing to do
// with this run's own accumulated shift.
func shiftHunkHeader(h *Hunk, shift int) ([]byte, error) {
	idx := bytes.IndexByte(h.Body, '\n')
	if idx < 0 {
		return nil, fmt.Errorf("hunk %s has no header line", h.ID)
	}
	rest := h.Body[idx+1:]

	newHeader := fmt.Sprintf("@@ -%d,%d +%d,%d @@\n",
		h.OldStart, h.OldCount, h.OldStart+shift, h.NewCount)

	var out bytes.Buffer
	out.WriteString(newHeader)
	out.Write(rest)
	return out.Bytes(), nil
}
