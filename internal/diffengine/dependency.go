package diffengine

import "sort"

// DependencySubgroup is a maximal run of hunks within one file whose
// pre-image ranges are close enough that they must be applied together
// (spec.md §3/§4.2).
type DependencySubgroup struct {
	FilePath string
	Hunks    []*Hunk // ordered by OldStart
}

// contextWindow is the default number of context lines `git diff` emits
// around a change; two hunks whose pre-image gap is smaller than this
// cannot be represented as independent patches against the same blob.
const contextWindow = 3

// AnalyzeDependencies partitions a group's hunks into per-file
// DependencySubgroups using the adjacency rule of spec.md §4.2: two hunks
// in the same file belong to the same subgroup when their pre-image
// ranges overlap or touch, or the gap between them is smaller than
// contextWindow lines. Hunks from different files are never dependent.
// Grounded on the inverse operation in Roasbeef-hunk's findChangeBlocks,
// which merges adjacent change lines using the same context-window test
// this function uses to merge adjacent hunks.
func AnalyzeDependencies(hunks []*Hunk) []*DependencySubgroup {
	byFile := make(map[string][]*Hunk)
	var order []string
	for _, h := range hunks {
		if _, ok := byFile[h.FilePath]; !ok {
			order = append(order, h.FilePath)
		}
		byFile[h.FilePath] = append(byFile[h.FilePath], h)
	}

	var subgroups []*DependencySubgroup
	for _, file := range order {
		fileHunks := byFile[file]
		sort.Slice(fileHunks, func(i, j int) bool {
			return fileHunks[i].OldStart < fileHunks[j].OldStart
		})

		var current *DependencySubgroup
		for _, h := range fileHunks {
			if current == nil {
				current = &DependencySubgroup{FilePath: file, Hunks: []*Hunk{h}}
				subgroups = append(subgroups, current)
				continue
			}

			last := current.Hunks[len(current.Hunks)-1]
			if dependent(last, h) {
				current.Hunks = append(current.Hunks, h)
			} else {
				current = &DependencySubgroup{FilePath: file, Hunks: []*Hunk{h}}
				subgroups = append(subgroups, current)
			}
		}
	}

	return subgroups
}

// dependent reports whether b must share a subgroup with a, given a comes
// first in old_start order. Zero-body hunks (renames, mode changes) have
// no pre-image range and never force adjacency.
func dependent(a, b *Hunk) bool {
	if a.OldCount == 0 || b.OldCount == 0 {
		return false
	}
	aEnd := a.OldStart + a.OldCount - 1
	gap := b.OldStart - aEnd - 1
	return gap < contextWindow
}
