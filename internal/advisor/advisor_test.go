package advisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/syou6162/git-rebuild-history/internal/diffengine"
)

func TestValidateCompletePartition(t *testing.T) {
	hunks := []*diffengine.Hunk{
		{ID: "a.go:1-3"},
		{ID: "b.go:1-3"},
	}
	plan := GroupingPlan{Groups: []Group{
		{Message: "first", HunkIDs: []string{"a.go:1-3"}},
		{Message: "second", HunkIDs: []string{"b.go:1-3"}},
	}}

	if err := Validate(plan, hunks); err != nil {
		t.Fatalf("Validate returned error for a complete partition: %v", err)
	}
}

func TestValidateUnknownHunk(t *testing.T) {
	hunks := []*diffengine.Hunk{{ID: "a.go:1-3"}}
	plan := GroupingPlan{Groups: []Group{
		{Message: "bogus", HunkIDs: []string{"a.go:1-3", "nonexistent.go:1-1"}},
	}}

	err := Validate(plan, hunks)
	if err == nil {
		t.Fatal("expected validation error for unknown hunk id")
	}
	ve, ok := err.(*ValidationError)
	if !ok || ve.Kind != UnknownHunk {
		t.Errorf("expected UnknownHunk error, got %v", err)
	}
}

func TestValidateDuplicateHunk(t *testing.T) {
	hunks := []*diffengine.Hunk{{ID: "a.go:1-3"}}
	plan := GroupingPlan{Groups: []Group{
		{Message: "one", HunkIDs: []string{"a.go:1-3"}},
		{Message: "two", HunkIDs: []string{"a.go:1-3"}},
	}}

	err := Validate(plan, hunks)
	if err == nil {
		t.Fatal("expected validation error for duplicate hunk id")
	}
	ve, ok := err.(*ValidationError)
	if !ok || ve.Kind != DuplicateHunk {
		t.Errorf("expected DuplicateHunk error, got %v", err)
	}
}

func TestValidateIncompletePartition(t *testing.T) {
	hunks := []*diffengine.Hunk{{ID: "a.go:1-3"}, {ID: "b.go:1-3"}}
	plan := GroupingPlan{Groups: []Group{
		{Message: "one", HunkIDs: []string{"a.go:1-3"}},
	}}

	err := Validate(plan, hunks)
	if err == nil {
		t.Fatal("expected validation error for incomplete partition")
	}
	ve, ok := err.(*ValidationError)
	if !ok || ve.Kind != IncompletePartition {
		t.Errorf("expected IncompletePartition error, got %v", err)
	}
}

func TestFileSourcePlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "groups.json")
	content := `{"groups":[{"message":"msg","hunk_ids":["a.go:1-3"]}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	src := FileSource{Path: path}
	plan, err := src.Plan(context.Background(), nil)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(plan.Groups) != 1 || plan.Groups[0].Message != "msg" {
		t.Errorf("unexpected plan: %+v", plan)
	}
}

func TestFileSourcePlanMissingFile(t *testing.T) {
	src := FileSource{Path: "/nonexistent/path/groups.json"}
	if _, err := src.Plan(context.Background(), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}
