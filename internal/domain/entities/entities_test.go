package entities

import (
	"errors"
	"testing"
	"time"
)

func TestTagsAreASet(t *testing.T) {
	task := Task{ID: 1}

	if !task.AddTag("urgent") {
		t.Fatalf("first AddTag should report a change")
	}
	if task.AddTag("urgent") {
		t.Errorf("second AddTag should be a no-op")
	}
	if len(task.Tags) != 1 {
		t.Fatalf("expected 1 tag, got %v", task.Tags)
	}

	if !task.RemoveTag("urgent") {
		t.Errorf("RemoveTag of present tag should report a change")
	}
	if task.RemoveTag("urgent") {
		t.Errorf("RemoveTag of absent tag should be a no-op")
	}
	if len(task.Tags) != 0 {
		t.Errorf("expected no tags, got %v", task.Tags)
	}
}

func TestDependenciesAreASet(t *testing.T) {
	task := Task{ID: 1}
	task.AddDependency(2)
	task.AddDependency(2)
	task.AddDependency(3)

	if len(task.Dependencies) != 2 || !task.DependsOn(2) || !task.DependsOn(3) {
		t.Fatalf("unexpected dependencies %v", task.Dependencies)
	}

	task.RemoveDependency(2)
	if task.DependsOn(2) {
		t.Errorf("dependency 2 should be gone")
	}
}

func TestNextCommentID(t *testing.T) {
	task := Task{}
	if got := task.NextCommentID(); got != 1 {
		t.Errorf("empty task: expected 1, got %d", got)
	}

	task.Comments = []Comment{{ID: 1}, {ID: 4}, {ID: 2}}
	if got := task.NextCommentID(); got != 5 {
		t.Errorf("expected max+1 = 5, got %d", got)
	}

	if !task.RemoveComment(4) {
		t.Fatalf("RemoveComment(4) should succeed")
	}
	if task.RemoveComment(4) {
		t.Errorf("RemoveComment of a missing id should report false")
	}
}

func TestClampProgress(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-10, 0},
		{0, 0},
		{55, 55},
		{100, 100},
		{150, 100},
	}
	for _, tt := range tests {
		if got := ClampProgress(tt.in); got != tt.want {
			t.Errorf("ClampProgress(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNextTaskID(t *testing.T) {
	if got := NextTaskID(nil); got != 1 {
		t.Errorf("empty collection: expected 1, got %d", got)
	}

	tasks := []Task{{ID: 3}, {ID: 7}, {ID: 5}}
	if got := NextTaskID(tasks); got != 8 {
		t.Errorf("expected 8, got %d", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	orig := Task{
		ID:           1,
		DueDate:      &due,
		Tags:         []string{"a"},
		Dependencies: []int{2},
		Comments:     []Comment{{ID: 1, Comment: "hi"}},
	}

	clone := orig.Clone()
	clone.Tags[0] = "b"
	clone.Dependencies[0] = 9
	clone.Comments[0].Comment = "changed"
	*clone.DueDate = due.AddDate(0, 0, 1)

	if orig.Tags[0] != "a" || orig.Dependencies[0] != 2 || orig.Comments[0].Comment != "hi" {
		t.Errorf("clone shares slices with original: %+v", orig)
	}
	if !orig.DueDate.Equal(due) {
		t.Errorf("clone shares due date with original")
	}
}

func TestNormalize(t *testing.T) {
	task := Task{
		Tags:         []string{"x", "y", "x"},
		Dependencies: []int{1, 1, 2},
		Progress:     140,
	}
	task.Normalize()

	if len(task.Tags) != 2 || len(task.Dependencies) != 2 {
		t.Errorf("duplicates survived: tags=%v deps=%v", task.Tags, task.Dependencies)
	}
	if task.Progress != 100 {
		t.Errorf("progress not clamped: %d", task.Progress)
	}
	if task.Comments == nil {
		t.Errorf("nil comments should become empty")
	}
}

func TestStatusLabels(t *testing.T) {
	want := map[TaskStatus]string{
		TaskStatusCompleted:  "Completed",
		TaskStatusPending:    "Pending",
		TaskStatusInProgress: "In Progress",
		TaskStatusOnHold:     "On Hold",
		TaskStatusCancelled:  "Cancelled",
	}
	for status, label := range want {
		if !status.IsValid() {
			t.Errorf("%q should be valid", status)
		}
		if got := status.Label(); got != label {
			t.Errorf("%q label = %q, want %q", status, got, label)
		}
	}
	if TaskStatus("archived").IsValid() {
		t.Errorf("unknown status accepted")
	}
}

func TestInvalidOperationErrors(t *testing.T) {
	for _, err := range []error{ErrSelfDependency, ErrDependencyCycle, ErrInvalidStatus, ErrInvalidPriority, ErrEmptyTag, ErrEmptyComment} {
		if !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("%v should wrap ErrInvalidOperation", err)
		}
	}
	if errors.Is(ErrTaskNotFound, ErrInvalidOperation) {
		t.Errorf("not found is not an invalid operation")
	}
}
