package entities

import (
	"slices"
	"strings"
	"time"
)

// Enums and types
type TaskStatus string

const (
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusOnHold     TaskStatus = "on-hold"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskStatuses lists every status in display order.
var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusOnHold,
	TaskStatusCompleted,
	TaskStatusCancelled,
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task represents a task in the collection
type Task struct {
	ID             int        `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         TaskStatus `json:"status"`
	Priority       Priority   `json:"priority"`
	AssignedTo     int        `json:"assigned_to,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	ReminderDate   *time.Time `json:"reminder_date,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	Tags           []string   `json:"tags"`
	Dependencies   []int      `json:"dependencies"`
	Comments       []Comment  `json:"comments"`
	Progress       int        `json:"progress"`
	EstimatedHours float64    `json:"estimated_hours"`
	ActualHours    float64    `json:"actual_hours"`
	Category       string     `json:"category,omitempty"`
	ClientID       int        `json:"client_id,omitempty"`
}

// Comment is a note attached to a single task. IDs are unique per task only.
type Comment struct {
	ID        int       `json:"id"`
	TaskID    int       `json:"task_id"`
	UserID    int       `json:"user_id"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a directory record used for assignee display.
type User struct {
	ID    int    `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// Client is a directory record used for client display.
type Client struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Business logic methods for Task
func (t *Task) IsDeleted() bool {
	return t.DeletedAt != nil
}

func (t *Task) IsActive() bool {
	return t.DeletedAt == nil
}

func (t *Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

func (t *Task) DependsOn(id int) bool {
	return slices.Contains(t.Dependencies, id)
}

// AddTag reports whether the tag was added; an existing tag is left alone.
func (t *Task) AddTag(tag string) bool {
	if t.HasTag(tag) {
		return false
	}
	t.Tags = append(t.Tags, tag)
	return true
}

func (t *Task) RemoveTag(tag string) bool {
	idx := slices.Index(t.Tags, tag)
	if idx < 0 {
		return false
	}
	t.Tags = slices.Delete(t.Tags, idx, idx+1)
	return true
}

func (t *Task) AddDependency(id int) bool {
	if t.DependsOn(id) {
		return false
	}
	t.Dependencies = append(t.Dependencies, id)
	return true
}

func (t *Task) RemoveDependency(id int) bool {
	idx := slices.Index(t.Dependencies, id)
	if idx < 0 {
		return false
	}
	t.Dependencies = slices.Delete(t.Dependencies, idx, idx+1)
	return true
}

// NextCommentID returns max(comment ids)+1 within this task.
func (t *Task) NextCommentID() int {
	next := 1
	for _, c := range t.Comments {
		if c.ID >= next {
			next = c.ID + 1
		}
	}
	return next
}

func (t *Task) RemoveComment(id int) bool {
	idx := slices.IndexFunc(t.Comments, func(c Comment) bool { return c.ID == id })
	if idx < 0 {
		return false
	}
	t.Comments = slices.Delete(t.Comments, idx, idx+1)
	return true
}

func (t *Task) SetProgress(progress int) {
	t.Progress = ClampProgress(progress)
}

// Clone returns a deep copy; the collection is never shared between snapshots.
func (t Task) Clone() Task {
	out := t
	out.DueDate = cloneTime(t.DueDate)
	out.StartDate = cloneTime(t.StartDate)
	out.ReminderDate = cloneTime(t.ReminderDate)
	out.DeletedAt = cloneTime(t.DeletedAt)
	out.Tags = slices.Clone(t.Tags)
	out.Dependencies = slices.Clone(t.Dependencies)
	out.Comments = slices.Clone(t.Comments)
	return out
}

// Normalize enforces the set and range invariants on a task read from storage.
func (t *Task) Normalize() {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Dependencies == nil {
		t.Dependencies = []int{}
	}
	if t.Comments == nil {
		t.Comments = []Comment{}
	}
	t.Tags = dedupe(t.Tags)
	t.Dependencies = dedupe(t.Dependencies)
	t.Progress = ClampProgress(t.Progress)
}

// ClampProgress bounds progress to [0,100].
func ClampProgress(progress int) int {
	return min(max(progress, 0), 100)
}

// NormalizeTag trims surrounding whitespace from a tag.
func NormalizeTag(tag string) string {
	return strings.TrimSpace(tag)
}

// CloneTasks deep-copies a collection.
func CloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// FindTask returns the index of the task with the given id, or -1.
func FindTask(tasks []Task, id int) int {
	return slices.IndexFunc(tasks, func(t Task) bool { return t.ID == id })
}

// NextTaskID returns max(ids)+1, or 1 for an empty collection.
func NextTaskID(tasks []Task) int {
	next := 1
	for _, t := range tasks {
		if t.ID >= next {
			next = t.ID + 1
		}
	}
	return next
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func dedupe[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Utility methods
func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusCompleted, TaskStatusPending, TaskStatusInProgress, TaskStatusOnHold, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Label returns the fixed display label for the status.
func (ts TaskStatus) Label() string {
	switch ts {
	case TaskStatusCompleted:
		return "Completed"
	case TaskStatusPending:
		return "Pending"
	case TaskStatusInProgress:
		return "In Progress"
	case TaskStatusOnHold:
		return "On Hold"
	case TaskStatusCancelled:
		return "Cancelled"
	default:
		return string(ts)
	}
}

// IsClosed reports whether the status takes the task out of upcoming work.
func (ts TaskStatus) IsClosed() bool {
	return ts == TaskStatusCompleted || ts == TaskStatusCancelled
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}
