// Package stats derives read-only views from a task collection snapshot.
// Nothing here is stored; every value is recomputed from the tasks passed in.
package stats

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/taskmaster/tasksync/internal/domain/entities"
)

const (
	// UpcomingWindowDays is the length of the upcoming window, counted from today 00:00.
	UpcomingWindowDays = 7
	// RecentLimit caps the recent list.
	RecentLimit = 5
)

// Snapshot is the full derived-stats payload.
type Snapshot struct {
	StatusCounts   map[entities.TaskStatus]int `json:"status_counts"`
	Total          int                         `json:"total"`
	CompletionRate int                         `json:"completion_rate"`
	Upcoming       []entities.Task             `json:"upcoming"`
	Recent         []entities.Task             `json:"recent"`
	GeneratedAt    time.Time                   `json:"generated_at"`
}

// CompletionStats is the subset of a snapshot shown by completion widgets.
type CompletionStats struct {
	StatusCounts   map[entities.TaskStatus]int `json:"status_counts"`
	Total          int                         `json:"total"`
	CompletionRate int                         `json:"completion_rate"`
}

// Derive computes every derived view over the active tasks.
func Derive(tasks []entities.Task, now time.Time) Snapshot {
	active := Active(tasks)
	counts := StatusCounts(active)

	return Snapshot{
		StatusCounts:   counts,
		Total:          len(active),
		CompletionRate: CompletionRate(counts[entities.TaskStatusCompleted], len(active)),
		Upcoming:       Upcoming(active, now),
		Recent:         Recent(active, RecentLimit),
		GeneratedAt:    now,
	}
}

// Completion extracts the completion widget payload.
func (s Snapshot) Completion() CompletionStats {
	return CompletionStats{
		StatusCounts:   s.StatusCounts,
		Total:          s.Total,
		CompletionRate: s.CompletionRate,
	}
}

// Active filters out soft-deleted tasks.
func Active(tasks []entities.Task) []entities.Task {
	out := make([]entities.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsActive() {
			out = append(out, t)
		}
	}
	return out
}

// Deleted returns only soft-deleted tasks.
func Deleted(tasks []entities.Task) []entities.Task {
	out := make([]entities.Task, 0)
	for _, t := range tasks {
		if t.IsDeleted() {
			out = append(out, t)
		}
	}
	return out
}

// StatusCounts counts tasks per status. Every known status is present, zero or not.
func StatusCounts(tasks []entities.Task) map[entities.TaskStatus]int {
	counts := make(map[entities.TaskStatus]int, len(entities.TaskStatuses))
	for _, s := range entities.TaskStatuses {
		counts[s] = 0
	}
	for _, t := range tasks {
		if t.Status.IsValid() {
			counts[t.Status]++
		}
	}
	return counts
}

// CompletionRate is round(completed/total*100), or 0 for an empty collection.
func CompletionRate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Upcoming returns open tasks due within [today 00:00, today+7d 00:00], soonest first.
func Upcoming(tasks []entities.Task, now time.Time) []entities.Task {
	start := StartOfDay(now)
	end := start.AddDate(0, 0, UpcomingWindowDays)

	out := make([]entities.Task, 0)
	for _, t := range tasks {
		if t.DueDate == nil || t.Status.IsClosed() {
			continue
		}
		if t.DueDate.Before(start) || t.DueDate.After(end) {
			continue
		}
		out = append(out, t)
	}

	slices.SortStableFunc(out, func(a, b entities.Task) int {
		return cmp.Or(a.DueDate.Compare(*b.DueDate), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// Recent returns up to limit tasks, newest created_at first.
func Recent(tasks []entities.Task, limit int) []entities.Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, func(a, b entities.Task) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []entities.Task{}
	}
	return out
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
