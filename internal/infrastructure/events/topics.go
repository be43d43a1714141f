package events

import (
	"github.com/taskmaster/tasksync/internal/domain/entities"
	"github.com/taskmaster/tasksync/internal/domain/stats"
)

// Source tags which lifecycle operation caused an event
type Source string

const (
	SourceAdd        Source = "task-add"
	SourceUpdate     Source = "task-update"
	SourceDelete     Source = "task-delete"
	SourceRestore    Source = "task-restore"
	SourceTag        Source = "task-tag"
	SourceDependency Source = "task-dependency"
	SourceComment    Source = "task-comment"
	SourceProgress   Source = "task-progress"
	SourceRefresh    Source = "refresh"
)

// CollectionEvent is published after every successful mutation. Tasks
// holds the active collection only.
type CollectionEvent struct {
	Source Source          `json:"source"`
	TaskID int             `json:"task_id,omitempty"`
	Tasks  []entities.Task `json:"tasks"`
}

// TaskListEvent carries one derived task list (upcoming or recent)
type TaskListEvent struct {
	Source Source          `json:"source"`
	Tasks  []entities.Task `json:"tasks"`
}

// The topic set is closed: topics can only be declared in this package.
var (
	CollectionChanged      = newTopic[CollectionEvent]("tasks:changed")
	CompletionStatsChanged = newTopic[stats.CompletionStats]("tasks:completion-stats")
	UpcomingChanged        = newTopic[TaskListEvent]("tasks:upcoming")
	RecentChanged          = newTopic[TaskListEvent]("tasks:recent")
	WidgetRefresh          = newTopic[stats.Snapshot]("widgets:refresh")
)
