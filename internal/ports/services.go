package ports

import (
	"context"
	"time"

	"github.com/taskmaster/tasksync/internal/domain/entities"
	"github.com/taskmaster/tasksync/internal/domain/stats"
)

// TaskService interface for task lifecycle operations
type TaskService interface {
	CreateTask(ctx context.Context, req CreateTaskRequest) (*entities.Task, error)
	GetTask(ctx context.Context, id int) (*entities.Task, error)
	UpdateTask(ctx context.Context, id int, req UpdateTaskRequest) (*entities.Task, error)
	DeleteTask(ctx context.Context, id int) (*entities.Task, error)
	RestoreTask(ctx context.Context, id int) (*entities.Task, error)
	ListTasks(ctx context.Context, query TaskQuery) ([]entities.Task, error)
	ListDeletedTasks(ctx context.Context) ([]entities.Task, error)

	AddTag(ctx context.Context, id int, tag string) (*entities.Task, error)
	RemoveTag(ctx context.Context, id int, tag string) (*entities.Task, error)
	AddDependency(ctx context.Context, id, dependencyID int) (*entities.Task, error)
	RemoveDependency(ctx context.Context, id, dependencyID int) (*entities.Task, error)
	AddComment(ctx context.Context, id int, req AddCommentRequest) (*entities.Comment, error)
	RemoveComment(ctx context.Context, id, commentID int) (*entities.Task, error)
	SetProgress(ctx context.Context, id, progress int) (*entities.Task, error)
	SetEstimatedHours(ctx context.Context, id int, hours float64) (*entities.Task, error)
	SetActualHours(ctx context.Context, id int, hours float64) (*entities.Task, error)

	Stats(ctx context.Context) (stats.Snapshot, error)
}

// Request/Response Types

// CreateTaskRequest is the draft passed to add; id and created_at are assigned by the service.
type CreateTaskRequest struct {
	Title          string              `json:"title" validate:"required,max=255"`
	Description    string              `json:"description" validate:"max=5000"`
	Status         entities.TaskStatus `json:"status" validate:"omitempty,oneof=completed pending in-progress on-hold cancelled"`
	Priority       entities.Priority   `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo     int                 `json:"assigned_to" validate:"min=0"`
	DueDate        *time.Time          `json:"due_date"`
	StartDate      *time.Time          `json:"start_date"`
	ReminderDate   *time.Time          `json:"reminder_date"`
	Tags           []string            `json:"tags" validate:"dive,required,max=64"`
	Dependencies   []int               `json:"dependencies" validate:"dive,min=1"`
	Progress       int                 `json:"progress"`
	EstimatedHours float64             `json:"estimated_hours" validate:"min=0"`
	ActualHours    float64             `json:"actual_hours" validate:"min=0"`
	Category       string              `json:"category" validate:"max=100"`
	ClientID       int                 `json:"client_id" validate:"min=0"`
}

// UpdateTaskRequest is a shallow patch; nil fields are left untouched.
type UpdateTaskRequest struct {
	Title          *string              `json:"title" validate:"omitempty,max=255"`
	Description    *string              `json:"description" validate:"omitempty,max=5000"`
	Status         *entities.TaskStatus `json:"status" validate:"omitempty,oneof=completed pending in-progress on-hold cancelled"`
	Priority       *entities.Priority   `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo     *int                 `json:"assigned_to" validate:"omitempty,min=0"`
	DueDate        *time.Time           `json:"due_date"`
	StartDate      *time.Time           `json:"start_date"`
	ReminderDate   *time.Time           `json:"reminder_date"`
	Progress       *int                 `json:"progress"`
	EstimatedHours *float64             `json:"estimated_hours" validate:"omitempty,min=0"`
	ActualHours    *float64             `json:"actual_hours" validate:"omitempty,min=0"`
	Category       *string              `json:"category" validate:"omitempty,max=100"`
	ClientID       *int                 `json:"client_id" validate:"omitempty,min=0"`
}

type AddCommentRequest struct {
	UserID  int    `json:"user_id" validate:"min=0"`
	Comment string `json:"comment" validate:"required,max=5000"`
}

// TaskQuery filters the active collection.
type TaskQuery struct {
	Status     *entities.TaskStatus
	Priority   *entities.Priority
	AssignedTo *int
	ClientID   *int
	Tag        string
	Category   string
}
