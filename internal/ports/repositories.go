package ports

import (
	"context"

	"github.com/taskmaster/tasksync/internal/domain/entities"
)

// RemoteStore is the authoritative relational store for tasks.
// Any error is treated by callers as the store being unavailable.
type RemoteStore interface {
	SelectTasks(ctx context.Context, filter TaskFilter) ([]entities.Task, error)
	InsertTask(ctx context.Context, task *entities.Task) error
	UpdateTask(ctx context.Context, id int, task *entities.Task) error
}

// LocalCache is a process-surviving key-value store. Get reports ok=false
// when the key has never been written.
type LocalCache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// UserDirectory resolves assignees for display.
type UserDirectory interface {
	GetByID(ctx context.Context, id int) (*entities.User, error)
}

// ClientDirectory resolves clients for display.
type ClientDirectory interface {
	GetByID(ctx context.Context, id int) (*entities.Client, error)
}

// TaskFilter narrows a remote select
type TaskFilter struct {
	IDs        []int
	ActiveOnly bool
}
