package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taskmaster/tasksync/internal/domain/entities"
	"github.com/taskmaster/tasksync/internal/infrastructure/logger"
	"github.com/taskmaster/tasksync/internal/ports"
)

// taskRow is the relational shape of a task. Collections live in JSON columns.
type taskRow struct {
	ID             int                          `db:"id"`
	Title          string                       `db:"title"`
	Description    string                       `db:"description"`
	Status         string                       `db:"status"`
	Priority       string                       `db:"priority"`
	AssignedTo     int                          `db:"assigned_to"`
	DueDate        *time.Time                   `db:"due_date"`
	CreatedAt      time.Time                    `db:"created_at"`
	StartDate      *time.Time                   `db:"start_date"`
	ReminderDate   *time.Time                   `db:"reminder_date"`
	DeletedAt      *time.Time                   `db:"deleted_at"`
	Tags           jsonColumn[string]           `db:"tags"`
	Dependencies   jsonColumn[int]              `db:"dependencies"`
	Comments       jsonColumn[entities.Comment] `db:"comments"`
	Progress       int                          `db:"progress"`
	EstimatedHours float64                      `db:"estimated_hours"`
	ActualHours    float64                      `db:"actual_hours"`
	Category       string                       `db:"category"`
	ClientID       int                          `db:"client_id"`
}

func (r taskRow) toEntity() entities.Task {
	return entities.Task{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Status:         entities.TaskStatus(r.Status),
		Priority:       entities.Priority(r.Priority),
		AssignedTo:     r.AssignedTo,
		DueDate:        r.DueDate,
		CreatedAt:      r.CreatedAt,
		StartDate:      r.StartDate,
		ReminderDate:   r.ReminderDate,
		DeletedAt:      r.DeletedAt,
		Tags:           r.Tags.V,
		Dependencies:   r.Dependencies.V,
		Comments:       r.Comments.V,
		Progress:       r.Progress,
		EstimatedHours: r.EstimatedHours,
		ActualHours:    r.ActualHours,
		Category:       r.Category,
		ClientID:       r.ClientID,
	}
}

func rowFromEntity(t *entities.Task) taskRow {
	return taskRow{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		AssignedTo:     t.AssignedTo,
		DueDate:        t.DueDate,
		CreatedAt:      t.CreatedAt,
		StartDate:      t.StartDate,
		ReminderDate:   t.ReminderDate,
		DeletedAt:      t.DeletedAt,
		Tags:           jsonColumn[string]{V: t.Tags},
		Dependencies:   jsonColumn[int]{V: t.Dependencies},
		Comments:       jsonColumn[entities.Comment]{V: t.Comments},
		Progress:       t.Progress,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		Category:       t.Category,
		ClientID:       t.ClientID,
	}
}

const taskColumns = `id, title, description, status, priority, assigned_to, due_date, created_at,
	start_date, reminder_date, deleted_at, tags, dependencies, comments, progress,
	estimated_hours, actual_hours, category, client_id`

// TaskStore implements ports.RemoteStore on a SQL database. Queries are
// written with ? placeholders and rebound for the driver.
type TaskStore struct {
	db     *sqlx.DB
	logger *logger.Logger
}

var _ ports.RemoteStore = (*TaskStore)(nil)

// NewTaskStore creates a new task store
func NewTaskStore(db *sqlx.DB, appLogger *logger.Logger) *TaskStore {
	return &TaskStore{db: db, logger: appLogger.WithComponent("task-store")}
}

func (s *TaskStore) SelectTasks(ctx context.Context, filter ports.TaskFilter) ([]entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []interface{}

	if filter.ActiveOnly {
		query += ` AND deleted_at IS NULL`
	}
	if len(filter.IDs) > 0 {
		in, inArgs, err := sqlx.In(` AND id IN (?)`, filter.IDs)
		if err != nil {
			return nil, fmt.Errorf("select tasks: %w", err)
		}
		query += in
		args = append(args, inArgs...)
	}
	query += ` ORDER BY id`

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, s.wrap("select tasks", err)
	}

	tasks := make([]entities.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toEntity())
	}
	return tasks, nil
}

func (s *TaskStore) InsertTask(ctx context.Context, task *entities.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES (:id, :title, :description, :status, :priority, :assigned_to, :due_date, :created_at,
			:start_date, :reminder_date, :deleted_at, :tags, :dependencies, :comments, :progress,
			:estimated_hours, :actual_hours, :category, :client_id)`

	if _, err := s.db.NamedExecContext(ctx, query, rowFromEntity(task)); err != nil {
		return s.wrap("insert task", err)
	}
	return nil
}

// UpdateTask writes every column of the task. A task the store never saw,
// e.g. one added while it was unreachable, is inserted.
func (s *TaskStore) UpdateTask(ctx context.Context, id int, task *entities.Task) error {
	row := rowFromEntity(task)
	row.ID = id

	query := `UPDATE tasks SET title = :title, description = :description, status = :status,
			priority = :priority, assigned_to = :assigned_to, due_date = :due_date,
			start_date = :start_date, reminder_date = :reminder_date, deleted_at = :deleted_at,
			tags = :tags, dependencies = :dependencies, comments = :comments, progress = :progress,
			estimated_hours = :estimated_hours, actual_hours = :actual_hours,
			category = :category, client_id = :client_id
		WHERE id = :id`

	res, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return s.wrap("update task", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	missing := *task
	missing.ID = id
	return s.InsertTask(ctx, &missing)
}

// wrap logs the Postgres error class when there is one. The caller treats
// every error alike, so the class is for operators only.
func (s *TaskStore) wrap(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		s.logger.Debugw("Postgres error", "operation", op,
			"code", string(pqErr.Code), "class", pqErr.Code.Class().Name(), "detail", pqErr.Detail)
	}
	return fmt.Errorf("%s: %w", op, err)
}
