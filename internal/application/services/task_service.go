package services

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/taskmaster/tasksync/internal/domain/entities"
	"github.com/taskmaster/tasksync/internal/domain/stats"
	"github.com/taskmaster/tasksync/internal/infrastructure/clock"
	"github.com/taskmaster/tasksync/internal/infrastructure/events"
	"github.com/taskmaster/tasksync/internal/infrastructure/logger"
	"github.com/taskmaster/tasksync/internal/infrastructure/metrics"
	"github.com/taskmaster/tasksync/internal/ports"
)

// TaskService handles task lifecycle operations. Each mutation is one
// load, transform, persist, notify round trip over the whole collection.
type TaskService struct {
	repo    *TaskRepository
	bus     *events.Bus
	clock   clock.Clock
	logger  *logger.Logger
	metrics *metrics.Metrics

	// mu serializes mutations from read through persist
	mu sync.Mutex

	detectCycles bool
}

var _ ports.TaskService = (*TaskService)(nil)

// ServiceOption configures a TaskService
type ServiceOption func(*TaskService)

func WithClock(c clock.Clock) ServiceOption {
	return func(s *TaskService) { s.clock = c }
}

func WithServiceMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *TaskService) { s.metrics = m }
}

// WithCycleDetection rejects dependency additions that would close a cycle.
func WithCycleDetection() ServiceOption {
	return func(s *TaskService) { s.detectCycles = true }
}

// NewTaskService creates a new task service
func NewTaskService(repo *TaskRepository, bus *events.Bus, appLogger *logger.Logger, opts ...ServiceOption) *TaskService {
	s := &TaskService{
		repo:   repo,
		bus:    bus,
		clock:  clock.Real(),
		logger: appLogger.WithComponent("task-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// transform edits a private copy of the collection and returns the id of
// the task it changed.
type transform func(tasks []entities.Task) ([]entities.Task, int, error)

type remoteSync int

const (
	syncUpdate remoteSync = iota
	syncInsert
)

// CreateTask assigns the next id, stamps created_at and appends the task
func (s *TaskService) CreateTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	status := req.Status
	if status == "" {
		status = entities.TaskStatusPending
	}
	if !status.IsValid() {
		return nil, entities.ErrInvalidStatus
	}
	priority := req.Priority
	if priority == "" {
		priority = entities.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, entities.ErrInvalidPriority
	}

	now := s.clock.Now()
	return s.mutate(ctx, events.SourceAdd, syncInsert, func(tasks []entities.Task) ([]entities.Task, int, error) {
		task := entities.Task{
			ID:             entities.NextTaskID(tasks),
			Title:          req.Title,
			Description:    req.Description,
			Status:         status,
			Priority:       priority,
			AssignedTo:     req.AssignedTo,
			DueDate:        req.DueDate,
			CreatedAt:      now,
			StartDate:      req.StartDate,
			ReminderDate:   req.ReminderDate,
			Tags:           make([]string, 0, len(req.Tags)),
			Dependencies:   make([]int, 0, len(req.Dependencies)),
			Comments:       []entities.Comment{},
			Progress:       entities.ClampProgress(req.Progress),
			EstimatedHours: req.EstimatedHours,
			ActualHours:    req.ActualHours,
			Category:       req.Category,
			ClientID:       req.ClientID,
		}

		for _, tag := range req.Tags {
			if tag = entities.NormalizeTag(tag); tag != "" {
				task.AddTag(tag)
			}
		}
		for _, dep := range req.Dependencies {
			if dep == task.ID {
				return nil, 0, entities.ErrSelfDependency
			}
			if entities.FindTask(tasks, dep) < 0 {
				return nil, 0, fmt.Errorf("dependency %d: %w", dep, entities.ErrTaskNotFound)
			}
			task.AddDependency(dep)
		}

		return append(tasks, task), task.ID, nil
	})
}

// GetTask returns a task by id, soft-deleted or not
func (s *TaskService) GetTask(ctx context.Context, id int) (*entities.Task, error) {
	snap := s.repo.FetchAll(ctx)
	idx := entities.FindTask(snap.Tasks, id)
	if idx < 0 {
		return nil, entities.ErrTaskNotFound
	}
	task := snap.Tasks[idx].Clone()
	return &task, nil
}

// UpdateTask shallow-merges the non-nil patch fields
func (s *TaskService) UpdateTask(ctx context.Context, id int, req ports.UpdateTaskRequest) (*entities.Task, error) {
	if req.Status != nil && !req.Status.IsValid() {
		return nil, entities.ErrInvalidStatus
	}
	if req.Priority != nil && !req.Priority.IsValid() {
		return nil, entities.ErrInvalidPriority
	}

	return s.mutateTask(ctx, events.SourceUpdate, id, func(task *entities.Task, _ []entities.Task) error {
		applyPatch(task, req)
		return nil
	})
}

// DeleteTask soft-deletes a task by stamping deleted_at
func (s *TaskService) DeleteTask(ctx context.Context, id int) (*entities.Task, error) {
	now := s.clock.Now()
	return s.mutateTask(ctx, events.SourceDelete, id, func(task *entities.Task, _ []entities.Task) error {
		task.DeletedAt = &now
		return nil
	})
}

// RestoreTask clears deleted_at
func (s *TaskService) RestoreTask(ctx context.Context, id int) (*entities.Task, error) {
	return s.mutateTask(ctx, events.SourceRestore, id, func(task *entities.Task, _ []entities.Task) error {
		task.DeletedAt = nil
		return nil
	})
}

// ListTasks returns active tasks matching the query, in collection order
func (s *TaskService) ListTasks(ctx context.Context, query ports.TaskQuery) ([]entities.Task, error) {
	snap := s.repo.FetchAll(ctx)
	out := make([]entities.Task, 0, len(snap.Tasks))
	for _, t := range stats.Active(snap.Tasks) {
		if matches(t, query) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListDeletedTasks returns the soft-deleted tasks, i.e. the restore candidates
func (s *TaskService) ListDeletedTasks(ctx context.Context) ([]entities.Task, error) {
	return stats.Deleted(s.repo.FetchAll(ctx).Tasks), nil
}

// Load returns the full collection with its provenance
func (s *TaskService) Load(ctx context.Context) Snapshot {
	return s.repo.FetchAll(ctx)
}

// AddTag adds a tag; adding a present tag is a no-op
func (s *TaskService) AddTag(ctx context.Context, id int, tag string) (*entities.Task, error) {
	tag = entities.NormalizeTag(tag)
	if tag == "" {
		return nil, entities.ErrEmptyTag
	}
	return s.mutateTask(ctx, events.SourceTag, id, func(task *entities.Task, _ []entities.Task) error {
		task.AddTag(tag)
		return nil
	})
}

// RemoveTag removes a tag; removing an absent tag is a no-op
func (s *TaskService) RemoveTag(ctx context.Context, id int, tag string) (*entities.Task, error) {
	tag = entities.NormalizeTag(tag)
	return s.mutateTask(ctx, events.SourceTag, id, func(task *entities.Task, _ []entities.Task) error {
		task.RemoveTag(tag)
		return nil
	})
}

// AddDependency records that id depends on dependencyID
func (s *TaskService) AddDependency(ctx context.Context, id, dependencyID int) (*entities.Task, error) {
	if id == dependencyID {
		return nil, entities.ErrSelfDependency
	}
	return s.mutateTask(ctx, events.SourceDependency, id, func(task *entities.Task, tasks []entities.Task) error {
		if entities.FindTask(tasks, dependencyID) < 0 {
			return fmt.Errorf("dependency %d: %w", dependencyID, entities.ErrTaskNotFound)
		}
		if s.detectCycles && reaches(tasks, dependencyID, id) {
			return entities.ErrDependencyCycle
		}
		task.AddDependency(dependencyID)
		return nil
	})
}

// RemoveDependency drops a dependency; removing an absent one is a no-op
func (s *TaskService) RemoveDependency(ctx context.Context, id, dependencyID int) (*entities.Task, error) {
	return s.mutateTask(ctx, events.SourceDependency, id, func(task *entities.Task, _ []entities.Task) error {
		task.RemoveDependency(dependencyID)
		return nil
	})
}

// AddComment appends a comment with the next per-task comment id
func (s *TaskService) AddComment(ctx context.Context, id int, req ports.AddCommentRequest) (*entities.Comment, error) {
	text := strings.TrimSpace(req.Comment)
	if text == "" {
		return nil, entities.ErrEmptyComment
	}

	now := s.clock.Now()
	var added entities.Comment
	_, err := s.mutateTask(ctx, events.SourceComment, id, func(task *entities.Task, _ []entities.Task) error {
		added = entities.Comment{
			ID:        task.NextCommentID(),
			TaskID:    task.ID,
			UserID:    req.UserID,
			Comment:   text,
			CreatedAt: now,
		}
		task.Comments = append(task.Comments, added)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// RemoveComment deletes a comment by its per-task id
func (s *TaskService) RemoveComment(ctx context.Context, id, commentID int) (*entities.Task, error) {
	return s.mutateTask(ctx, events.SourceComment, id, func(task *entities.Task, _ []entities.Task) error {
		if !task.RemoveComment(commentID) {
			return fmt.Errorf("comment %d on task %d: %w", commentID, id, entities.ErrCommentNotFound)
		}
		return nil
	})
}

// SetProgress stores progress clamped to [0,100]
func (s *TaskService) SetProgress(ctx context.Context, id, progress int) (*entities.Task, error) {
	return s.mutateTask(ctx, events.SourceProgress, id, func(task *entities.Task, _ []entities.Task) error {
		task.SetProgress(progress)
		return nil
	})
}

// SetEstimatedHours stores hours as given; callers enforce non-negativity
func (s *TaskService) SetEstimatedHours(ctx context.Context, id int, hours float64) (*entities.Task, error) {
	return s.mutateTask(ctx, events.SourceProgress, id, func(task *entities.Task, _ []entities.Task) error {
		task.EstimatedHours = hours
		return nil
	})
}

// SetActualHours stores hours as given; callers enforce non-negativity
func (s *TaskService) SetActualHours(ctx context.Context, id int, hours float64) (*entities.Task, error) {
	return s.mutateTask(ctx, events.SourceProgress, id, func(task *entities.Task, _ []entities.Task) error {
		task.ActualHours = hours
		return nil
	})
}

// SetStatus and the setters below are single-field updates.
func (s *TaskService) SetStatus(ctx context.Context, id int, status entities.TaskStatus) (*entities.Task, error) {
	return s.UpdateTask(ctx, id, ports.UpdateTaskRequest{Status: &status})
}

func (s *TaskService) SetPriority(ctx context.Context, id int, priority entities.Priority) (*entities.Task, error) {
	return s.UpdateTask(ctx, id, ports.UpdateTaskRequest{Priority: &priority})
}

func (s *TaskService) Assign(ctx context.Context, id, userID int) (*entities.Task, error) {
	return s.UpdateTask(ctx, id, ports.UpdateTaskRequest{AssignedTo: &userID})
}

func (s *TaskService) SetCategory(ctx context.Context, id int, category string) (*entities.Task, error) {
	return s.UpdateTask(ctx, id, ports.UpdateTaskRequest{Category: &category})
}

func (s *TaskService) SetClient(ctx context.Context, id, clientID int) (*entities.Task, error) {
	return s.UpdateTask(ctx, id, ports.UpdateTaskRequest{ClientID: &clientID})
}

// SetDueDate sets or, with a nil date, clears the due date
func (s *TaskService) SetDueDate(ctx context.Context, id int, due *time.Time) (*entities.Task, error) {
	return s.setDate(ctx, id, func(t *entities.Task) **time.Time { return &t.DueDate }, due)
}

func (s *TaskService) SetStartDate(ctx context.Context, id int, start *time.Time) (*entities.Task, error) {
	return s.setDate(ctx, id, func(t *entities.Task) **time.Time { return &t.StartDate }, start)
}

func (s *TaskService) SetReminderDate(ctx context.Context, id int, reminder *time.Time) (*entities.Task, error) {
	return s.setDate(ctx, id, func(t *entities.Task) **time.Time { return &t.ReminderDate }, reminder)
}

func (s *TaskService) setDate(ctx context.Context, id int, field func(*entities.Task) **time.Time, value *time.Time) (*entities.Task, error) {
	return s.mutateTask(ctx, events.SourceUpdate, id, func(task *entities.Task, _ []entities.Task) error {
		if value == nil {
			*field(task) = nil
			return nil
		}
		v := *value
		*field(task) = &v
		return nil
	})
}

// Stats derives the statistics for the current collection on demand
func (s *TaskService) Stats(ctx context.Context) (stats.Snapshot, error) {
	return stats.Derive(s.repo.FetchAll(ctx).Tasks, s.clock.Now()), nil
}

// Refresh re-reads the collection and republishes every topic so newly
// mounted listeners can render without waiting for a mutation.
func (s *TaskService) Refresh(ctx context.Context) stats.Snapshot {
	collection, snapshot := s.current(ctx)

	events.Publish(s.bus, events.CollectionChanged, collection)
	events.Publish(s.bus, events.CompletionStatsChanged, snapshot.Completion())
	events.Publish(s.bus, events.UpcomingChanged, events.TaskListEvent{Source: events.SourceRefresh, Tasks: snapshot.Upcoming})
	events.Publish(s.bus, events.RecentChanged, events.TaskListEvent{Source: events.SourceRefresh, Tasks: snapshot.Recent})
	events.Publish(s.bus, events.WidgetRefresh, snapshot)

	return snapshot
}

// Current returns the payload of every topic for the collection as it is
// now, in publish order, without publishing anything.
func (s *TaskService) Current(ctx context.Context) []events.Envelope {
	collection, snapshot := s.current(ctx)
	return []events.Envelope{
		{Topic: events.CollectionChanged.Name(), Payload: collection},
		{Topic: events.CompletionStatsChanged.Name(), Payload: snapshot.Completion()},
		{Topic: events.UpcomingChanged.Name(), Payload: events.TaskListEvent{Source: events.SourceRefresh, Tasks: snapshot.Upcoming}},
		{Topic: events.RecentChanged.Name(), Payload: events.TaskListEvent{Source: events.SourceRefresh, Tasks: snapshot.Recent}},
		{Topic: events.WidgetRefresh.Name(), Payload: snapshot},
	}
}

func (s *TaskService) current(ctx context.Context) (events.CollectionEvent, stats.Snapshot) {
	tasks := s.repo.FetchAll(ctx).Tasks
	collection := events.CollectionEvent{Source: events.SourceRefresh, Tasks: stats.Active(tasks)}
	return collection, stats.Derive(tasks, s.clock.Now())
}

func (s *TaskService) mutateTask(ctx context.Context, source events.Source, id int, fn func(task *entities.Task, tasks []entities.Task) error) (*entities.Task, error) {
	return s.mutate(ctx, source, syncUpdate, func(tasks []entities.Task) ([]entities.Task, int, error) {
		idx := entities.FindTask(tasks, id)
		if idx < 0 {
			return nil, 0, fmt.Errorf("task %d: %w", id, entities.ErrTaskNotFound)
		}
		if err := fn(&tasks[idx], tasks); err != nil {
			return nil, 0, err
		}
		return tasks, id, nil
	})
}

// mutate runs one read-modify-persist-notify round trip. A failed
// transform or cache write leaves the stored collection untouched and
// publishes nothing. Mutations are serialized up to the remote sync;
// listeners run after the lock is released so they may mutate in turn.
func (s *TaskService) mutate(ctx context.Context, source events.Source, mode remoteSync, fn transform) (*entities.Task, error) {
	s.mu.Lock()
	snap := s.repo.FetchAll(ctx)
	now := s.clock.Now()
	before := stats.Derive(snap.Tasks, now)

	next, id, err := fn(entities.CloneTasks(snap.Tasks))
	if err != nil {
		s.mu.Unlock()
		s.metrics.MutationFailed(string(source))
		return nil, err
	}

	if err := s.repo.PersistIfCurrent(ctx, snap.Version, next); err != nil {
		s.mu.Unlock()
		s.metrics.MutationFailed(string(source))
		s.logger.Errorw("Failed to persist task mutation", "source", source, "task_id", id, "error", err)
		return nil, err
	}

	changed := next[entities.FindTask(next, id)].Clone()

	var synced bool
	if mode == syncInsert {
		synced = s.repo.InsertRemote(ctx, &changed)
	} else {
		synced = s.repo.UpdateRemote(ctx, &changed)
	}
	s.mu.Unlock()

	s.metrics.MutationSucceeded(string(source))
	s.logger.LogMutation(string(source), id, map[string]interface{}{
		"read_from":     snap.Source.String(),
		"remote_synced": synced,
	})

	s.notify(source, id, before, next, now)
	return &changed, nil
}

// notify publishes the collection topic, then each derived topic whose
// value moved, then the combined widget refresh if anything derived moved.
func (s *TaskService) notify(source events.Source, id int, before stats.Snapshot, tasks []entities.Task, now time.Time) {
	after := stats.Derive(tasks, now)

	events.Publish(s.bus, events.CollectionChanged, events.CollectionEvent{
		Source: source,
		TaskID: id,
		Tasks:  stats.Active(tasks),
	})

	derived := false
	if !reflect.DeepEqual(before.Completion(), after.Completion()) {
		events.Publish(s.bus, events.CompletionStatsChanged, after.Completion())
		derived = true
	}
	if !sameTasks(before.Upcoming, after.Upcoming) {
		events.Publish(s.bus, events.UpcomingChanged, events.TaskListEvent{Source: source, Tasks: after.Upcoming})
		derived = true
	}
	if !sameTasks(before.Recent, after.Recent) {
		events.Publish(s.bus, events.RecentChanged, events.TaskListEvent{Source: source, Tasks: after.Recent})
		derived = true
	}
	if derived {
		events.Publish(s.bus, events.WidgetRefresh, after)
	}
}

func sameTasks(a, b []entities.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func applyPatch(task *entities.Task, req ports.UpdateTaskRequest) {
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.AssignedTo != nil {
		task.AssignedTo = *req.AssignedTo
	}
	if req.DueDate != nil {
		due := *req.DueDate
		task.DueDate = &due
	}
	if req.StartDate != nil {
		start := *req.StartDate
		task.StartDate = &start
	}
	if req.ReminderDate != nil {
		reminder := *req.ReminderDate
		task.ReminderDate = &reminder
	}
	if req.Progress != nil {
		task.SetProgress(*req.Progress)
	}
	if req.EstimatedHours != nil {
		task.EstimatedHours = *req.EstimatedHours
	}
	if req.ActualHours != nil {
		task.ActualHours = *req.ActualHours
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	if req.ClientID != nil {
		task.ClientID = *req.ClientID
	}
}

func matches(t entities.Task, q ports.TaskQuery) bool {
	if q.Status != nil && t.Status != *q.Status {
		return false
	}
	if q.Priority != nil && t.Priority != *q.Priority {
		return false
	}
	if q.AssignedTo != nil && t.AssignedTo != *q.AssignedTo {
		return false
	}
	if q.ClientID != nil && t.ClientID != *q.ClientID {
		return false
	}
	if q.Tag != "" && !t.HasTag(entities.NormalizeTag(q.Tag)) {
		return false
	}
	if q.Category != "" && !strings.EqualFold(t.Category, q.Category) {
		return false
	}
	return true
}

// reaches reports whether target is reachable from start along dependency edges.
func reaches(tasks []entities.Task, start, target int) bool {
	seen := map[int]bool{}
	stack := []int{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if idx := entities.FindTask(tasks, id); idx >= 0 {
			stack = append(stack, tasks[idx].Dependencies...)
		}
	}
	return false
}
