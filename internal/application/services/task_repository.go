package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/taskmaster/tasksync/internal/domain/entities"
	"github.com/taskmaster/tasksync/internal/infrastructure/logger"
	"github.com/taskmaster/tasksync/internal/infrastructure/metrics"
	"github.com/taskmaster/tasksync/internal/ports"
)

// DefaultCacheKey is the versioned key the whole collection is stored under.
const DefaultCacheKey = "tasks:v1"

// Source tells which tier served a read.
type Source int

const (
	SourceRemote Source = iota
	SourceCachedFallback
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceCachedFallback:
		return "cache"
	default:
		return "unknown"
	}
}

// MarshalText lets Source render as "remote"/"cache" in JSON
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is one read of the full collection, soft-deleted tasks included.
type Snapshot struct {
	Tasks   []entities.Task
	Source  Source
	Version uint64
}

// TaskRepository reads and writes the task collection across the remote
// store and the local cache. Remote failures never reach the caller.
type TaskRepository struct {
	remote  ports.RemoteStore
	cache   ports.LocalCache
	key     string
	logger  *logger.Logger
	metrics *metrics.Metrics

	detectConflicts bool

	// mu orders cache reads and writes with the version counter
	mu      sync.Mutex
	version uint64
}

// RepositoryOption configures a TaskRepository
type RepositoryOption func(*TaskRepository)

// WithRemote attaches the authoritative store. Without one every read is a cache read.
func WithRemote(remote ports.RemoteStore) RepositoryOption {
	return func(r *TaskRepository) { r.remote = remote }
}

func WithCacheKey(key string) RepositoryOption {
	return func(r *TaskRepository) { r.key = key }
}

func WithRepositoryMetrics(m *metrics.Metrics) RepositoryOption {
	return func(r *TaskRepository) { r.metrics = m }
}

// WithConflictDetection makes PersistIfCurrent reject writes based on a stale snapshot.
func WithConflictDetection() RepositoryOption {
	return func(r *TaskRepository) { r.detectConflicts = true }
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(cache ports.LocalCache, appLogger *logger.Logger, opts ...RepositoryOption) *TaskRepository {
	r := &TaskRepository{
		cache:  cache,
		key:    DefaultCacheKey,
		logger: appLogger.WithComponent("task-repository"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchAll prefers the remote store and mirrors a successful read into the
// cache. On remote failure it serves the last cached collection, or an
// empty one if the cache was never populated. The returned version is the
// one the cache held when the tasks were taken from it.
func (r *TaskRepository) FetchAll(ctx context.Context) Snapshot {
	if r.remote != nil {
		start := time.Now()
		tasks, err := r.remote.SelectTasks(ctx, ports.TaskFilter{})
		r.logger.LogStoreQuery("select", float64(time.Since(start).Microseconds())/1000, err)

		if err == nil {
			tasks = normalize(tasks)

			r.mu.Lock()
			defer r.mu.Unlock()
			if err := r.writeCache(ctx, tasks); err != nil {
				// the remote data is still good; the mirror is best effort
				r.logger.Errorw("Failed to mirror remote tasks into cache", "error", err, "count", len(tasks))
			}
			return Snapshot{Tasks: tasks, Source: SourceRemote, Version: r.version}
		}

		r.metrics.RemoteFailure("select")
		r.logger.Warnw("Serving tasks from local cache",
			"error", fmt.Errorf("%w: %w", entities.ErrRemoteUnavailable, err).Error())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	tasks := r.readCache(ctx)
	return Snapshot{Tasks: tasks, Source: SourceCachedFallback, Version: r.version}
}

// Persist overwrites the cached collection. The error wraps ErrCacheWrite.
func (r *TaskRepository) Persist(ctx context.Context, tasks []entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeCache(ctx, tasks)
}

// PersistIfCurrent persists only if no other write landed since the
// snapshot with the given version was read. The check and the write are
// one step. Without conflict detection it behaves like Persist (last
// writer wins).
func (r *TaskRepository) PersistIfCurrent(ctx context.Context, version uint64, tasks []entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detectConflicts && r.version != version {
		return entities.ErrConflict
	}
	return r.writeCache(ctx, tasks)
}

// InsertRemote pushes a new task to the remote store. Failure is logged and
// reported as false; the cache already holds the task.
func (r *TaskRepository) InsertRemote(ctx context.Context, task *entities.Task) bool {
	if r.remote == nil {
		return false
	}
	start := time.Now()
	err := r.remote.InsertTask(ctx, task)
	r.logger.LogStoreQuery("insert", float64(time.Since(start).Microseconds())/1000, err)
	if err != nil {
		r.metrics.RemoteFailure("insert")
		return false
	}
	return true
}

// UpdateRemote pushes a changed task to the remote store, same policy as InsertRemote.
func (r *TaskRepository) UpdateRemote(ctx context.Context, task *entities.Task) bool {
	if r.remote == nil {
		return false
	}
	start := time.Now()
	err := r.remote.UpdateTask(ctx, task.ID, task)
	r.logger.LogStoreQuery("update", float64(time.Since(start).Microseconds())/1000, err)
	if err != nil {
		r.metrics.RemoteFailure("update")
		return false
	}
	return true
}

// Version returns the number of successful cache writes so far.
func (r *TaskRepository) Version() uint64 {
	return r.currentVersion()
}

// readCache, initEmpty and writeCache expect r.mu to be held.
func (r *TaskRepository) readCache(ctx context.Context) []entities.Task {
	data, ok, err := r.cache.Get(ctx, r.key)
	if err != nil {
		// unreadable is not the same as empty; leave the stored bytes alone
		r.logger.Errorw("Failed to read local cache", "error", err, "key", r.key)
		return []entities.Task{}
	}

	if !ok {
		r.initEmpty(ctx)
		return []entities.Task{}
	}

	var tasks []entities.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		r.metrics.MalformedCache()
		r.logger.Warnw("Resetting local cache",
			"error", fmt.Errorf("%w: %w", entities.ErrMalformedCacheData, err).Error(), "key", r.key)
		r.initEmpty(ctx)
		return []entities.Task{}
	}

	return normalize(tasks)
}

func (r *TaskRepository) initEmpty(ctx context.Context) {
	if err := r.writeCache(ctx, []entities.Task{}); err != nil {
		r.logger.Errorw("Failed to initialize local cache", "error", err, "key", r.key)
	}
}

func (r *TaskRepository) writeCache(ctx context.Context, tasks []entities.Task) error {
	if tasks == nil {
		tasks = []entities.Task{}
	}

	data, err := json.Marshal(tasks)
	if err != nil {
		r.metrics.CacheWriteFailure()
		return fmt.Errorf("%w: encode tasks: %w", entities.ErrCacheWrite, err)
	}

	if err := r.cache.Set(ctx, r.key, data); err != nil {
		r.metrics.CacheWriteFailure()
		r.logger.Errorw("Local cache write failed", "error", err, "key", r.key, "count", len(tasks))
		return fmt.Errorf("%w: %w", entities.ErrCacheWrite, err)
	}

	r.version++
	return nil
}

func (r *TaskRepository) currentVersion() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

func normalize(tasks []entities.Task) []entities.Task {
	if tasks == nil {
		return []entities.Task{}
	}
	for i := range tasks {
		tasks[i].Normalize()
	}
	return tasks
}
