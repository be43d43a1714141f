package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/taskmaster/tasksync/internal/domain/entities"
	"github.com/taskmaster/tasksync/internal/ports"
)

var errOffline = errors.New("connection refused")

type fakeRemote struct {
	mu       sync.Mutex
	tasks    []entities.Task
	err      error
	inserted []int
	updated  []int
}

func (r *fakeRemote) SelectTasks(_ context.Context, _ ports.TaskFilter) ([]entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return entities.CloneTasks(r.tasks), nil
}

func (r *fakeRemote) InsertTask(_ context.Context, task *entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.inserted = append(r.inserted, task.ID)
	r.tasks = append(r.tasks, task.Clone())
	return nil
}

func (r *fakeRemote) UpdateTask(_ context.Context, id int, task *entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.updated = append(r.updated, id)
	if idx := entities.FindTask(r.tasks, id); idx >= 0 {
		r.tasks[idx] = task.Clone()
	}
	return nil
}

func (r *fakeRemote) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

type fakeCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	getErr   error
	setErr   error
	setDelay time.Duration
	sets     int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte) error {
	if c.setDelay > 0 {
		time.Sleep(c.setDelay)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.sets++
	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *fakeCache) raw(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return string(v), ok
}

type fakeUsers map[int]entities.User

func (f fakeUsers) GetByID(_ context.Context, id int) (*entities.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	return &u, nil
}

type fakeClients map[int]entities.Client

func (f fakeClients) GetByID(_ context.Context, id int) (*entities.Client, error) {
	c, ok := f[id]
	if !ok {
		return nil, entities.ErrClientNotFound
	}
	return &c, nil
}
