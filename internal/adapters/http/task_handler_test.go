package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/tasksync/internal/adapters/cache"
	"github.com/taskmaster/tasksync/internal/application/services"
	"github.com/taskmaster/tasksync/internal/domain/entities"
	"github.com/taskmaster/tasksync/internal/domain/stats"
	"github.com/taskmaster/tasksync/internal/infrastructure/events"
	"github.com/taskmaster/tasksync/internal/infrastructure/logger"
)

type stubNames struct{}

func (stubNames) AssigneeName(_ context.Context, id int) string {
	if id == 3 {
		return "Dana"
	}
	return ""
}

func (stubNames) ClientName(_ context.Context, id int) string {
	if id == 2 {
		return "Acme"
	}
	return ""
}

func newTestAPI(t *testing.T) (*echo.Echo, *services.TaskService, *events.Bus) {
	t.Helper()
	bus := events.New()
	repo := services.NewTaskRepository(cache.NewMemory(), logger.NewNop())
	svc := services.NewTaskService(repo, bus, logger.NewNop())

	e := echo.New()
	e.Validator = NewValidator()
	api := e.Group("/api/v1")
	NewTaskHandler(svc, stubNames{}, logger.NewNop()).Register(api)
	api.GET("/events", NewEventsHandler(bus, svc, logger.NewNop()).Stream)
	return e, svc, bus
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestCreateAndGetTask(t *testing.T) {
	e, _, _ := newTestAPI(t)

	rec := do(t, e, http.MethodPost, "/api/v1/tasks",
		`{"title":"Ship it","priority":"high","assigned_to":3,"client_id":2,"tags":["Release"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[entities.Task](t, rec)
	if created.ID != 1 || created.Status != entities.TaskStatusPending || created.Priority != entities.PriorityHigh {
		t.Errorf("unexpected task %+v", created)
	}

	rec = do(t, e, http.MethodGet, "/api/v1/tasks/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[TaskResponse](t, rec)
	if got.Title != "Ship it" || got.AssigneeName != "Dana" || got.ClientName != "Acme" {
		t.Errorf("unexpected response %+v", got)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	e, _, _ := newTestAPI(t)

	cases := map[string]string{
		"missing title":    `{"description":"x"}`,
		"bad status":       `{"title":"x","status":"archived"}`,
		"negative hours":   `{"title":"x","estimated_hours":-1}`,
		"malformed body":   `{"title":`,
		"empty tag in set": `{"title":"x","tags":[""]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if rec := do(t, e, http.MethodPost, "/api/v1/tasks", body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestErrorMapping(t *testing.T) {
	e, _, _ := newTestAPI(t)
	do(t, e, http.MethodPost, "/api/v1/tasks", `{"title":"one"}`)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown task", http.MethodGet, "/api/v1/tasks/99", "", http.StatusNotFound},
		{"non-numeric id", http.MethodGet, "/api/v1/tasks/abc", "", http.StatusBadRequest},
		{"self dependency", http.MethodPost, "/api/v1/tasks/1/dependencies", `{"dependency_id":1}`, http.StatusBadRequest},
		{"missing dependency", http.MethodPost, "/api/v1/tasks/1/dependencies", `{"dependency_id":5}`, http.StatusNotFound},
		{"unknown comment", http.MethodDelete, "/api/v1/tasks/1/comments/3", "", http.StatusNotFound},
		{"hours without fields", http.MethodPut, "/api/v1/tasks/1/hours", `{}`, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/api/v1/tasks?status=nope", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := do(t, e, tc.method, tc.path, tc.body); rec.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestTaskLifecycleEndpoints(t *testing.T) {
	e, _, _ := newTestAPI(t)
	do(t, e, http.MethodPost, "/api/v1/tasks", `{"title":"one"}`)
	do(t, e, http.MethodPost, "/api/v1/tasks", `{"title":"two"}`)

	rec := do(t, e, http.MethodPatch, "/api/v1/tasks/1", `{"status":"completed"}`)
	if rec.Code != http.StatusOK || decode[entities.Task](t, rec).Status != entities.TaskStatusCompleted {
		t.Fatalf("patch failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodPost, "/api/v1/tasks/1/tags", `{"tag":"done"}`)
	if task := decode[entities.Task](t, rec); !task.HasTag("done") {
		t.Errorf("tag not added: %+v", task)
	}
	rec = do(t, e, http.MethodDelete, "/api/v1/tasks/1/tags/done", "")
	if task := decode[entities.Task](t, rec); task.HasTag("done") {
		t.Errorf("tag not removed: %+v", task)
	}

	rec = do(t, e, http.MethodPost, "/api/v1/tasks/1/dependencies", `{"dependency_id":2}`)
	if task := decode[entities.Task](t, rec); !task.DependsOn(2) {
		t.Errorf("dependency not added: %+v", task)
	}
	rec = do(t, e, http.MethodDelete, "/api/v1/tasks/1/dependencies/2", "")
	if task := decode[entities.Task](t, rec); task.DependsOn(2) {
		t.Errorf("dependency not removed: %+v", task)
	}

	rec = do(t, e, http.MethodPost, "/api/v1/tasks/1/comments", `{"user_id":3,"comment":"looks good"}`)
	if rec.Code != http.StatusCreated || decode[entities.Comment](t, rec).ID != 1 {
		t.Errorf("comment not created: %d %s", rec.Code, rec.Body.String())
	}
	if rec = do(t, e, http.MethodDelete, "/api/v1/tasks/1/comments/1", ""); rec.Code != http.StatusOK {
		t.Errorf("comment not removed: %d", rec.Code)
	}

	rec = do(t, e, http.MethodPut, "/api/v1/tasks/2/progress", `{"progress":250}`)
	if task := decode[entities.Task](t, rec); task.Progress != 100 {
		t.Errorf("progress not clamped: %d", task.Progress)
	}
	rec = do(t, e, http.MethodPut, "/api/v1/tasks/2/hours", `{"estimated_hours":4,"actual_hours":1.5}`)
	if task := decode[entities.Task](t, rec); task.EstimatedHours != 4 || task.ActualHours != 1.5 {
		t.Errorf("hours not set: %+v", task)
	}

	rec = do(t, e, http.MethodGet, "/api/v1/stats", "")
	snap := decode[stats.Snapshot](t, rec)
	if snap.Total != 2 || snap.CompletionRate != 50 {
		t.Errorf("unexpected stats %+v", snap)
	}

	do(t, e, http.MethodDelete, "/api/v1/tasks/1", "")
	list := decode[ListResponse[entities.Task]](t, do(t, e, http.MethodGet, "/api/v1/tasks", ""))
	if list.Total != 1 || list.Data[0].ID != 2 {
		t.Errorf("deleted task still listed: %+v", list)
	}
	deleted := decode[ListResponse[entities.Task]](t, do(t, e, http.MethodGet, "/api/v1/tasks/deleted", ""))
	if deleted.Total != 1 || deleted.Data[0].ID != 1 {
		t.Errorf("deleted list wrong: %+v", deleted)
	}

	if rec = do(t, e, http.MethodPost, "/api/v1/tasks/1/restore", ""); rec.Code != http.StatusOK {
		t.Fatalf("restore failed: %d", rec.Code)
	}
	list = decode[ListResponse[entities.Task]](t, do(t, e, http.MethodGet, "/api/v1/tasks", ""))
	if list.Total != 2 {
		t.Errorf("restored task not listed: %+v", list)
	}
}

func TestListTasksFilters(t *testing.T) {
	e, _, _ := newTestAPI(t)
	do(t, e, http.MethodPost, "/api/v1/tasks", `{"title":"a","assigned_to":3,"tags":["x"]}`)
	do(t, e, http.MethodPost, "/api/v1/tasks", `{"title":"b","status":"on-hold"}`)

	list := decode[ListResponse[entities.Task]](t, do(t, e, http.MethodGet, "/api/v1/tasks?assigned_to=3", ""))
	if list.Total != 1 || list.Data[0].Title != "a" {
		t.Errorf("assignee filter: %+v", list)
	}
	list = decode[ListResponse[entities.Task]](t, do(t, e, http.MethodGet, "/api/v1/tasks?status=on-hold", ""))
	if list.Total != 1 || list.Data[0].Title != "b" {
		t.Errorf("status filter: %+v", list)
	}
	list = decode[ListResponse[entities.Task]](t, do(t, e, http.MethodGet, "/api/v1/tasks?tag=x", ""))
	if list.Total != 1 {
		t.Errorf("tag filter: %+v", list)
	}
}

func TestSetHoursIsOneMutation(t *testing.T) {
	e, _, bus := newTestAPI(t)
	do(t, e, http.MethodPost, "/api/v1/tasks", `{"title":"timed"}`)

	changes := 0
	events.Subscribe(bus, events.CollectionChanged, func(events.CollectionEvent) { changes++ })

	rec := do(t, e, http.MethodPut, "/api/v1/tasks/1/hours", `{"estimated_hours":4,"actual_hours":1.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if changes != 1 {
		t.Errorf("expected one collection change, got %d", changes)
	}

	rec = do(t, e, http.MethodPut, "/api/v1/tasks/1/hours", `{"actual_hours":2}`)
	task := decode[entities.Task](t, rec)
	if task.EstimatedHours != 4 || task.ActualHours != 2 {
		t.Errorf("partial patch changed the other field: %+v", task)
	}

	rec = do(t, e, http.MethodPut, "/api/v1/tasks/1/hours", `{"estimated_hours":3,"actual_hours":-1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	task = decode[entities.Task](t, do(t, e, http.MethodGet, "/api/v1/tasks/1", ""))
	if task.EstimatedHours != 4 {
		t.Errorf("rejected request persisted estimated hours: %v", task.EstimatedHours)
	}
}
