package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/tasksync/internal/domain/entities"
	"github.com/taskmaster/tasksync/internal/infrastructure/logger"
	"github.com/taskmaster/tasksync/internal/ports"
)

// NameResolver resolves display names; an unknown id resolves to "".
type NameResolver interface {
	AssigneeName(ctx context.Context, userID int) string
	ClientName(ctx context.Context, clientID int) string
}

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService ports.TaskService
	names       NameResolver
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler. names may be nil.
func NewTaskHandler(taskService ports.TaskService, names NameResolver, appLogger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		names:       names,
		logger:      appLogger.WithComponent("task-handler"),
	}
}

// Register mounts the task routes on g
func (h *TaskHandler) Register(g *echo.Group) {
	tasks := g.Group("/tasks")
	tasks.GET("", h.ListTasks)
	tasks.POST("", h.CreateTask)
	tasks.GET("/deleted", h.ListDeletedTasks)
	tasks.GET("/:id", h.GetTask)
	tasks.PATCH("/:id", h.UpdateTask)
	tasks.DELETE("/:id", h.DeleteTask)
	tasks.POST("/:id/restore", h.RestoreTask)
	tasks.POST("/:id/tags", h.AddTag)
	tasks.DELETE("/:id/tags/:tag", h.RemoveTag)
	tasks.POST("/:id/dependencies", h.AddDependency)
	tasks.DELETE("/:id/dependencies/:dependencyId", h.RemoveDependency)
	tasks.POST("/:id/comments", h.AddComment)
	tasks.DELETE("/:id/comments/:commentId", h.RemoveComment)
	tasks.PUT("/:id/progress", h.SetProgress)
	tasks.PUT("/:id/hours", h.SetHours)

	g.GET("/stats", h.GetStats)
}

// CreateTask handles task creation
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), req)
	if err != nil {
		return h.fail("Create task failed", err)
	}
	return c.JSON(http.StatusCreated, task)
}

// GetTask returns one task, soft-deleted or not, with display names
func (h *TaskHandler) GetTask(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	task, err := h.taskService.GetTask(ctx, id)
	if err != nil {
		return h.fail("Get task failed", err)
	}

	resp := TaskResponse{Task: *task}
	if h.names != nil {
		resp.AssigneeName = h.names.AssigneeName(ctx, task.AssignedTo)
		resp.ClientName = h.names.ClientName(ctx, task.ClientID)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TaskHandler) ListTasks(c echo.Context) error {
	query, err := parseQuery(c)
	if err != nil {
		return err
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context(), query)
	if err != nil {
		return h.fail("List tasks failed", err)
	}
	return c.JSON(http.StatusOK, ListResponse[entities.Task]{Data: tasks, Total: len(tasks)})
}

func (h *TaskHandler) ListDeletedTasks(c echo.Context) error {
	tasks, err := h.taskService.ListDeletedTasks(c.Request().Context())
	if err != nil {
		return h.fail("List deleted tasks failed", err)
	}
	return c.JSON(http.StatusOK, ListResponse[entities.Task]{Data: tasks, Total: len(tasks)})
}

func (h *TaskHandler) UpdateTask(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return h.respond(c, "Update task failed", func(ctx context.Context) (*entities.Task, error) {
		return h.taskService.UpdateTask(ctx, id, req)
	})
}

func (h *TaskHandler) DeleteTask(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	return h.respond(c, "Delete task failed", func(ctx context.Context) (*entities.Task, error) {
		return h.taskService.DeleteTask(ctx, id)
	})
}

func (h *TaskHandler) RestoreTask(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	return h.respond(c, "Restore task failed", func(ctx context.Context) (*entities.Task, error) {
		return h.taskService.RestoreTask(ctx, id)
	})
}

func (h *TaskHandler) AddTag(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req TagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return h.respond(c, "Add tag failed", func(ctx context.Context) (*entities.Task, error) {
		return h.taskService.AddTag(ctx, id, req.Tag)
	})
}

func (h *TaskHandler) RemoveTag(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	tag := c.Param("tag")
	return h.respond(c, "Remove tag failed", func(ctx context.Context) (*entities.Task, error) {
		return h.taskService.RemoveTag(ctx, id, tag)
	})
}

func (h *TaskHandler) AddDependency(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req DependencyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return h.respond(c, "Add dependency failed", func(ctx context.Context) (*entities.Task, error) {
		return h.taskService.AddDependency(ctx, id, req.DependencyID)
	})
}

func (h *TaskHandler) RemoveDependency(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	depID, err := pathID(c, "dependencyId")
	if err != nil {
		return err
	}
	return h.respond(c, "Remove dependency failed", func(ctx context.Context) (*entities.Task, error) {
		return h.taskService.RemoveDependency(ctx, id, depID)
	})
}

func (h *TaskHandler) AddComment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req ports.AddCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	comment, err := h.taskService.AddComment(c.Request().Context(), id, req)
	if err != nil {
		return h.fail("Add comment failed", err)
	}
	return c.JSON(http.StatusCreated, comment)
}

func (h *TaskHandler) RemoveComment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	commentID, err := pathID(c, "commentId")
	if err != nil {
		return err
	}
	return h.respond(c, "Remove comment failed", func(ctx context.Context) (*entities.Task, error) {
		return h.taskService.RemoveComment(ctx, id, commentID)
	})
}

func (h *TaskHandler) SetProgress(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req ProgressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	return h.respond(c, "Set progress failed", func(ctx context.Context) (*entities.Task, error) {
		return h.taskService.SetProgress(ctx, id, req.Progress)
	})
}

// SetHours updates estimated and/or actual hours
func (h *TaskHandler) SetHours(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req HoursRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.EstimatedHours == nil && req.ActualHours == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "estimated_hours or actual_hours is required")
	}

	// both fields land in one mutation
	patch := ports.UpdateTaskRequest{EstimatedHours: req.EstimatedHours, ActualHours: req.ActualHours}
	return h.respond(c, "Set hours failed", func(ctx context.Context) (*entities.Task, error) {
		return h.taskService.UpdateTask(ctx, id, patch)
	})
}

func (h *TaskHandler) GetStats(c echo.Context) error {
	snapshot, err := h.taskService.Stats(c.Request().Context())
	if err != nil {
		return h.fail("Get stats failed", err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

func (h *TaskHandler) respond(c echo.Context, msg string, op func(ctx context.Context) (*entities.Task, error)) error {
	task, err := op(c.Request().Context())
	if err != nil {
		return h.fail(msg, err)
	}
	return c.JSON(http.StatusOK, task)
}

// fail maps domain errors onto HTTP status codes
func (h *TaskHandler) fail(msg string, err error) error {
	switch {
	case errors.Is(err, entities.ErrTaskNotFound), errors.Is(err, entities.ErrCommentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrInvalidOperation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, entities.ErrCacheWrite):
		h.logger.Errorw(msg, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Task storage unavailable")
	default:
		h.logger.Errorw(msg, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, msg)
	}
}

func pathID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

func parseQuery(c echo.Context) (ports.TaskQuery, error) {
	q := ports.TaskQuery{
		Tag:      c.QueryParam("tag"),
		Category: c.QueryParam("category"),
	}

	if v := c.QueryParam("status"); v != "" {
		status := entities.TaskStatus(v)
		if !status.IsValid() {
			return q, echo.NewHTTPError(http.StatusBadRequest, "Invalid status")
		}
		q.Status = &status
	}
	if v := c.QueryParam("priority"); v != "" {
		priority := entities.Priority(v)
		if !priority.IsValid() {
			return q, echo.NewHTTPError(http.StatusBadRequest, "Invalid priority")
		}
		q.Priority = &priority
	}
	for name, dst := range map[string]**int{"assigned_to": &q.AssignedTo, "client_id": &q.ClientID} {
		v := c.QueryParam(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
		}
		*dst = &n
	}
	return q, nil
}
