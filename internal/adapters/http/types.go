package http

import (
	"github.com/go-playground/validator/v10"

	"github.com/taskmaster/tasksync/internal/domain/entities"
)

// Validator adapts go-playground/validator to echo.Validator
type Validator struct {
	validator *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validator: validator.New()}
}

// Validate validates structs
func (v *Validator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

// Request/Response types
type TagRequest struct {
	Tag string `json:"tag" validate:"required,max=64"`
}

type DependencyRequest struct {
	DependencyID int `json:"dependency_id" validate:"required,min=1"`
}

type ProgressRequest struct {
	Progress int `json:"progress"`
}

type HoursRequest struct {
	EstimatedHours *float64 `json:"estimated_hours" validate:"omitempty,min=0"`
	ActualHours    *float64 `json:"actual_hours" validate:"omitempty,min=0"`
}

// TaskResponse is a task with its display names resolved
type TaskResponse struct {
	entities.Task
	AssigneeName string `json:"assignee_name,omitempty"`
	ClientName   string `json:"client_name,omitempty"`
}

type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
