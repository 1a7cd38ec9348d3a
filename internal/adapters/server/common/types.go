// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"

	"github.com/hylla/stageboard/internal/domain"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrUnknownStatus reports a status label outside the configured stage set.
var ErrUnknownStatus = errors.New("unknown status")

// CreateTaskRequest captures input for one new task.
type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	TargetDate  string   `json:"target_date,omitempty"`
	Status      string   `json:"status,omitempty"`
	Category    string   `json:"category,omitempty"`
	Area        string   `json:"area,omitempty"`
}

// UpdateStatusRequest captures one status transition.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// StageInfo describes one configured stage to remote callers.
type StageInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	WIPLimit int    `json:"wip_limit,omitempty"`
}

// StatusEvent is the transport shape of one status-history entry.
type StatusEvent struct {
	ID         int64  `json:"id"`
	TaskID     string `json:"task_id"`
	Operation  string `json:"operation"`
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status"`
	OccurredAt string `json:"occurred_at"`
}

// TaskRepository is the persistence contract BoardService writes through.
type TaskRepository interface {
	EnsureBoard(ctx context.Context, scope, name string) error
	CreateTask(ctx context.Context, scope string, rec domain.TaskRecord) error
	GetTask(ctx context.Context, id string) (domain.TaskRecord, error)
	ListTasks(ctx context.Context, scope string) ([]domain.TaskRecord, error)
	UpdateStatus(ctx context.Context, id, status string) error
	ListStatusEvents(ctx context.Context, taskID string, limit int) ([]domain.StatusEvent, error)
}

// BoardReader serves read-only board queries.
type BoardReader interface {
	ListStages() []StageInfo
	ListTasks(ctx context.Context, scope string) ([]domain.TaskRecord, error)
	ListStatusEvents(ctx context.Context, taskID string, limit int) ([]StatusEvent, error)
}

// BoardWriter serves board mutations.
type BoardWriter interface {
	CreateTask(ctx context.Context, scope string, in CreateTaskRequest) (domain.TaskRecord, error)
	UpdateStatus(ctx context.Context, taskID, status string) error
}

// BoardAPI is the full surface shared by the HTTP and MCP adapters.
type BoardAPI interface {
	BoardReader
	BoardWriter
}
