package app

import (
	"context"

	"github.com/hylla/stageboard/internal/domain"
)

// TaskStore is the remote system of record the engine synchronizes with.
type TaskStore interface {
	ListTasks(ctx context.Context, scope string) ([]domain.TaskRecord, error)
	UpdateStatus(ctx context.Context, itemID, status string) error
}
