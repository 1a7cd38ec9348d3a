package domain

import "time"

// ChangeOperation describes a persisted status-history operation for a task.
type ChangeOperation string

// ChangeOperation values written by the task store.
const (
	ChangeOperationCreate ChangeOperation = "create"
	ChangeOperationMove   ChangeOperation = "move"
)

// StatusEvent represents a single status-history entry for one task.
type StatusEvent struct {
	ID         int64
	TaskID     string
	Operation  ChangeOperation
	FromStatus string
	ToStatus   string
	OccurredAt time.Time
}
