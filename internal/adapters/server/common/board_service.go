package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hylla/stageboard/internal/app"
	"github.com/hylla/stageboard/internal/domain"
)

// BoardService validates transport requests against the stage set before they reach storage.
type BoardService struct {
	repo   TaskRepository
	stages domain.StageSet
	idGen  app.IDGenerator
}

// NewBoardService constructs a service over repo. A nil idGen uses random uuids.
func NewBoardService(repo TaskRepository, stages domain.StageSet, idGen app.IDGenerator) *BoardService {
	if idGen == nil {
		idGen = uuid.NewString
	}
	return &BoardService{repo: repo, stages: stages, idGen: idGen}
}

// ListStages returns the configured stages in board order.
func (s *BoardService) ListStages() []StageInfo {
	stages := s.stages.Stages()
	out := make([]StageInfo, 0, len(stages))
	for _, stage := range stages {
		out = append(out, StageInfo{
			ID:       string(stage.ID),
			Name:     stage.Name,
			Status:   stage.Status,
			WIPLimit: stage.WIPLimit,
		})
	}
	return out
}

// ListTasks returns every task on the board scope.
func (s *BoardService) ListTasks(ctx context.Context, scope string) ([]domain.TaskRecord, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, fmt.Errorf("list tasks: scope is required: %w", ErrInvalidRequest)
	}
	tasks, err := s.repo.ListTasks(ctx, scope)
	if err != nil {
		return nil, mapStoreError("list tasks", err)
	}
	return tasks, nil
}

// CreateTask validates and stores a new task. A blank status selects the first stage.
func (s *BoardService) CreateTask(ctx context.Context, scope string, in CreateTaskRequest) (domain.TaskRecord, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return domain.TaskRecord{}, fmt.Errorf("create task: scope is required: %w", ErrInvalidRequest)
	}
	stage := s.stages.First().ID
	if strings.TrimSpace(in.Status) != "" {
		id, ok := s.stages.StageForStatus(in.Status)
		if !ok {
			return domain.TaskRecord{}, fmt.Errorf("create task: status %q: %w", in.Status, ErrUnknownStatus)
		}
		stage = id
	}
	targetDate, err := parseTargetDate(in.TargetDate)
	if err != nil {
		return domain.TaskRecord{}, fmt.Errorf("create task: %w", errors.Join(ErrInvalidRequest, err))
	}
	item, err := domain.NewItem(domain.ItemInput{
		ID:          s.idGen(),
		Title:       in.Title,
		Description: in.Description,
		Tags:        in.Tags,
		Priority:    domain.Priority(strings.ToLower(strings.TrimSpace(in.Priority))),
		TargetDate:  targetDate,
		Category:    in.Category,
		Area:        in.Area,
		Stage:       stage,
	})
	if err != nil {
		return domain.TaskRecord{}, mapStoreError("create task", err)
	}
	rec, err := domain.RecordFromItem(s.stages, item)
	if err != nil {
		return domain.TaskRecord{}, mapStoreError("create task", err)
	}
	if err := s.repo.CreateTask(ctx, scope, rec); err != nil {
		return domain.TaskRecord{}, mapStoreError("create task", err)
	}
	return rec, nil
}

// UpdateStatus moves one task, rejecting statuses the board does not define.
func (s *BoardService) UpdateStatus(ctx context.Context, taskID, status string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return fmt.Errorf("update status: task id is required: %w", ErrInvalidRequest)
	}
	stage, ok := s.stages.StageForStatus(status)
	if !ok {
		return fmt.Errorf("update status: status %q: %w", strings.TrimSpace(status), ErrUnknownStatus)
	}
	canonical, _ := s.stages.Status(stage)
	if err := s.repo.UpdateStatus(ctx, taskID, canonical); err != nil {
		return mapStoreError("update status", err)
	}
	return nil
}

// ListStatusEvents returns the newest status events for one task.
func (s *BoardService) ListStatusEvents(ctx context.Context, taskID string, limit int) ([]StatusEvent, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, fmt.Errorf("list status events: task id is required: %w", ErrInvalidRequest)
	}
	if _, err := s.repo.GetTask(ctx, taskID); err != nil {
		return nil, mapStoreError("list status events", err)
	}
	events, err := s.repo.ListStatusEvents(ctx, taskID, limit)
	if err != nil {
		return nil, mapStoreError("list status events", err)
	}
	out := make([]StatusEvent, 0, len(events))
	for _, event := range events {
		out = append(out, StatusEvent{
			ID:         event.ID,
			TaskID:     event.TaskID,
			Operation:  string(event.Operation),
			FromStatus: event.FromStatus,
			ToStatus:   event.ToStatus,
			OccurredAt: event.OccurredAt.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

// parseTargetDate accepts YYYY-MM-DD or RFC3339; blank means no date.
func parseTargetDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("target_date %q must be YYYY-MM-DD or RFC3339", raw)
}

// mapStoreError maps app and domain failures into transport-facing sentinels.
func mapStoreError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrUnknownStage):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrUnknownStatus, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidPriority):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
