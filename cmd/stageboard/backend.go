package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hylla/stageboard/internal/adapters/remote/httpclient"
	"github.com/hylla/stageboard/internal/adapters/server/common"
	"github.com/hylla/stageboard/internal/adapters/storage/sqlite"
	"github.com/hylla/stageboard/internal/app"
	"github.com/hylla/stageboard/internal/config"
	"github.com/hylla/stageboard/internal/domain"
)

// boardBackend is the task store every command talks to: the local board service over sqlite
// or the REST client in remote mode.
type boardBackend interface {
	app.TaskStore
	CreateTask(ctx context.Context, scope string, in common.CreateTaskRequest) (domain.TaskRecord, error)
	ListStatusEvents(ctx context.Context, taskID string, limit int) ([]common.StatusEvent, error)
}

var (
	_ boardBackend = (*common.BoardService)(nil)
	_ boardBackend = (*httpclient.Client)(nil)
)

// openBackend builds the configured backend. The returned close func is never nil.
func openBackend(cfg config.Config, stages domain.StageSet, logger app.Logger) (boardBackend, func() error, error) {
	switch cfg.Store.Mode {
	case config.StoreModeRemote:
		timeout, err := cfg.Store.Timeout()
		if err != nil {
			return nil, nil, err
		}
		client, err := httpclient.New(httpclient.Config{BaseURL: cfg.Store.URL, Timeout: timeout})
		if err != nil {
			return nil, nil, fmt.Errorf("configure remote store: %w", err)
		}
		logger.Info("remote task store ready", "url", cfg.Store.URL, "timeout", timeout)
		return client, func() error { return nil }, nil
	default:
		svc, closeRepo, err := openLocalService(cfg, stages, logger)
		if err != nil {
			return nil, nil, err
		}
		return svc, closeRepo, nil
	}
}

// openLocalService opens the sqlite repository and wraps it in the validating board service.
func openLocalService(cfg config.Config, stages domain.StageSet, logger app.Logger) (*common.BoardService, func() error, error) {
	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return nil, nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")
	closeRepo := func() error {
		if err := repo.Close(); err != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", err)
			return err
		}
		return nil
	}
	return common.NewBoardService(repo, stages, nil), closeRepo, nil
}

// historyReader adapts transport status events to the domain shape the TUI renders.
type historyReader struct {
	backend boardBackend
}

func (h historyReader) ListStatusEvents(ctx context.Context, taskID string, limit int) ([]domain.StatusEvent, error) {
	events, err := h.backend.ListStatusEvents(ctx, taskID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StatusEvent, 0, len(events))
	for _, event := range events {
		occurred, err := time.Parse(time.RFC3339, event.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("status event %d: occurred_at %q: %w", event.ID, event.OccurredAt, err)
		}
		out = append(out, domain.StatusEvent{
			ID:         event.ID,
			TaskID:     event.TaskID,
			Operation:  domain.ChangeOperation(event.Operation),
			FromStatus: event.FromStatus,
			ToStatus:   event.ToStatus,
			OccurredAt: occurred,
		})
	}
	return out, nil
}
