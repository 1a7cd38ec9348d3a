package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/hylla/stageboard/internal/app"
	"github.com/hylla/stageboard/internal/domain"
)

// CardFieldConfig toggles optional card metadata.
type CardFieldConfig struct {
	ShowTags       bool
	ShowPriority   bool
	ShowTargetDate bool
}

// HistoryReader serves the status history shown in the item detail panel.
type HistoryReader interface {
	ListStatusEvents(ctx context.Context, taskID string, limit int) ([]domain.StatusEvent, error)
}

type Option func(*Model)

func DefaultCardFieldConfig() CardFieldConfig {
	return CardFieldConfig{
		ShowTags:       true,
		ShowPriority:   true,
		ShowTargetDate: true,
	}
}

func WithCardFieldConfig(cfg CardFieldConfig) Option {
	return func(m *Model) {
		m.cardFields = cfg
	}
}

// WithGroupBy sets the initial projection. Unknown keys keep the stage view.
func WithGroupBy(raw string) Option {
	return func(m *Model) {
		if key, err := app.ParseGroupKey(raw); err == nil {
			m.groupBy = key
		}
	}
}

func WithDueSoon(window time.Duration) Option {
	return func(m *Model) {
		m.dueSoon = window
	}
}

func WithHistory(history HistoryReader) Option {
	return func(m *Model) {
		m.history = history
	}
}

func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys = newKeyMap(cfg)
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// WithContext bounds every store call issued by the board.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

func defaultClipboard(text string) error {
	return clipboard.WriteAll(text)
}
