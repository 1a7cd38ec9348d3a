package app

import (
	"io"

	charmLog "github.com/charmbracelet/log"
)

// Logger is the structured logging surface used by the engine and synchronizer.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// charmLogger adapts a charmbracelet logger to Logger.
type charmLogger struct {
	logger *charmLog.Logger
}

// NewCharmLogger wraps logger; a nil logger discards everything.
func NewCharmLogger(logger *charmLog.Logger) Logger {
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	return charmLogger{logger: logger}
}

func (l charmLogger) Debug(msg string, keyvals ...any) { l.logger.Debug(msg, keyvals...) }
func (l charmLogger) Info(msg string, keyvals ...any)  { l.logger.Info(msg, keyvals...) }
func (l charmLogger) Warn(msg string, keyvals ...any)  { l.logger.Warn(msg, keyvals...) }
func (l charmLogger) Error(msg string, keyvals ...any) { l.logger.Error(msg, keyvals...) }

func discardLogger() Logger {
	return NewCharmLogger(nil)
}
