package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hylla/stageboard/internal/collision"
	"github.com/hylla/stageboard/internal/domain"
)

// LayoutFunc derives hit-test geometry from the current board.
type LayoutFunc func(*domain.Board) collision.Layout

// DefaultGrid is the geometry used when no LayoutFunc is configured.
var DefaultGrid = collision.Grid{
	ColumnWidth:  240,
	ColumnGap:    16,
	HeaderHeight: 40,
	CardHeight:   72,
	CardGap:      8,
}

// EngineConfig holds configuration for one board scope.
type EngineConfig struct {
	Scope            string
	Stages           domain.StageSet
	Store            TaskStore
	Dispatcher       Dispatcher
	Layout           LayoutFunc
	DragThreshold    float64
	StrictInvariants bool
	Logger           Logger
	NewToken         IDGenerator
	Clock            Clock
}

// Engine composes the board, drag controller and synchronizer for one board scope.
// Every method must be called from the event loop that backs the Dispatcher.
type Engine struct {
	scope  string
	stages domain.StageSet
	board  *domain.Board
	layout LayoutFunc
	strict bool
	logger Logger

	drag *DragController
	sync *Synchronizer

	boardListeners  []func(*domain.Board)
	noticeListeners []func(SyncNotice)
}

// NewEngine constructs an engine with an empty board. Call Refresh to load it.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Stages.Len() == 0 {
		return nil, domain.ErrInvalidStageSet
	}
	if cfg.Store == nil {
		return nil, errors.New("engine: task store is required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("engine: dispatcher is required")
	}
	if cfg.Layout == nil {
		cfg.Layout = func(b *domain.Board) collision.Layout { return DefaultGrid.Layout(b) }
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if cfg.NewToken == nil {
		cfg.NewToken = uuid.NewString
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	board, err := domain.NewBoard(cfg.Stages, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: empty board: %w", err)
	}

	e := &Engine{
		scope:  cfg.Scope,
		stages: cfg.Stages,
		board:  board,
		layout: cfg.Layout,
		strict: cfg.StrictInvariants,
		logger: cfg.Logger,
		drag:   NewDragController(cfg.DragThreshold, cfg.NewToken, cfg.Clock),
	}
	e.sync = NewSynchronizer(SyncConfig{
		Scope:      cfg.Scope,
		Stages:     cfg.Stages,
		Store:      cfg.Store,
		Dispatcher: cfg.Dispatcher,
		Logger:     cfg.Logger,
	}, e.replaceBoard, e.emitNotice)
	return e, nil
}

// Scope returns the board scope this engine serves.
func (e *Engine) Scope() string {
	return e.scope
}

// Board returns the live board. Callers must treat it as read-only.
func (e *Engine) Board() *domain.Board {
	return e.board
}

// Layout returns hit-test geometry for the live board.
func (e *Engine) Layout() collision.Layout {
	return e.layout(e.board)
}

func (e *Engine) DragState() DragState {
	return e.drag.State()
}

func (e *Engine) Session() (DragSession, bool) {
	return e.drag.Session()
}

// InFlight returns the number of unconfirmed cross-stage moves.
func (e *Engine) InFlight() int {
	return e.sync.InFlight()
}

// OnBoardChanged registers fn for previews, drops, cancels, resyncs and loads.
func (e *Engine) OnBoardChanged(fn func(*domain.Board)) {
	if fn != nil {
		e.boardListeners = append(e.boardListeners, fn)
	}
}

// OnSyncNotice registers fn for synchronization notices.
func (e *Engine) OnSyncNotice(fn func(SyncNotice)) {
	if fn != nil {
		e.noticeListeners = append(e.noticeListeners, fn)
	}
}

// Refresh requests an authoritative snapshot from the task store.
func (e *Engine) Refresh() {
	e.sync.Resync()
}

// BeginDrag arms a pointer drag on itemID at the pointer origin.
func (e *Engine) BeginDrag(itemID string, origin collision.Point) bool {
	rect, ok := e.Layout().Card(itemID)
	if !ok {
		return false
	}
	if !e.drag.Begin(e.board, itemID, origin, rect) {
		return false
	}
	e.logger.Debug("drag armed", "item", itemID)
	return true
}

// BeginKeyboardDrag picks up itemID for discrete navigation.
func (e *Engine) BeginKeyboardDrag(itemID string) bool {
	if !e.drag.BeginKeyboard(e.board, itemID) {
		return false
	}
	e.logger.Debug("keyboard drag started", "item", itemID)
	return true
}

// UpdateDrag feeds one pointer position and previews the resolved target.
func (e *Engine) UpdateDrag(pointer collision.Point) {
	if !e.drag.Active() {
		return
	}
	if e.drag.Move(e.board, e.Layout(), pointer) {
		e.boardMutated()
	}
}

// StepDrag moves a keyboard drag by one position.
func (e *Engine) StepDrag(dir collision.Direction) {
	if e.drag.Step(e.board, dir) {
		e.boardMutated()
	}
}

// CancelDrag restores the pre-drag board.
func (e *Engine) CancelDrag() DragOutcome {
	out := e.drag.Cancel(e.board)
	if out.Kind == OutcomeCancelled {
		e.logger.Debug("drag cancelled", "item", out.Session.ItemID)
	}
	if out.Changed {
		e.boardMutated()
	}
	return out
}

// EndDrag finishes the gesture and commits cross-stage drops.
func (e *Engine) EndDrag() DragOutcome {
	out := e.drag.End(e.board)
	switch out.Kind {
	case OutcomeCancelled:
		e.logger.Debug("drag released outside a column", "item", out.Session.ItemID)
		if out.Changed {
			e.boardMutated()
		}
	case OutcomeDropped:
		e.logger.Debug("drag dropped", "item", out.Session.ItemID, "stage", out.Session.Target.Stage, "index", out.Session.Target.Index)
		e.boardMutated()
		if out.Transition != nil {
			e.sync.Commit(*out.Transition)
		}
	}
	return out
}

func (e *Engine) replaceBoard(board *domain.Board) {
	if e.drag.Active() {
		session, _ := e.drag.Session()
		e.logger.Info("drag discarded by resync", "item", session.ItemID)
		e.drag.Discard()
	}
	e.board = board
	e.boardMutated()
}

func (e *Engine) boardMutated() {
	if e.strict {
		if err := e.board.CheckInvariant(); err != nil {
			panic(err)
		}
	}
	for _, fn := range e.boardListeners {
		fn(e.board)
	}
}

func (e *Engine) emitNotice(notice SyncNotice) {
	for _, fn := range e.noticeListeners {
		fn(notice)
	}
}
