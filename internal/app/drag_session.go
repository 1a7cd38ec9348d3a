package app

import (
	"time"

	"github.com/hylla/stageboard/internal/collision"
	"github.com/hylla/stageboard/internal/domain"
)

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// DragState is the controller's position in the drag lifecycle.
type DragState int

// DragIdle and related constants enumerate drag states.
const (
	DragIdle DragState = iota
	DragArmed
	DragDragging
	DragDropped
	DragCancelled
)

func (s DragState) String() string {
	switch s {
	case DragIdle:
		return "idle"
	case DragArmed:
		return "armed"
	case DragDragging:
		return "dragging"
	case DragDropped:
		return "dropped"
	case DragCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// DragSession is the transient state of one gesture.
type DragSession struct {
	ItemID        string
	Source        domain.StageID
	OriginalIndex int
	Target        collision.Target
	OverTarget    bool
	Origin        collision.Point
	Last          collision.Point
	StartRect     collision.Rect
	Direction     float64
	Keyboard      bool
	Committed     bool
}

func (s DragSession) previewed() bool {
	return s.Target.Stage != s.Source || s.Target.Index != s.OriginalIndex
}

// PendingTransition is a cross-stage move awaiting remote confirmation.
type PendingTransition struct {
	Token    string
	ItemID   string
	From     domain.StageID
	To       domain.StageID
	IssuedAt time.Time
}

// OutcomeKind reports how a gesture finished.
type OutcomeKind int

// OutcomeNone and related constants enumerate gesture outcomes.
const (
	OutcomeNone OutcomeKind = iota
	OutcomeClick
	OutcomeDropped
	OutcomeCancelled
)

// DragOutcome is the result of End or Cancel.
type DragOutcome struct {
	Kind       OutcomeKind
	Session    DragSession
	Transition *PendingTransition
	// Changed reports that the board was mutated by finishing the gesture.
	Changed bool
}

// State maps an outcome back onto the drag state it ended in.
func (o DragOutcome) State() DragState {
	switch o.Kind {
	case OutcomeDropped:
		return DragDropped
	case OutcomeCancelled:
		return DragCancelled
	default:
		return DragIdle
	}
}

// DragController owns the drag state machine and applies preview moves to a board.
type DragController struct {
	state     DragState
	session   DragSession
	threshold float64
	newToken  IDGenerator
	clock     Clock
}

// NewDragController constructs a controller in the idle state.
func NewDragController(threshold float64, newToken IDGenerator, clock Clock) *DragController {
	if threshold < 0 {
		threshold = 0
	}
	if newToken == nil {
		newToken = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	return &DragController{
		threshold: threshold,
		newToken:  newToken,
		clock:     clock,
	}
}

func (c *DragController) State() DragState {
	return c.state
}

// Session returns the active session, if any.
func (c *DragController) Session() (DragSession, bool) {
	if c.state == DragIdle {
		return DragSession{}, false
	}
	return c.session, true
}

// Active reports whether a gesture is in progress.
func (c *DragController) Active() bool {
	return c.state == DragArmed || c.state == DragDragging
}

// Begin arms a pointer drag on itemID.
func (c *DragController) Begin(board *domain.Board, itemID string, origin collision.Point, startRect collision.Rect) bool {
	if c.state != DragIdle {
		return false
	}
	stage, idx, ok := board.Locate(itemID)
	if !ok {
		return false
	}
	c.session = DragSession{
		ItemID:        itemID,
		Source:        stage,
		OriginalIndex: idx,
		Target:        collision.Target{Stage: stage, Index: idx},
		OverTarget:    true,
		Origin:        origin,
		Last:          origin,
		StartRect:     startRect,
	}
	c.state = DragArmed
	return true
}

// BeginKeyboard starts a drag on itemID with no movement threshold.
func (c *DragController) BeginKeyboard(board *domain.Board, itemID string) bool {
	if c.state != DragIdle {
		return false
	}
	stage, idx, ok := board.Locate(itemID)
	if !ok {
		return false
	}
	c.session = DragSession{
		ItemID:        itemID,
		Source:        stage,
		OriginalIndex: idx,
		Target:        collision.Target{Stage: stage, Index: idx},
		OverTarget:    true,
		Keyboard:      true,
	}
	c.state = DragDragging
	return true
}

// Move feeds one pointer position. It reports whether a preview move was applied.
func (c *DragController) Move(board *domain.Board, layout collision.Layout, pointer collision.Point) bool {
	switch c.state {
	case DragArmed:
		if pointer.Distance(c.session.Origin) < c.threshold {
			return false
		}
		c.state = DragDragging
	case DragDragging:
	default:
		return false
	}

	if dy := pointer.Y - c.session.Last.Y; dy > 0 {
		c.session.Direction = 1
	} else if dy < 0 {
		c.session.Direction = -1
	}
	c.session.Last = pointer

	dragged := c.session.StartRect.Translate(pointer.Sub(c.session.Origin))
	target, ok := collision.Resolve(layout, collision.Query{
		ActiveID:  c.session.ItemID,
		Dragged:   dragged,
		Pointer:   pointer,
		Direction: c.session.Direction,
	})
	if !ok {
		c.session.OverTarget = false
		return false
	}
	c.session.OverTarget = true
	return c.preview(board, target)
}

// Step moves a drag by one discrete position.
func (c *DragController) Step(board *domain.Board, dir collision.Direction) bool {
	if c.state != DragDragging {
		return false
	}
	target := collision.Step(board, c.session.ItemID, c.session.Target, dir)
	c.session.OverTarget = true
	return c.preview(board, target)
}

func (c *DragController) preview(board *domain.Board, target collision.Target) bool {
	if target == c.session.Target {
		return false
	}
	board.MoveItem(c.session.ItemID, target.Stage, target.Index)
	c.session.Target = target
	return true
}

// Cancel restores the dragged item to where the gesture started.
func (c *DragController) Cancel(board *domain.Board) DragOutcome {
	if !c.Active() {
		return DragOutcome{}
	}
	session := c.session
	changed := false
	if c.state == DragDragging && session.previewed() {
		board.MoveItem(session.ItemID, session.Source, session.OriginalIndex)
		changed = true
	}
	c.reset()
	return DragOutcome{Kind: OutcomeCancelled, Session: session, Changed: changed}
}

// End finishes the gesture at the last resolved target.
func (c *DragController) End(board *domain.Board) DragOutcome {
	switch c.state {
	case DragArmed:
		session := c.session
		c.reset()
		return DragOutcome{Kind: OutcomeClick, Session: session}
	case DragDragging:
	default:
		return DragOutcome{}
	}
	if !c.session.OverTarget {
		return c.Cancel(board)
	}

	session := c.session
	session.Committed = true
	out := DragOutcome{Kind: OutcomeDropped, Session: session, Changed: session.previewed()}
	if session.Target.Stage != session.Source {
		out.Transition = &PendingTransition{
			Token:    c.newToken(),
			ItemID:   session.ItemID,
			From:     session.Source,
			To:       session.Target.Stage,
			IssuedAt: c.clock(),
		}
	}
	c.reset()
	return out
}

// Discard drops the session without touching the board.
func (c *DragController) Discard() {
	c.reset()
}

func (c *DragController) reset() {
	c.state = DragIdle
	c.session = DragSession{}
}
