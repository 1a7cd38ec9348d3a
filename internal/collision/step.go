package collision

import (
	"slices"

	"github.com/hylla/stageboard/internal/domain"
)

// ColumnSource is the read-only board surface geometry needs. *domain.Board satisfies it.
type ColumnSource interface {
	Stages() []domain.Stage
	Column(domain.StageID) []string
}

// Direction is a discrete navigation step.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
	DirectionLeft
	DirectionRight
)

// Step moves current by one discrete step for keyboard-driven drags.
func Step(src ColumnSource, activeID string, current Target, dir Direction) Target {
	stages := src.Stages()
	pos := slices.IndexFunc(stages, func(s domain.Stage) bool { return s.ID == current.Stage })
	if pos < 0 {
		return current
	}

	next := current
	switch dir {
	case DirectionUp:
		next.Index--
	case DirectionDown:
		next.Index++
	case DirectionLeft:
		if pos > 0 {
			next.Stage = stages[pos-1].ID
		}
	case DirectionRight:
		if pos < len(stages)-1 {
			next.Stage = stages[pos+1].ID
		}
	}
	next.Index = min(max(next.Index, 0), siblingCount(src, next.Stage, activeID))
	return next
}

func siblingCount(src ColumnSource, stage domain.StageID, activeID string) int {
	col := src.Column(stage)
	if slices.Contains(col, activeID) {
		return len(col) - 1
	}
	return len(col)
}
