package domain

import "errors"

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrInvalidTitle       = errors.New("invalid title")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidStageSet    = errors.New("invalid stage set")
	ErrUnknownStage       = errors.New("unknown stage")
	ErrDuplicateItem      = errors.New("duplicate item")
	ErrInvariantViolation = errors.New("board invariant violation")
)
