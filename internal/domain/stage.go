package domain

import (
	"fmt"
	"slices"
	"strings"
)

// StageID identifies one workflow column.
type StageID string

// Stage describes one column of the workflow and the status label the task store uses for it.
type Stage struct {
	ID       StageID
	Name     string
	Status   string
	WIPLimit int
}

// StageSet is the closed, ordered stage vocabulary of a board.
type StageSet struct {
	stages []Stage
}

// NewStageSet validates and freezes the ordered stage vocabulary.
func NewStageSet(stages []Stage) (StageSet, error) {
	if len(stages) == 0 {
		return StageSet{}, fmt.Errorf("%w: at least one stage is required", ErrInvalidStageSet)
	}
	out := make([]Stage, 0, len(stages))
	seenIDs := map[StageID]struct{}{}
	seenStatus := map[string]struct{}{}
	for idx, stage := range stages {
		stage.ID = StageID(strings.TrimSpace(string(stage.ID)))
		stage.Name = strings.TrimSpace(stage.Name)
		stage.Status = strings.TrimSpace(stage.Status)
		if stage.ID == "" {
			return StageSet{}, fmt.Errorf("%w: stages[%d] id is required", ErrInvalidStageSet, idx)
		}
		if stage.Name == "" {
			stage.Name = string(stage.ID)
		}
		if stage.Status == "" {
			stage.Status = string(stage.ID)
		}
		if stage.WIPLimit < 0 {
			return StageSet{}, fmt.Errorf("%w: stages[%d] wip limit must be >= 0", ErrInvalidStageSet, idx)
		}
		if _, ok := seenIDs[stage.ID]; ok {
			return StageSet{}, fmt.Errorf("%w: duplicate stage id %q", ErrInvalidStageSet, stage.ID)
		}
		statusKey := strings.ToLower(stage.Status)
		if _, ok := seenStatus[statusKey]; ok {
			return StageSet{}, fmt.Errorf("%w: duplicate stage status %q", ErrInvalidStageSet, stage.Status)
		}
		seenIDs[stage.ID] = struct{}{}
		seenStatus[statusKey] = struct{}{}
		out = append(out, stage)
	}
	return StageSet{stages: out}, nil
}

// MustStageSet is NewStageSet for static vocabularies; it panics on invalid input.
func MustStageSet(stages ...Stage) StageSet {
	set, err := NewStageSet(stages)
	if err != nil {
		panic(err)
	}
	return set
}

func (s StageSet) Len() int {
	return len(s.stages)
}

// Stages returns a copy of the ordered stages.
func (s StageSet) Stages() []Stage {
	return slices.Clone(s.stages)
}

func (s StageSet) IDs() []StageID {
	out := make([]StageID, 0, len(s.stages))
	for _, stage := range s.stages {
		out = append(out, stage.ID)
	}
	return out
}

// Index returns the stage position or -1.
func (s StageSet) Index(id StageID) int {
	return slices.IndexFunc(s.stages, func(stage Stage) bool { return stage.ID == id })
}

func (s StageSet) Contains(id StageID) bool {
	return s.Index(id) >= 0
}

func (s StageSet) Stage(id StageID) (Stage, bool) {
	idx := s.Index(id)
	if idx < 0 {
		return Stage{}, false
	}
	return s.stages[idx], true
}

// At returns the stage at position idx.
func (s StageSet) At(idx int) (Stage, bool) {
	if idx < 0 || idx >= len(s.stages) {
		return Stage{}, false
	}
	return s.stages[idx], true
}

// Status maps an internal stage id to the task store's status label.
func (s StageSet) Status(id StageID) (string, bool) {
	stage, ok := s.Stage(id)
	if !ok {
		return "", false
	}
	return stage.Status, true
}

// StageForStatus maps a task store status label back to a stage, case-insensitively.
func (s StageSet) StageForStatus(status string) (StageID, bool) {
	status = strings.TrimSpace(status)
	for _, stage := range s.stages {
		if strings.EqualFold(stage.Status, status) {
			return stage.ID, true
		}
	}
	return "", false
}

// Statuses returns the store-facing status labels in stage order.
func (s StageSet) Statuses() []string {
	out := make([]string, 0, len(s.stages))
	for _, stage := range s.stages {
		out = append(out, stage.Status)
	}
	return out
}

func (s StageSet) First() Stage {
	if len(s.stages) == 0 {
		return Stage{}
	}
	return s.stages[0]
}
