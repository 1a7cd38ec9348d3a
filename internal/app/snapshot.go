package app

import (
	"errors"

	"github.com/hylla/stageboard/internal/domain"
)

// SkippedRecord is a store record that could not be placed on the board.
type SkippedRecord struct {
	Record domain.TaskRecord
	Err    error
}

// BoardFromRecords builds a board from a store snapshot.
// Records with an unknown status, invalid payload, or a repeated id are returned as skipped.
func BoardFromRecords(stages domain.StageSet, records []domain.TaskRecord) (*domain.Board, []SkippedRecord, error) {
	items := make([]domain.Item, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	var skipped []SkippedRecord
	for _, rec := range records {
		item, err := domain.ItemFromRecord(stages, rec)
		if err != nil {
			skipped = append(skipped, SkippedRecord{Record: rec, Err: err})
			continue
		}
		if _, dup := seen[item.ID]; dup {
			skipped = append(skipped, SkippedRecord{Record: rec, Err: domain.ErrDuplicateItem})
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	board, err := domain.NewBoard(stages, items)
	if err != nil {
		return nil, skipped, err
	}
	return board, skipped, nil
}

// unknownStatus reports whether a skip was caused by a status outside the stage set.
func (s SkippedRecord) unknownStatus() bool {
	return errors.Is(s.Err, domain.ErrUnknownStage)
}
