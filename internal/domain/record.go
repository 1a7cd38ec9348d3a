package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskRecord is the task store's flat representation of one task.
// Status uses the store's vocabulary; StageSet maps it onto board stages.
type TaskRecord struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags"`
	Priority    Priority   `json:"priority"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	Status      string     `json:"status"`
	Category    string     `json:"category,omitempty"`
	Area        string     `json:"area,omitempty"`
}

// ItemFromRecord resolves a record's status against stages and builds the board item.
func ItemFromRecord(stages StageSet, rec TaskRecord) (Item, error) {
	stage, ok := stages.StageForStatus(rec.Status)
	if !ok {
		return Item{}, fmt.Errorf("%w: status %q", ErrUnknownStage, strings.TrimSpace(rec.Status))
	}
	return NewItem(ItemInput{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Tags:        rec.Tags,
		Priority:    rec.Priority,
		TargetDate:  rec.TargetDate,
		Category:    rec.Category,
		Area:        rec.Area,
		Stage:       stage,
	})
}

// RecordFromItem is the inverse of ItemFromRecord.
func RecordFromItem(stages StageSet, item Item) (TaskRecord, error) {
	status, ok := stages.Status(item.Stage)
	if !ok {
		return TaskRecord{}, fmt.Errorf("%w: %q", ErrUnknownStage, item.Stage)
	}
	item = item.clone()
	return TaskRecord{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Tags:        item.Tags,
		Priority:    item.Priority,
		TargetDate:  item.TargetDate,
		Status:      status,
		Category:    item.Category,
		Area:        item.Area,
	}, nil
}
