package domain

import (
	"errors"
	"fmt"
	"slices"
)

// Board partitions items across the stages of one StageSet.
//
// Every item id appears in exactly one column, exactly once, and Item.Stage always names
// that column. Mutators panic with ErrInvariantViolation when called with ids the board does
// not know, because a broken partition corrupts every later drag.
type Board struct {
	stages  StageSet
	columns map[StageID][]string
	items   map[string]Item
	version uint64
}

// NewBoard places items into their stage columns in input order.
func NewBoard(stages StageSet, items []Item) (*Board, error) {
	if stages.Len() == 0 {
		return nil, ErrInvalidStageSet
	}
	b := &Board{
		stages:  stages,
		columns: make(map[StageID][]string, stages.Len()),
		items:   make(map[string]Item, len(items)),
	}
	for _, id := range stages.IDs() {
		b.columns[id] = []string{}
	}
	for _, item := range items {
		if !stages.Contains(item.Stage) {
			return nil, fmt.Errorf("%w: item %q names stage %q", ErrUnknownStage, item.ID, item.Stage)
		}
		if _, ok := b.items[item.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateItem, item.ID)
		}
		b.items[item.ID] = item.clone()
		b.columns[item.Stage] = append(b.columns[item.Stage], item.ID)
	}
	return b, nil
}

// StageSet returns the board's stage vocabulary.
func (b *Board) StageSet() StageSet {
	return b.stages
}

// Stages returns the ordered stages.
func (b *Board) Stages() []Stage {
	return b.stages.Stages()
}

// Version increments on every mutation.
func (b *Board) Version() uint64 {
	return b.version
}

func (b *Board) Len() int {
	return len(b.items)
}

// Column returns a copy of the ordered item ids in one stage.
func (b *Board) Column(stage StageID) []string {
	return slices.Clone(b.columns[stage])
}

func (b *Board) Item(id string) (Item, bool) {
	item, ok := b.items[id]
	if !ok {
		return Item{}, false
	}
	return item.clone(), true
}

// Locate returns the stage and index currently holding id.
func (b *Board) Locate(id string) (StageID, int, bool) {
	item, ok := b.items[id]
	if !ok {
		return "", -1, false
	}
	idx := slices.Index(b.columns[item.Stage], id)
	if idx < 0 {
		return "", -1, false
	}
	return item.Stage, idx, true
}

// Items returns every item in stage order, then column order.
func (b *Board) Items() []Item {
	out := make([]Item, 0, len(b.items))
	for _, stage := range b.stages.IDs() {
		for _, id := range b.columns[stage] {
			out = append(out, b.items[id].clone())
		}
	}
	return out
}

// Layout returns a copy of the stage -> ordered ids mapping.
func (b *Board) Layout() map[StageID][]string {
	out := make(map[StageID][]string, len(b.columns))
	for stage, ids := range b.columns {
		out[stage] = slices.Clone(ids)
	}
	return out
}

// MoveItem removes itemID from its column and inserts it into dest at index.
// The index is measured after removal and clamped to the destination length.
func (b *Board) MoveItem(itemID string, dest StageID, index int) {
	item, ok := b.items[itemID]
	if !ok {
		panic(invariantf("move of unknown item %q", itemID))
	}
	if !b.stages.Contains(dest) {
		panic(invariantf("move of %q into unknown stage %q", itemID, dest))
	}
	src := b.columns[item.Stage]
	pos := slices.Index(src, itemID)
	if pos < 0 {
		panic(invariantf("item %q missing from its column %q", itemID, item.Stage))
	}
	b.columns[item.Stage] = slices.Delete(src, pos, pos+1)

	target := b.columns[dest]
	index = min(max(index, 0), len(target))
	b.columns[dest] = slices.Insert(target, index, itemID)

	item.Stage = dest
	b.items[itemID] = item
	b.version++
}

// ReorderWithinColumn moves the id at from to position to inside one column.
func (b *Board) ReorderWithinColumn(stage StageID, from, to int) {
	if !b.stages.Contains(stage) {
		panic(invariantf("reorder of unknown stage %q", stage))
	}
	col := b.columns[stage]
	if from < 0 || from >= len(col) {
		return
	}
	to = min(max(to, 0), len(col)-1)
	if from == to {
		return
	}
	id := col[from]
	col = slices.Delete(col, from, from+1)
	b.columns[stage] = slices.Insert(col, to, id)
	b.version++
}

// CheckInvariant verifies the partition: each item in exactly one column, exactly once.
func (b *Board) CheckInvariant() error {
	var errs []error
	seen := make(map[string]StageID, len(b.items))
	for stage, ids := range b.columns {
		if !b.stages.Contains(stage) {
			errs = append(errs, invariantf("column for unknown stage %q", stage))
			continue
		}
		for _, id := range ids {
			if prev, dup := seen[id]; dup {
				errs = append(errs, invariantf("item %q present in %q and %q", id, prev, stage))
				continue
			}
			seen[id] = stage
			item, ok := b.items[id]
			if !ok {
				errs = append(errs, invariantf("column %q holds unknown item %q", stage, id))
				continue
			}
			if item.Stage != stage {
				errs = append(errs, invariantf("item %q records stage %q but sits in %q", id, item.Stage, stage))
			}
		}
	}
	for id := range b.items {
		if _, ok := seen[id]; !ok {
			errs = append(errs, invariantf("item %q is absent from all columns", id))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy that shares no slices with b.
func (b *Board) Clone() *Board {
	out := &Board{
		stages:  b.stages,
		columns: b.Layout(),
		items:   make(map[string]Item, len(b.items)),
		version: b.version,
	}
	for id, item := range b.items {
		out.items[id] = item.clone()
	}
	return out
}

// Equal compares stage order, column order and item payloads; versions are ignored.
func (b *Board) Equal(other *Board) bool {
	if b == nil || other == nil {
		return b == other
	}
	if !slices.Equal(b.stages.IDs(), other.stages.IDs()) {
		return false
	}
	if len(b.items) != len(other.items) {
		return false
	}
	for _, stage := range b.stages.IDs() {
		if !slices.Equal(b.columns[stage], other.columns[stage]) {
			return false
		}
	}
	for id, item := range b.items {
		otherItem, ok := other.items[id]
		if !ok || !item.equal(otherItem) {
			return false
		}
	}
	return true
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}
