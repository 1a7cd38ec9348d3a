package app

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hylla/stageboard/internal/domain"
)

// GroupKey selects how the projection buckets items.
type GroupKey string

// GroupStage and related constants enumerate grouping keys.
const (
	GroupStage    GroupKey = "stage"
	GroupCategory GroupKey = "category"
	GroupArea     GroupKey = "area"
	GroupPriority GroupKey = "priority"
	GroupTag      GroupKey = "tag"
)

// NoneGroup labels items that carry no value for the grouping key.
const NoneGroup = "(none)"

// GroupKeys returns the supported keys in cycle order.
func GroupKeys() []GroupKey {
	return []GroupKey{GroupStage, GroupCategory, GroupArea, GroupPriority, GroupTag}
}

// ParseGroupKey validates a grouping key; blank selects GroupStage.
func ParseGroupKey(raw string) (GroupKey, error) {
	key := GroupKey(strings.TrimSpace(strings.ToLower(raw)))
	if key == "" {
		return GroupStage, nil
	}
	if !slices.Contains(GroupKeys(), key) {
		return "", fmt.Errorf("unknown group key %q", raw)
	}
	return key, nil
}

// Next returns the following key in cycle order.
func (k GroupKey) Next() GroupKey {
	keys := GroupKeys()
	idx := slices.Index(keys, k)
	return keys[(idx+1)%len(keys)]
}

// Group is one bucket of the projected view. Each Project call returns fresh groups, so callers
// may sort or append to Items.
type Group struct {
	Key      string
	Label    string
	Items    []domain.Item
	WIPLimit int
	OverWIP  bool
}

type projectionKey struct {
	board   *domain.Board
	version uint64
	key     GroupKey
}

// Projector groups board items for display and caches results per board version.
type Projector struct {
	cache  map[projectionKey][]Group
	board  *domain.Board
	builds int
}

// NewProjector constructs an empty projector.
func NewProjector() *Projector {
	return &Projector{cache: map[projectionKey][]Group{}}
}

// Project returns groups for key. It never mutates board.
func (p *Projector) Project(board *domain.Board, key GroupKey) []Group {
	if board == nil {
		return nil
	}
	if board != p.board {
		p.board = board
		clear(p.cache)
	}
	ck := projectionKey{board: board, version: board.Version(), key: key}
	groups, ok := p.cache[ck]
	if !ok {
		groups = project(board, key)
		p.cache[ck] = groups
		p.builds++
	}
	return cloneGroups(groups)
}

func cloneGroups(groups []Group) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		g.Items = slices.Clone(g.Items)
		for j := range g.Items {
			g.Items[j].Tags = slices.Clone(g.Items[j].Tags)
		}
		out[i] = g
	}
	return out
}

func project(board *domain.Board, key GroupKey) []Group {
	switch key {
	case GroupStage, "":
		return projectStages(board)
	case GroupPriority:
		return projectPriority(board)
	case GroupCategory:
		return projectLabels(board, func(item domain.Item) []string { return single(item.Category) })
	case GroupArea:
		return projectLabels(board, func(item domain.Item) []string { return single(item.Area) })
	case GroupTag:
		return projectLabels(board, func(item domain.Item) []string { return item.Tags })
	default:
		return projectStages(board)
	}
}

func projectStages(board *domain.Board) []Group {
	stages := board.Stages()
	out := make([]Group, 0, len(stages))
	for _, stage := range stages {
		ids := board.Column(stage.ID)
		items := make([]domain.Item, 0, len(ids))
		for _, id := range ids {
			if item, ok := board.Item(id); ok {
				items = append(items, item)
			}
		}
		out = append(out, Group{
			Key:      string(stage.ID),
			Label:    stage.Name,
			Items:    items,
			WIPLimit: stage.WIPLimit,
			OverWIP:  WIPExceeded(stage, len(items)),
		})
	}
	return out
}

func projectPriority(board *domain.Board) []Group {
	priorities := slices.Clone(domain.Priorities())
	slices.SortFunc(priorities, func(a, b domain.Priority) int { return b.Rank() - a.Rank() })
	buckets := map[domain.Priority][]domain.Item{}
	for _, item := range board.Items() {
		buckets[item.Priority] = append(buckets[item.Priority], item)
	}
	out := make([]Group, 0, len(priorities))
	for _, priority := range priorities {
		if len(buckets[priority]) == 0 {
			continue
		}
		out = append(out, Group{Key: string(priority), Label: string(priority), Items: buckets[priority]})
	}
	return out
}

func projectLabels(board *domain.Board, labels func(domain.Item) []string) []Group {
	buckets := map[string][]domain.Item{}
	display := map[string]string{}
	var none []domain.Item
	for _, item := range board.Items() {
		values := labels(item)
		if len(values) == 0 {
			none = append(none, item)
			continue
		}
		for _, value := range values {
			k := strings.ToLower(value)
			if _, ok := display[k]; !ok {
				display[k] = value
			}
			buckets[k] = append(buckets[k], item)
		}
	}
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]Group, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, Group{Key: k, Label: display[k], Items: buckets[k]})
	}
	if len(none) > 0 {
		out = append(out, Group{Key: "", Label: NoneGroup, Items: none})
	}
	return out
}

func single(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return []string{value}
}

// WIPExceeded reports a column holding more items than its limit. Zero means unlimited.
func WIPExceeded(stage domain.Stage, count int) bool {
	return stage.WIPLimit > 0 && count > stage.WIPLimit
}

// BadgeKind classifies an item badge.
type BadgeKind string

// BadgePriority and related constants enumerate badge kinds.
const (
	BadgePriority BadgeKind = "priority"
	BadgeOverdue  BadgeKind = "overdue"
	BadgeDueSoon  BadgeKind = "due_soon"
)

// Badge is a derived display marker on a card.
type Badge struct {
	Kind  BadgeKind
	Label string
}

// ItemBadges derives the card badges for item at now.
func ItemBadges(item domain.Item, now time.Time, dueSoon time.Duration) []Badge {
	out := []Badge{{Kind: BadgePriority, Label: string(item.Priority)}}
	switch {
	case item.Overdue(now):
		out = append(out, Badge{Kind: BadgeOverdue, Label: "overdue"})
	case dueSoon > 0 && item.DueWithin(now, dueSoon):
		out = append(out, Badge{Kind: BadgeDueSoon, Label: "due " + item.TargetDate.Format(time.DateOnly)})
	}
	return out
}
