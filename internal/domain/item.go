package domain

import (
	"slices"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Priorities returns the priority vocabulary from lowest to highest.
func Priorities() []Priority {
	return slices.Clone(validPriorities)
}

// Rank orders priorities; unknown values rank below low.
func (p Priority) Rank() int {
	return slices.Index(validPriorities, p)
}

// Item is one work item on a board. Stage is the only record of workflow membership.
type Item struct {
	ID          string
	Title       string
	Description string
	Tags        []string
	Priority    Priority
	TargetDate  *time.Time
	Category    string
	Area        string
	Stage       StageID
}

type ItemInput struct {
	ID          string
	Title       string
	Description string
	Tags        []string
	Priority    Priority
	TargetDate  *time.Time
	Category    string
	Area        string
	Stage       StageID
}

func NewItem(in ItemInput) (Item, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Stage = StageID(strings.TrimSpace(string(in.Stage)))

	if in.ID == "" {
		return Item{}, ErrInvalidID
	}
	if in.Title == "" {
		return Item{}, ErrInvalidTitle
	}
	if in.Stage == "" {
		return Item{}, ErrUnknownStage
	}
	priority, err := NormalizePriority(in.Priority)
	if err != nil {
		return Item{}, err
	}

	return Item{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		Tags:        NormalizeTags(in.Tags),
		Priority:    priority,
		TargetDate:  normalizeTargetDate(in.TargetDate),
		Category:    strings.TrimSpace(in.Category),
		Area:        strings.TrimSpace(in.Area),
		Stage:       in.Stage,
	}, nil
}

// NormalizePriority lowercases p and defaults blanks to medium.
func NormalizePriority(p Priority) (Priority, error) {
	p = Priority(strings.ToLower(strings.TrimSpace(string(p))))
	if p == "" {
		return PriorityMedium, nil
	}
	if !slices.Contains(validPriorities, p) {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// Overdue reports whether the target date is strictly before now's calendar day.
func (i Item) Overdue(now time.Time) bool {
	if i.TargetDate == nil {
		return false
	}
	return i.TargetDate.Before(startOfDay(now))
}

// DueWithin reports whether the target date falls in [now, now+window].
func (i Item) DueWithin(now time.Time, window time.Duration) bool {
	if i.TargetDate == nil || window <= 0 || i.Overdue(now) {
		return false
	}
	return !i.TargetDate.After(now.UTC().Add(window))
}

func (i Item) clone() Item {
	out := i
	out.Tags = slices.Clone(i.Tags)
	if i.TargetDate != nil {
		ts := *i.TargetDate
		out.TargetDate = &ts
	}
	return out
}

func (i Item) equal(other Item) bool {
	if i.ID != other.ID || i.Title != other.Title || i.Description != other.Description {
		return false
	}
	if i.Priority != other.Priority || i.Category != other.Category || i.Area != other.Area || i.Stage != other.Stage {
		return false
	}
	if !slices.Equal(i.Tags, other.Tags) {
		return false
	}
	switch {
	case i.TargetDate == nil && other.TargetDate == nil:
		return true
	case i.TargetDate == nil || other.TargetDate == nil:
		return false
	default:
		return i.TargetDate.Equal(*other.TargetDate)
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeTargetDate(date *time.Time) *time.Time {
	if date == nil {
		return nil
	}
	ts := startOfDay(*date)
	return &ts
}

// NormalizeTags lowercases, trims, dedupes and sorts tags.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}
