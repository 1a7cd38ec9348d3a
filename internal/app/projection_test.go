package app

import (
	"slices"
	"testing"
	"time"

	"github.com/hylla/stageboard/internal/domain"
)

func projectionBoard(t *testing.T) *domain.Board {
	t.Helper()
	records := []domain.TaskRecord{
		{ID: "a", Title: "A", Status: "Backlog", Priority: domain.PriorityLow, Category: "Ops", Tags: []string{"infra", "urgent"}},
		{ID: "b", Title: "B", Status: "Todo", Priority: domain.PriorityHigh, Area: "api"},
		{ID: "c", Title: "C", Status: "Todo", Category: "dev", Tags: []string{"urgent"}},
		{ID: "d", Title: "D", Status: "Done", Priority: domain.PriorityHigh, Category: "ops"},
	}
	board, skipped, err := BoardFromRecords(threeStages(), records)
	if err != nil || len(skipped) != 0 {
		t.Fatalf("BoardFromRecords() error = %v skipped = %#v", err, skipped)
	}
	return board
}

func groupIDs(groups []Group) map[string][]string {
	out := map[string][]string{}
	for _, g := range groups {
		for _, item := range g.Items {
			out[g.Label] = append(out[g.Label], item.ID)
		}
	}
	return out
}

func groupLabels(groups []Group) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Label)
	}
	return out
}

func TestProjectByStageFlagsWIP(t *testing.T) {
	groups := NewProjector().Project(projectionBoard(t), GroupStage)
	if !slices.Equal(groupLabels(groups), []string{"Backlog", "To Do", "Done"}) {
		t.Fatalf("unexpected stage labels %v", groupLabels(groups))
	}
	if !groups[1].OverWIP || groups[0].OverWIP {
		t.Fatalf("expected only To Do over its WIP limit, got %#v", groups)
	}
}

func TestProjectByLabels(t *testing.T) {
	board := projectionBoard(t)
	p := NewProjector()

	category := p.Project(board, GroupCategory)
	if !slices.Equal(groupLabels(category), []string{"dev", "Ops", NoneGroup}) {
		t.Fatalf("unexpected category labels %v", groupLabels(category))
	}
	if ids := groupIDs(category)["Ops"]; !slices.Equal(ids, []string{"a", "d"}) {
		t.Fatalf("expected board order within a group, got %v", ids)
	}

	tags := p.Project(board, GroupTag)
	got := groupIDs(tags)
	if !slices.Equal(got["urgent"], []string{"a", "c"}) || !slices.Equal(got["infra"], []string{"a"}) || !slices.Equal(got[NoneGroup], []string{"b", "d"}) {
		t.Fatalf("unexpected tag groups %v", got)
	}

	priority := p.Project(board, GroupPriority)
	if !slices.Equal(groupLabels(priority), []string{"high", "medium", "low"}) {
		t.Fatalf("unexpected priority order %v", groupLabels(priority))
	}
}

func TestProjectorCachesPerVersion(t *testing.T) {
	board := projectionBoard(t)
	p := NewProjector()
	first := p.Project(board, GroupStage)
	p.Project(board, GroupStage)
	if p.builds != 1 {
		t.Fatalf("expected cached groups for an unchanged board, built %d times", p.builds)
	}
	board.MoveItem("a", "done", 0)
	moved := p.Project(board, GroupStage)
	if p.builds != 2 {
		t.Fatalf("expected a rebuild after a move, built %d times", p.builds)
	}
	if len(moved[0].Items) != 0 || moved[2].Items[0].ID != "a" {
		t.Fatalf("expected recomputed projection after a move, got %v", groupIDs(moved))
	}
	if len(first[0].Items) != 1 {
		t.Fatal("projection must not be mutated by later board changes")
	}
}

func TestProjectResultIsCallerOwned(t *testing.T) {
	board := projectionBoard(t)
	p := NewProjector()

	first := p.Project(board, GroupTag)
	first[0].Items = append(first[0].Items[:0], domain.Item{ID: "zz"})
	first[0].Label = "changed"
	slices.Reverse(first)

	again := p.Project(board, GroupTag)
	if p.builds != 1 {
		t.Fatalf("expected the cached projection to be reused, built %d times", p.builds)
	}
	if got := groupLabels(again); !slices.Equal(got, []string{"infra", "urgent", NoneGroup}) {
		t.Fatalf("labels = %v, caller edits leaked into the cache", got)
	}
	if ids := groupIDs(again); !slices.Equal(ids["infra"], []string{"a"}) {
		t.Fatalf("infra items = %v, caller edits leaked into the cache", ids["infra"])
	}
}

func TestProjectNeverMutatesBoard(t *testing.T) {
	board := projectionBoard(t)
	p := NewProjector()
	for _, key := range GroupKeys() {
		before := board.Clone()
		version := board.Version()
		for _, g := range p.Project(board, key) {
			for i := range g.Items {
				g.Items[i].Title = "edited"
				if len(g.Items[i].Tags) > 0 {
					g.Items[i].Tags[0] = "edited"
				}
			}
		}
		if !board.Equal(before) || board.Version() != version {
			t.Fatalf("Project(%s) mutated the board: %v", key, board.Layout())
		}
	}
}

func TestParseGroupKey(t *testing.T) {
	if key, err := ParseGroupKey(""); err != nil || key != GroupStage {
		t.Fatalf("ParseGroupKey(\"\") = %q, %v", key, err)
	}
	if key, err := ParseGroupKey(" Tag "); err != nil || key != GroupTag {
		t.Fatalf("ParseGroupKey(Tag) = %q, %v", key, err)
	}
	if _, err := ParseGroupKey("owner"); err == nil {
		t.Fatal("expected unknown key error")
	}
	if GroupTag.Next() != GroupStage {
		t.Fatalf("expected key cycle to wrap, got %q", GroupTag.Next())
	}
}

func TestItemBadges(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	overdue, _ := domain.NewItem(domain.ItemInput{ID: "a", Title: "A", Stage: "todo", TargetDate: &yesterday, Priority: domain.PriorityHigh})
	soon, _ := domain.NewItem(domain.ItemInput{ID: "b", Title: "B", Stage: "todo", TargetDate: &tomorrow})
	plain, _ := domain.NewItem(domain.ItemInput{ID: "c", Title: "C", Stage: "todo"})

	if got := ItemBadges(overdue, now, 48*time.Hour); len(got) != 2 || got[0].Label != "high" || got[1].Kind != BadgeOverdue {
		t.Fatalf("unexpected overdue badges %#v", got)
	}
	if got := ItemBadges(soon, now, 48*time.Hour); len(got) != 2 || got[1].Kind != BadgeDueSoon {
		t.Fatalf("unexpected due soon badges %#v", got)
	}
	if got := ItemBadges(plain, now, 48*time.Hour); len(got) != 1 || got[0].Label != "medium" {
		t.Fatalf("unexpected plain badges %#v", got)
	}
}
