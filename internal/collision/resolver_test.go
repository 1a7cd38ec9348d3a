package collision

import (
	"testing"

	"github.com/hylla/stageboard/internal/domain"
)

// fakeColumns is a minimal ColumnSource for geometry tests.
type fakeColumns struct {
	stages  []domain.Stage
	columns map[domain.StageID][]string
}

func (f fakeColumns) Stages() []domain.Stage {
	return f.stages
}

func (f fakeColumns) Column(id domain.StageID) []string {
	return f.columns[id]
}

func newFakeColumns(layout map[domain.StageID][]string) fakeColumns {
	return fakeColumns{
		stages: []domain.Stage{
			{ID: "backlog", Status: "BACKLOG"},
			{ID: "todo", Status: "TODO"},
			{ID: "done", Status: "DONE"},
		},
		columns: layout,
	}
}

// testGrid is 100 wide columns with 10 gap, 20 header, 40 cards with 10 gap.
func testGrid() Grid {
	return Grid{ColumnWidth: 100, ColumnGap: 10, HeaderHeight: 20, CardHeight: 40, CardGap: 10, ColumnHeight: 400}
}

func dragged(layout Layout, id string, dx, dy float64) Rect {
	rect, _ := layout.Card(id)
	return rect.Translate(Point{X: dx, Y: dy})
}

func TestGridLayoutPositions(t *testing.T) {
	src := newFakeColumns(map[domain.StageID][]string{
		"backlog": {"a", "b"},
		"todo":    {},
		"done":    {"c"},
	})
	layout := testGrid().Layout(src)
	if len(layout.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(layout.Columns))
	}
	b, ok := layout.Card("b")
	if !ok || b != (Rect{X: 0, Y: 70, W: 100, H: 40}) {
		t.Fatalf("unexpected card b rect %#v", b)
	}
	c, _ := layout.Card("c")
	if c.X != 220 || c.Y != 20 {
		t.Fatalf("unexpected card c rect %#v", c)
	}
	todo := layout.Columns[1]
	if todo.DropArea.Top() != 20 || todo.DropArea.Bottom() != 400 {
		t.Fatalf("unexpected empty drop area %#v", todo.DropArea)
	}
	if stage, ok := layout.ColumnAt(Point{X: 150, Y: 5}); !ok || stage != "todo" {
		t.Fatalf("ColumnAt() = %q %t", stage, ok)
	}
	if id, ok := layout.CardAt(Point{X: 10, Y: 75}); !ok || id != "b" {
		t.Fatalf("CardAt() = %q %t", id, ok)
	}
}

func TestGridLayoutAutoHeight(t *testing.T) {
	grid := testGrid()
	grid.ColumnHeight = 0
	layout := grid.Layout(newFakeColumns(map[domain.StageID][]string{"backlog": {"a", "b"}}))
	if got := layout.Columns[0].Bounds.H; got != 170 {
		t.Fatalf("expected auto height 170, got %v", got)
	}
}

func TestResolveEmptyColumnAppends(t *testing.T) {
	src := newFakeColumns(map[domain.StageID][]string{
		"backlog": {"a"},
		"todo":    {},
		"done":    {},
	})
	layout := testGrid().Layout(src)
	rect := dragged(layout, "a", 110, 60)
	got, ok := Resolve(layout, Query{ActiveID: "a", Dragged: rect, Pointer: rect.Center(), Direction: 1})
	if !ok {
		t.Fatal("expected a target over the todo column")
	}
	if got != (Target{Stage: "todo", Index: 0}) {
		t.Fatalf("unexpected target %#v", got)
	}
}

func TestResolveDropAreaAppendsAfterSiblings(t *testing.T) {
	src := newFakeColumns(map[domain.StageID][]string{
		"backlog": {"a"},
		"todo":    {"x", "y"},
	})
	layout := testGrid().Layout(src)
	rect := dragged(layout, "a", 110, 250)
	got, ok := Resolve(layout, Query{ActiveID: "a", Dragged: rect, Pointer: rect.Center(), Direction: 1})
	if !ok || got != (Target{Stage: "todo", Index: 2}) {
		t.Fatalf("expected append to todo, got %#v %t", got, ok)
	}
}

func TestResolveInsertionSideFollowsLeadingEdge(t *testing.T) {
	src := newFakeColumns(map[domain.StageID][]string{
		"backlog": {"a"},
		"todo":    {"x", "y", "z"},
	})
	layout := testGrid().Layout(src)
	// y sits at 70..110 with its midpoint at 90.
	cases := []struct {
		name      string
		top       float64
		direction float64
		want      int
	}{
		{name: "down before midpoint", top: 45, direction: 1, want: 1},
		{name: "down past midpoint", top: 60, direction: 1, want: 2},
		{name: "up past midpoint", top: 85, direction: -1, want: 1},
		{name: "up before midpoint", top: 95, direction: -1, want: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rect := Rect{X: 112, Y: tc.top, W: 100, H: 40}
			got, ok := Resolve(layout, Query{ActiveID: "a", Dragged: rect, Pointer: rect.Center(), Direction: tc.direction})
			if !ok || got != (Target{Stage: "todo", Index: tc.want}) {
				t.Fatalf("Resolve() = %#v %t, want index %d", got, ok, tc.want)
			}
		})
	}
}

func TestResolveExcludesActiveItem(t *testing.T) {
	src := newFakeColumns(map[domain.StageID][]string{
		"backlog": {"a", "b", "c"},
	})
	layout := testGrid().Layout(src)
	// Dragging b in place should keep it at index 1 among the siblings a and c.
	rect := dragged(layout, "b", 0, 0)
	got, ok := Resolve(layout, Query{ActiveID: "b", Dragged: rect, Pointer: rect.Center(), Direction: 1})
	if !ok || got != (Target{Stage: "backlog", Index: 1}) {
		t.Fatalf("expected in-place target, got %#v %t", got, ok)
	}
}

func TestResolveColumnChoice(t *testing.T) {
	src := newFakeColumns(map[domain.StageID][]string{"backlog": {"a"}, "todo": {}})
	layout := testGrid().Layout(src)

	rect := Rect{X: 56, Y: 100, W: 100, H: 40}
	got, ok := Resolve(layout, Query{ActiveID: "a", Dragged: rect, Pointer: rect.Center(), Direction: 1})
	if !ok || got.Stage != "todo" {
		t.Fatalf("expected nearer todo column, got %#v %t", got, ok)
	}

	rect = Rect{X: 55, Y: 100, W: 100, H: 40}
	got, ok = Resolve(layout, Query{ActiveID: "a", Dragged: rect, Pointer: rect.Center(), Direction: 1})
	if !ok || got.Stage != "backlog" {
		t.Fatalf("expected exact tie to fall back to stage order, got %#v %t", got, ok)
	}
}

func TestResolvePrefersLargerOverlapOnDistanceTie(t *testing.T) {
	layout := Layout{Columns: []ColumnLayout{
		{Stage: "short", Bounds: Rect{X: 110, Y: 100, W: 100, H: 300}, DropArea: Rect{X: 110, Y: 100, W: 100, H: 300}},
		{Stage: "tall", Bounds: Rect{X: 0, Y: 0, W: 100, H: 400}, DropArea: Rect{X: 0, Y: 0, W: 100, H: 400}},
	}}
	// Center (105,100) is 5 from both columns; tall overlaps 45x40, short only 45x20.
	rect := Rect{X: 55, Y: 80, W: 100, H: 40}
	got, ok := Resolve(layout, Query{ActiveID: "a", Dragged: rect, Pointer: rect.Center(), Direction: 1})
	if !ok || got != (Target{Stage: "tall", Index: 0}) {
		t.Fatalf("expected larger overlap to win, got %#v %t", got, ok)
	}
}

func TestResolveOutsideEveryColumn(t *testing.T) {
	src := newFakeColumns(map[domain.StageID][]string{"backlog": {"a"}})
	layout := testGrid().Layout(src)
	rect := Rect{X: 1000, Y: 1000, W: 100, H: 40}
	if got, ok := Resolve(layout, Query{ActiveID: "a", Dragged: rect, Pointer: rect.Center()}); ok {
		t.Fatalf("expected no target, got %#v", got)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	src := newFakeColumns(map[domain.StageID][]string{
		"backlog": {"a", "b"},
		"todo":    {"x", "y", "z"},
		"done":    {"w"},
	})
	layout := testGrid().Layout(src)
	q := Query{ActiveID: "a", Dragged: Rect{X: 130, Y: 77, W: 100, H: 40}, Pointer: Point{X: 180, Y: 97}, Direction: -1}
	first, ok := Resolve(layout, q)
	if !ok {
		t.Fatal("expected a target")
	}
	for range 50 {
		if got, _ := Resolve(layout, q); got != first {
			t.Fatalf("Resolve() not deterministic: %#v != %#v", got, first)
		}
	}
}

func TestStepClampsWithinBoard(t *testing.T) {
	src := newFakeColumns(map[domain.StageID][]string{
		"backlog": {"a", "b"},
		"todo":    {"x"},
		"done":    {},
	})
	cur := Target{Stage: "backlog", Index: 0}

	cur = Step(src, "a", cur, DirectionUp)
	if cur != (Target{Stage: "backlog", Index: 0}) {
		t.Fatalf("up at top should clamp, got %#v", cur)
	}
	cur = Step(src, "a", cur, DirectionDown)
	cur = Step(src, "a", cur, DirectionDown)
	if cur != (Target{Stage: "backlog", Index: 1}) {
		t.Fatalf("down should clamp to sibling count, got %#v", cur)
	}
	cur = Step(src, "a", cur, DirectionRight)
	if cur != (Target{Stage: "todo", Index: 1}) {
		t.Fatalf("right should keep index within todo, got %#v", cur)
	}
	cur = Step(src, "a", cur, DirectionRight)
	if cur != (Target{Stage: "done", Index: 0}) {
		t.Fatalf("right into empty column should clamp to 0, got %#v", cur)
	}
	if got := Step(src, "a", cur, DirectionRight); got != cur {
		t.Fatalf("right at last stage should stay, got %#v", got)
	}
	if got := Step(src, "a", Target{Stage: "missing"}, DirectionLeft); got.Stage != "missing" {
		t.Fatalf("unknown stage should be returned unchanged, got %#v", got)
	}
}
