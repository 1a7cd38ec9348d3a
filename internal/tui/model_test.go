package tui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/hylla/stageboard/internal/app"
	"github.com/hylla/stageboard/internal/domain"
)

// statusCall records one UpdateStatus invocation.
type statusCall struct {
	ItemID string
	Status string
}

// fakeStore is an in-memory task store for model tests.
type fakeStore struct {
	mu        sync.Mutex
	records   []domain.TaskRecord
	updateErr error
	updates   []statusCall
	events    map[string][]domain.StatusEvent
	eventsErr error
}

func newFakeStore(records ...domain.TaskRecord) *fakeStore {
	return &fakeStore{records: records, events: map[string][]domain.StatusEvent{}}
}

func (f *fakeStore) ListTasks(context.Context, string) ([]domain.TaskRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.records), nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, itemID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, statusCall{ItemID: itemID, Status: status})
	if f.updateErr != nil {
		return f.updateErr
	}
	for idx := range f.records {
		if f.records[idx].ID == itemID {
			f.records[idx].Status = status
			return nil
		}
	}
	return app.ErrNotFound
}

func (f *fakeStore) ListStatusEvents(_ context.Context, taskID string, limit int) ([]domain.StatusEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	events := f.events[taskID]
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return slices.Clone(events), nil
}

func (f *fakeStore) updateCalls() []statusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.updates)
}

func testStages() domain.StageSet {
	return domain.MustStageSet(
		domain.Stage{ID: "todo", Name: "To Do", Status: "TODO"},
		domain.Stage{ID: "done", Name: "Done", Status: "DONE", WIPLimit: 1},
	)
}

func testRecords() []domain.TaskRecord {
	return []domain.TaskRecord{
		{ID: "a", Title: "Write docs", Status: "TODO", Priority: domain.PriorityHigh, Category: "docs", Tags: []string{"writing"}},
		{ID: "b", Title: "Fix login", Status: "TODO", Priority: domain.PriorityLow, Category: "bugs"},
		{ID: "c", Title: "Ship release", Status: "DONE", Priority: domain.PriorityMedium},
	}
}

func testEngineConfig(store *fakeStore) app.EngineConfig {
	return app.EngineConfig{
		Scope:            "main",
		Stages:           testStages(),
		Store:            store,
		DragThreshold:    1,
		StrictInvariants: true,
	}
}

// newTestModel loads the board through the command loop and sizes the terminal.
func newTestModel(t *testing.T, store *fakeStore, opts ...Option) Model {
	t.Helper()
	m, err := NewModel(testEngineConfig(store), append([]Option{WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	})}, opts...)...)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	m = applyCmd(t, m, m.Init())
	return applyMsg(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

// applyCmd runs cmd and every follow-up command, expanding batches, until the queue drains.
func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 64 {
			t.Fatal("command loop did not settle")
		}
		current := queue[0]
		queue = queue[1:]
		if current == nil {
			continue
		}
		msg := current()
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case tea.QuitMsg, nil:
			continue
		}
		updated, next := out.Update(msg)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		queue = append(queue, next)
	}
	return out
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func keySpace() tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: tea.KeySpace, Text: " "}
}

func columnOf(m Model, stage domain.StageID) []string {
	return m.state.engine.Board().Column(stage)
}

// TestModelLoadsBoard verifies the first snapshot renders and selects the first card.
func TestModelLoadsBoard(t *testing.T) {
	m := newTestModel(t, newFakeStore(testRecords()...))

	if m.selected != "a" || m.selectedKey != "todo" {
		t.Fatalf("selection = %q/%q, want a/todo", m.selected, m.selectedKey)
	}
	if m.status != "ready" {
		t.Fatalf("status = %q, want ready", m.status)
	}
	view := m.renderBoard()
	for _, want := range []string{"Write docs", "Fix login", "Ship release", "To Do 2", "Done 1/1", "high · #writing"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q\n%s", want, view)
		}
	}
}

// TestModelSelectionNavigation verifies hjkl move the selection when nothing is carried.
func TestModelSelectionNavigation(t *testing.T) {
	m := newTestModel(t, newFakeStore(testRecords()...))

	m = applyMsg(t, m, keyRune('j'))
	if m.selected != "b" {
		t.Fatalf("after j selected = %q, want b", m.selected)
	}
	m = applyMsg(t, m, keyRune('l'))
	if m.selected != "c" || m.selectedKey != "done" {
		t.Fatalf("after l selection = %q/%q, want c/done", m.selected, m.selectedKey)
	}
	m = applyMsg(t, m, keyRune('l'))
	if m.selected != "c" {
		t.Fatalf("moving past the last column changed selection to %q", m.selected)
	}
	m = applyMsg(t, m, keyRune('h'))
	m = applyMsg(t, m, keyRune('k'))
	if m.selected != "a" {
		t.Fatalf("after h,k selected = %q, want a", m.selected)
	}
}

// TestModelKeyboardDragCommitsMove verifies pick up, step and drop pushes the new status.
func TestModelKeyboardDragCommitsMove(t *testing.T) {
	store := newFakeStore(testRecords()...)
	m := newTestModel(t, store)

	m = applyMsg(t, m, keySpace())
	if m.state.engine.DragState() != app.DragDragging {
		t.Fatalf("drag state = %s, want dragging", m.state.engine.DragState())
	}
	m = applyMsg(t, m, keyRune('l'))
	if got := columnOf(m, "done"); !slices.Contains(got, "a") {
		t.Fatalf("preview did not move item: done = %v", got)
	}
	if len(store.updateCalls()) != 0 {
		t.Fatal("store updated before drop")
	}

	m = applyMsg(t, m, keySpace())
	calls := store.updateCalls()
	if len(calls) != 1 || calls[0] != (statusCall{ItemID: "a", Status: "DONE"}) {
		t.Fatalf("update calls = %#v", calls)
	}
	if !strings.Contains(m.status, `moved "Write docs" to Done`) {
		t.Fatalf("status = %q", m.status)
	}
	if m.state.engine.InFlight() != 0 {
		t.Fatalf("in flight = %d after completion", m.state.engine.InFlight())
	}
	if got := columnOf(m, "done"); !slices.Contains(got, "a") {
		t.Fatalf("confirmed move lost: done = %v", got)
	}
	if m.selected != "a" || m.selectedKey != "done" {
		t.Fatalf("selection = %q/%q, want a/done", m.selected, m.selectedKey)
	}
	if view := m.renderBoard(); !strings.Contains(view, "WIP!") {
		t.Fatalf("over-limit column not flagged\n%s", view)
	}
}

// TestModelKeyboardDragCancelRestores verifies esc puts the item back without a store call.
func TestModelKeyboardDragCancelRestores(t *testing.T) {
	store := newFakeStore(testRecords()...)
	m := newTestModel(t, store)

	m = applyMsg(t, m, keySpace())
	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})

	if got := columnOf(m, "todo"); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("todo = %v, want [a b]", got)
	}
	if len(store.updateCalls()) != 0 {
		t.Fatalf("cancel issued store calls: %#v", store.updateCalls())
	}
	if m.status != "drag cancelled" {
		t.Fatalf("status = %q", m.status)
	}
}

// TestModelReorderWithinColumnIsLocal verifies same-column drops never reach the store.
func TestModelReorderWithinColumnIsLocal(t *testing.T) {
	store := newFakeStore(testRecords()...)
	m := newTestModel(t, store)

	m = applyMsg(t, m, keySpace())
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if got := columnOf(m, "todo"); !slices.Equal(got, []string{"b", "a"}) {
		t.Fatalf("todo = %v, want [b a]", got)
	}
	if len(store.updateCalls()) != 0 {
		t.Fatalf("reorder issued store calls: %#v", store.updateCalls())
	}
	if m.status != `reordered "Write docs"` {
		t.Fatalf("status = %q", m.status)
	}
}

// TestModelMouseDragMovesItem verifies press, motion and release across columns.
func TestModelMouseDragMovesItem(t *testing.T) {
	store := newFakeStore(testRecords()...)
	m := newTestModel(t, store)

	// Columns are 49 cells wide; the first card starts at row boardTop+headerRows.
	m = applyMsg(t, m, tea.MouseClickMsg{X: 5, Y: 5, Button: tea.MouseLeft})
	if m.state.engine.DragState() != app.DragArmed {
		t.Fatalf("drag state = %s, want armed", m.state.engine.DragState())
	}
	m = applyMsg(t, m, tea.MouseMotionMsg{X: 60, Y: 5, Button: tea.MouseLeft})
	if m.state.engine.DragState() != app.DragDragging {
		t.Fatalf("drag state = %s, want dragging", m.state.engine.DragState())
	}
	m = applyMsg(t, m, tea.MouseReleaseMsg{X: 60, Y: 5, Button: tea.MouseLeft})

	calls := store.updateCalls()
	if len(calls) != 1 || calls[0].ItemID != "a" || calls[0].Status != "DONE" {
		t.Fatalf("update calls = %#v", calls)
	}
	if got := columnOf(m, "done"); !slices.Equal(got, []string{"a", "c"}) {
		t.Fatalf("done = %v, want [a c]", got)
	}
}

// TestModelMouseClickSelectsWithoutMoving verifies a press and release without motion is a click.
func TestModelMouseClickSelectsWithoutMoving(t *testing.T) {
	store := newFakeStore(testRecords()...)
	m := newTestModel(t, store)

	m = applyMsg(t, m, tea.MouseClickMsg{X: 10, Y: 8, Button: tea.MouseLeft})
	m = applyMsg(t, m, tea.MouseReleaseMsg{X: 10, Y: 8, Button: tea.MouseLeft})

	if m.selected != "b" {
		t.Fatalf("selected = %q, want b", m.selected)
	}
	if m.state.engine.DragState() != app.DragIdle {
		t.Fatalf("drag state = %s, want idle", m.state.engine.DragState())
	}
	if len(store.updateCalls()) != 0 {
		t.Fatalf("click issued store calls: %#v", store.updateCalls())
	}
}

// TestModelCommitFailureResyncs verifies a rejected move shows the notice and restores the store view.
func TestModelCommitFailureResyncs(t *testing.T) {
	store := newFakeStore(testRecords()...)
	store.updateErr = errors.New("backend down")
	m := newTestModel(t, store)

	m = applyMsg(t, m, keySpace())
	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, keySpace())

	if m.state.notice != "sync failed, refreshing" {
		t.Fatalf("notice = %q", m.state.notice)
	}
	if got := columnOf(m, "todo"); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("todo = %v, want [a b] after resync", got)
	}
	if view := m.renderBoard(); !strings.Contains(view, "sync failed, refreshing") {
		t.Fatalf("notice not rendered\n%s", view)
	}

	m = applyMsg(t, m, keySpace())
	if m.state.notice != "" {
		t.Fatalf("notice not cleared by the next gesture: %q", m.state.notice)
	}
}

// TestModelBlurCancelsDrag verifies losing focus abandons the gesture.
func TestModelBlurCancelsDrag(t *testing.T) {
	store := newFakeStore(testRecords()...)
	m := newTestModel(t, store)

	m = applyMsg(t, m, keySpace())
	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, tea.BlurMsg{})

	if m.state.engine.DragState() != app.DragIdle {
		t.Fatalf("drag state = %s, want idle", m.state.engine.DragState())
	}
	if got := columnOf(m, "todo"); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("todo = %v, want [a b]", got)
	}
}

// TestModelGroupedViewIsReadOnly verifies regrouping and that drags are refused off the stage view.
func TestModelGroupedViewIsReadOnly(t *testing.T) {
	store := newFakeStore(testRecords()...)
	m := newTestModel(t, store)

	m = applyMsg(t, m, keyRune('g'))
	if m.groupBy != app.GroupCategory {
		t.Fatalf("groupBy = %q, want category", m.groupBy)
	}
	view := m.renderBoard()
	for _, want := range []string{"grouped: category", "bugs", "docs", app.NoneGroup} {
		if !strings.Contains(view, want) {
			t.Fatalf("grouped view missing %q\n%s", want, view)
		}
	}

	m = applyMsg(t, m, keySpace())
	if m.state.engine.DragState() != app.DragIdle {
		t.Fatal("drag started in a grouped view")
	}
	if m.status != "items can only be moved in the stage view" {
		t.Fatalf("status = %q", m.status)
	}

	m = applyMsg(t, m, tea.MouseClickMsg{X: 5, Y: 5, Button: tea.MouseLeft})
	if m.state.engine.DragState() != app.DragIdle {
		t.Fatal("mouse drag armed in a grouped view")
	}
}

// TestModelRegroupRefusedWhileCarrying verifies the projection stays put during a drag.
func TestModelRegroupRefusedWhileCarrying(t *testing.T) {
	m := newTestModel(t, newFakeStore(testRecords()...))

	m = applyMsg(t, m, keySpace())
	m = applyMsg(t, m, keyRune('g'))
	if m.groupBy != app.GroupStage {
		t.Fatalf("groupBy = %q during drag", m.groupBy)
	}
}

// TestModelDetailLoadsHistory verifies the detail panel fetches status history.
func TestModelDetailLoadsHistory(t *testing.T) {
	store := newFakeStore(testRecords()...)
	store.events["a"] = []domain.StatusEvent{
		{ID: 1, TaskID: "a", Operation: domain.ChangeOperationCreate, ToStatus: "TODO", OccurredAt: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)},
	}
	m := newTestModel(t, store, WithHistory(store))

	m = applyMsg(t, m, keyRune('i'))
	if !m.detail.open || m.detail.itemID != "a" {
		t.Fatalf("detail = %#v", m.detail)
	}
	if m.detail.loading || len(m.detail.events) != 1 {
		t.Fatalf("history not loaded: %#v", m.detail)
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.detail.open {
		t.Fatal("esc did not close the detail panel")
	}
}

// TestModelDetailHistoryError verifies a failed history load is kept for display.
func TestModelDetailHistoryError(t *testing.T) {
	store := newFakeStore(testRecords()...)
	store.eventsErr = errors.New("offline")
	m := newTestModel(t, store, WithHistory(store))

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.detail.err == nil || m.detail.loading {
		t.Fatalf("detail = %#v", m.detail)
	}
	doc := itemDocument(domain.Item{ID: "a", Title: "Write docs", Priority: domain.PriorityHigh}, testStages().First(), nil, m.detail.err)
	if !strings.Contains(doc, "_unavailable: offline_") {
		t.Fatalf("document = %q", doc)
	}
}

// TestModelCopyID verifies the clipboard receives the selected id.
func TestModelCopyID(t *testing.T) {
	var copied string
	m := newTestModel(t, newFakeStore(testRecords()...), WithClipboard(func(text string) error {
		copied = text
		return nil
	}))

	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('y'))
	if copied != "b" || m.status != "copied b" {
		t.Fatalf("copied = %q status = %q", copied, m.status)
	}
}

// TestModelQuit verifies q returns the quit command.
func TestModelQuit(t *testing.T) {
	m := newTestModel(t, newFakeStore(testRecords()...))
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

// TestItemAtMatchesEngineLayout verifies screen hit-testing agrees with the drag geometry.
func TestItemAtMatchesEngineLayout(t *testing.T) {
	m := newTestModel(t, newFakeStore(testRecords()...))
	layout := m.state.engine.Layout()

	for _, cell := range []struct{ x, y int }{{0, 5}, {48, 6}, {49, 5}, {50, 5}, {10, 7}, {10, 8}, {70, 9}, {3, 2}} {
		_, gotID, gotOK := m.itemAt(cell.x, cell.y)
		wantID, wantOK := layout.CardAt(pointAt(cell.x, cell.y))
		if gotID != wantID || gotOK != wantOK {
			t.Fatalf("cell %v: itemAt = %q,%v layout = %q,%v", cell, gotID, gotOK, wantID, wantOK)
		}
	}
}

// TestPadRight verifies cells are padded and truncated to an exact width.
func TestPadRight(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{in: "abc", width: 5, want: "abc  "},
		{in: "abcdef", width: 4, want: "abc…"},
		{in: "abc", width: 0, want: ""},
	}
	for _, tc := range cases {
		if got := padRight(tc.in, tc.width); got != tc.want {
			t.Fatalf("padRight(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

// TestModelRebindsPickUpKey verifies configured bindings replace the defaults.
func TestModelRebindsPickUpKey(t *testing.T) {
	store := newFakeStore(testRecords()...)
	m := newTestModel(t, store, WithKeyConfig(KeyConfig{PickUp: "p"}))

	m = applyMsg(t, m, keySpace())
	if m.state.engine.DragState() == app.DragDragging {
		t.Fatal("space still picks up after rebinding")
	}
	m = applyMsg(t, m, keyRune('p'))
	if m.state.engine.DragState() != app.DragDragging {
		t.Fatalf("drag state = %s, want dragging", m.state.engine.DragState())
	}
	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, keyRune('p'))
	calls := store.updateCalls()
	if len(calls) != 1 || calls[0] != (statusCall{ItemID: "a", Status: "DONE"}) {
		t.Fatalf("update calls = %#v", calls)
	}
}
