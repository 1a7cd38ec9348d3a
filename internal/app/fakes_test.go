package app

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/hylla/stageboard/internal/collision"
	"github.com/hylla/stageboard/internal/domain"
)

// statusCall records one UpdateStatus invocation.
type statusCall struct {
	ItemID string
	Status string
}

// fakeStore is an in-memory TaskStore.
type fakeStore struct {
	mu        sync.Mutex
	records   []domain.TaskRecord
	updateErr map[string]error
	listErr   error
	updates   []statusCall
	lists     int
}

func newFakeStore(records ...domain.TaskRecord) *fakeStore {
	return &fakeStore{records: records, updateErr: map[string]error{}}
}

func (f *fakeStore) ListTasks(_ context.Context, _ string) ([]domain.TaskRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.records), nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, itemID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, statusCall{ItemID: itemID, Status: status})
	if err := f.updateErr[itemID]; err != nil {
		return err
	}
	for idx := range f.records {
		if f.records[idx].ID == itemID {
			f.records[idx].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) setRecords(records ...domain.TaskRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
}

func (f *fakeStore) updateCalls() []statusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.updates)
}

func (f *fakeStore) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

// manualDispatcher queues background calls until the test resolves them.
type manualDispatcher struct {
	calls []pendingCall
}

type pendingCall struct {
	call func(context.Context) error
	done func(error)
}

func (d *manualDispatcher) Go(call func(context.Context) error, done func(error)) {
	d.calls = append(d.calls, pendingCall{call: call, done: done})
}

func (d *manualDispatcher) Len() int {
	return len(d.calls)
}

// Start runs the call at idx now and returns a func that delivers its completion.
func (d *manualDispatcher) Start(t *testing.T, idx int) func() {
	t.Helper()
	if idx < 0 || idx >= len(d.calls) {
		t.Fatalf("no pending call at %d (have %d)", idx, len(d.calls))
	}
	pc := d.calls[idx]
	d.calls = slices.Delete(d.calls, idx, idx+1)
	err := pc.call(context.Background())
	return func() { pc.done(err) }
}

// Resolve runs and completes the call at idx.
func (d *manualDispatcher) Resolve(t *testing.T, idx int) {
	t.Helper()
	d.Start(t, idx)()
}

// ResolveAll completes queued calls in FIFO order, including calls queued by completions.
func (d *manualDispatcher) ResolveAll(t *testing.T) {
	t.Helper()
	for d.Len() > 0 {
		d.Resolve(t, 0)
	}
}

func twoStages() domain.StageSet {
	return domain.MustStageSet(
		domain.Stage{ID: "backlog", Name: "Backlog", Status: "Backlog"},
		domain.Stage{ID: "done", Name: "Done", Status: "Done"},
	)
}

func threeStages() domain.StageSet {
	return domain.MustStageSet(
		domain.Stage{ID: "backlog", Name: "Backlog", Status: "Backlog"},
		domain.Stage{ID: "todo", Name: "To Do", Status: "Todo", WIPLimit: 1},
		domain.Stage{ID: "done", Name: "Done", Status: "Done"},
	)
}

func rec(id, status string) domain.TaskRecord {
	return domain.TaskRecord{ID: id, Title: "Task " + id, Status: status}
}

// testGrid places columns at x=0,110,220 (width 100) and cards at y=20,70,120 (height 40).
func testGrid() collision.Grid {
	return collision.Grid{ColumnWidth: 100, ColumnGap: 10, HeaderHeight: 20, CardHeight: 40, CardGap: 10, ColumnHeight: 400}
}

func sequentialTokens() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("tok-%d", n)
	}
}

func fixedClock() Clock {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

// engineHarness wires an engine to a fake store and manual dispatcher and loads the board.
type engineHarness struct {
	engine   *Engine
	store    *fakeStore
	dispatch *manualDispatcher
	changes  int
	notices  []SyncNotice
}

func newEngineHarness(t *testing.T, stages domain.StageSet, records ...domain.TaskRecord) *engineHarness {
	t.Helper()
	h := &engineHarness{store: newFakeStore(records...), dispatch: &manualDispatcher{}}
	grid := testGrid()
	engine, err := NewEngine(EngineConfig{
		Scope:            "main",
		Stages:           stages,
		Store:            h.store,
		Dispatcher:       h.dispatch,
		Layout:           func(b *domain.Board) collision.Layout { return grid.Layout(b) },
		DragThreshold:    4,
		StrictInvariants: true,
		NewToken:         sequentialTokens(),
		Clock:            fixedClock(),
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	engine.OnBoardChanged(func(*domain.Board) { h.changes++ })
	engine.OnSyncNotice(func(n SyncNotice) { h.notices = append(h.notices, n) })
	engine.Refresh()
	h.dispatch.ResolveAll(t)
	h.changes = 0
	h.engine = engine
	return h
}

func assertLayout(t *testing.T, board *domain.Board, want map[domain.StageID][]string) {
	t.Helper()
	for _, stage := range board.Stages() {
		got := board.Column(stage.ID)
		if !slices.Equal(got, want[stage.ID]) && (len(got) != 0 || len(want[stage.ID]) != 0) {
			t.Fatalf("column %q = %v, want %v", stage.ID, got, want[stage.ID])
		}
	}
	if err := board.CheckInvariant(); err != nil {
		t.Fatalf("CheckInvariant() error = %v", err)
	}
}
