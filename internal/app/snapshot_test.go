package app

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hylla/stageboard/internal/domain"
)

func TestBoardFromRecordsKeepsStoreOrderPerStage(t *testing.T) {
	board, skipped, err := BoardFromRecords(threeStages(), []domain.TaskRecord{
		rec("T1", "Done"),
		rec("T2", "backlog"),
		rec("T3", "Todo"),
		rec("T4", "Backlog"),
	})
	if err != nil {
		t.Fatalf("BoardFromRecords() error = %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped records %#v", skipped)
	}
	want := map[domain.StageID][]string{
		"backlog": {"T2", "T4"},
		"todo":    {"T3"},
		"done":    {"T1"},
	}
	if got := board.Layout(); !reflect.DeepEqual(got, want) {
		t.Fatalf("layout = %#v, want %#v", got, want)
	}
	if err := board.CheckInvariant(); err != nil {
		t.Fatalf("CheckInvariant() error = %v", err)
	}
}

func TestBoardFromRecordsSkipsBadRecords(t *testing.T) {
	noTitle := rec("T5", "Backlog")
	noTitle.Title = "  "
	badPriority := rec("T6", "Backlog")
	badPriority.Priority = "urgent"

	board, skipped, err := BoardFromRecords(twoStages(), []domain.TaskRecord{
		rec("T1", "Backlog"),
		rec("T2", "Archived"),
		rec("T1", "Done"),
		noTitle,
		badPriority,
	})
	if err != nil {
		t.Fatalf("BoardFromRecords() error = %v", err)
	}
	if board.Len() != 1 {
		t.Fatalf("expected one placed item, got %d", board.Len())
	}
	if len(skipped) != 4 {
		t.Fatalf("expected 4 skipped records, got %#v", skipped)
	}
	cases := []struct {
		id      string
		want    error
		unknown bool
	}{
		{id: "T2", want: domain.ErrUnknownStage, unknown: true},
		{id: "T1", want: domain.ErrDuplicateItem},
		{id: "T5", want: domain.ErrInvalidTitle},
		{id: "T6", want: domain.ErrInvalidPriority},
	}
	for i, tc := range cases {
		got := skipped[i]
		if got.Record.ID != tc.id || !errors.Is(got.Err, tc.want) {
			t.Fatalf("skipped[%d] = %s/%v, want %s/%v", i, got.Record.ID, got.Err, tc.id, tc.want)
		}
		if got.unknownStatus() != tc.unknown {
			t.Fatalf("skipped[%d].unknownStatus() = %v", i, got.unknownStatus())
		}
	}
}

func TestBoardFromRecordsEmptySnapshot(t *testing.T) {
	board, skipped, err := BoardFromRecords(twoStages(), nil)
	if err != nil {
		t.Fatalf("BoardFromRecords() error = %v", err)
	}
	if board.Len() != 0 || len(skipped) != 0 {
		t.Fatalf("expected empty board, got len=%d skipped=%d", board.Len(), len(skipped))
	}
	if got := board.Column("done"); len(got) != 0 {
		t.Fatalf("expected empty done column, got %#v", got)
	}
}
