package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoopDrainRunsCompletionsOnCaller(t *testing.T) {
	loop := NewLoop(context.Background())
	var calls atomic.Int32
	var order []string

	loop.Post(func() { order = append(order, "posted") })
	loop.Go(func(context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	}, func(err error) {
		order = append(order, "done:"+err.Error())
		loop.Go(func(context.Context) error { return nil }, func(error) {
			order = append(order, "chained")
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := loop.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one background call, got %d", calls.Load())
	}
	want := []string{"posted", "done:boom", "chained"}
	if len(order) != len(want) {
		t.Fatalf("unexpected order %v", order)
	}
	for idx := range want {
		if order[idx] != want[idx] {
			t.Fatalf("unexpected order %v", order)
		}
	}
}

func TestLoopRunStopsOnCancel(t *testing.T) {
	loop := NewLoop(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{})
	loop.Post(func() {
		close(ran)
		cancel()
	})
	if err := loop.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	select {
	case <-ran:
	default:
		t.Fatal("expected posted callback to run")
	}
}
