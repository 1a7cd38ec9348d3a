package app

import (
	"context"
	"sync"
)

// Dispatcher runs call off the event loop and re-enters the loop with done.
// done always runs on the loop goroutine, never concurrently with engine methods.
type Dispatcher interface {
	Go(call func(context.Context) error, done func(error))
}

// Loop is a single-goroutine event queue for headless engine use.
type Loop struct {
	ctx      context.Context
	mu       sync.Mutex
	queue    []func()
	inflight int
	wake     chan struct{}
}

// NewLoop constructs a loop whose background calls receive ctx.
func NewLoop(ctx context.Context) *Loop {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Loop{
		ctx:  ctx,
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues fn to run on the loop goroutine.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Go implements Dispatcher.
func (l *Loop) Go(call func(context.Context) error, done func(error)) {
	l.mu.Lock()
	l.inflight++
	l.mu.Unlock()
	go func() {
		err := call(l.ctx)
		l.Post(func() {
			l.mu.Lock()
			l.inflight--
			l.mu.Unlock()
			if done != nil {
				done(err)
			}
		})
	}()
}

// Run processes callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if fn, _ := l.take(); fn != nil {
			fn()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Drain processes callbacks until the queue is empty and no background call is outstanding.
func (l *Loop) Drain(ctx context.Context) error {
	for {
		fn, busy := l.take()
		if fn != nil {
			fn()
			continue
		}
		if !busy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) take() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, l.inflight > 0
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}
