package tui

import (
	"context"

	tea "charm.land/bubbletea/v2"
)

// dispatchDoneMsg carries one finished store call back into Update.
type dispatchDoneMsg struct {
	done func(error)
	err  error
}

// cmdDispatcher turns engine store calls into tea commands. Calls queue during Update and
// are flushed as one batch; completions re-enter through dispatchDoneMsg.
type cmdDispatcher struct {
	ctx     context.Context
	pending []tea.Cmd
}

func newCmdDispatcher(ctx context.Context) *cmdDispatcher {
	if ctx == nil {
		ctx = context.Background()
	}
	return &cmdDispatcher{ctx: ctx}
}

// Go implements app.Dispatcher.
func (d *cmdDispatcher) Go(call func(context.Context) error, done func(error)) {
	ctx := d.ctx
	d.pending = append(d.pending, func() tea.Msg {
		return dispatchDoneMsg{done: done, err: call(ctx)}
	})
}

// flush returns every queued call as one command.
func (d *cmdDispatcher) flush() tea.Cmd {
	if len(d.pending) == 0 {
		return nil
	}
	cmds := d.pending
	d.pending = nil
	return tea.Batch(cmds...)
}
