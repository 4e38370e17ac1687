package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/livetodo/internal/editor"
	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/remote"
)

// Results of remote calls. Each carries what the reconciler needs to apply it.
type (
	fetchedMsg struct {
		todos []model.Todo
		err   error
	}
	submittedMsg struct {
		intent editor.Intent
		todo   model.Todo
		err    error
	}
	toggledMsg struct {
		id   int64
		todo model.Todo
		err  error
	}
	deletedMsg struct {
		id  int64
		err error
	}
	feedMsg struct {
		ev model.Event
	}
	feedClosedMsg struct {
		err error
	}
	toastExpiredMsg struct {
		seq int
	}
)

// caller runs remote calls off the update loop, each with its own timeout.
// Nothing cancels a call once started.
type caller struct {
	store   remote.Store
	timeout time.Duration
}

func (c caller) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

func (c caller) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := c.ctx()
		defer cancel()
		todos, err := c.store.Fetch(ctx)
		return fetchedMsg{todos: todos, err: err}
	}
}

func (c caller) submit(in editor.Intent) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := c.ctx()
		defer cancel()
		var (
			t   model.Todo
			err error
		)
		switch in.Kind {
		case editor.IntentInsert:
			t, err = c.store.Insert(ctx, in.Task)
		case editor.IntentUpdate:
			t, err = c.store.Update(ctx, in.ID, model.TaskPatch(in.Task))
		}
		return submittedMsg{intent: in, todo: t, err: err}
	}
}

func (c caller) toggle(t model.Todo) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := c.ctx()
		defer cancel()
		got, err := c.store.Update(ctx, t.ID, model.DonePatch(!t.Done))
		return toggledMsg{id: t.ID, todo: got, err: err}
	}
}

func (c caller) remove(id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := c.ctx()
		defer cancel()
		return deletedMsg{id: id, err: c.store.Delete(ctx, id)}
	}
}

// waitForEvent delivers the next feed event. Update re-arms it after each one.
func waitForEvent(sub remote.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.Events()
		if !ok {
			return feedClosedMsg{err: sub.Err()}
		}
		return feedMsg{ev: ev}
	}
}

func expireToast(seq int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })
}
