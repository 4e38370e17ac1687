package tui

import (
	"context"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/remote/remotetest"
)

func newTestModel(t *testing.T, f *remotetest.Fake) Model {
	t.Helper()
	m := New(f, nil, Options{Timeout: time.Second})
	return step(t, m, m.call.fetch()())
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// typeText sends each rune to the focused input.
func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(keyPress(k))
	return next.(Model), cmd
}

func TestLoadingUntilFetch(t *testing.T) {
	m := New(remotetest.NewFake(), nil, Options{})
	assert.True(t, m.Loading())
	assert.Contains(t, m.View(), "Loading todos")

	m = step(t, m, fetchedMsg{todos: []model.Todo{{ID: 1, Task: "a"}}})
	assert.False(t, m.Loading())
	assert.NotContains(t, m.View(), "Loading todos")
}

func TestRendersRowsInOrderWithDoneStruck(t *testing.T) {
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() { lipgloss.SetColorProfile(termenv.Ascii) })

	f := remotetest.NewFake(
		model.Todo{ID: 1, Task: "alpha"},
		model.Todo{ID: 2, Task: "bravo", Done: true},
		model.Todo{ID: 3, Task: "charlie"},
	)
	m := newTestModel(t, f)

	out := ansi.Strip(m.View())
	a := strings.Index(out, "alpha")
	b := strings.Index(out, "bravo")
	c := strings.Index(out, "charlie")
	require.True(t, a >= 0 && b >= 0 && c >= 0, out)
	assert.Less(t, a, b)
	assert.Less(t, b, c)

	struck := regexp.MustCompile(`\x1b\[(?:[0-9;]*;)?9m`)
	assert.Regexp(t, struck, renderRow(model.Todo{ID: 2, Task: "bravo", Done: true}, false))
	assert.NotRegexp(t, struck, renderRow(model.Todo{ID: 1, Task: "alpha"}, false))
}

func TestFetchFailureLeavesListEmpty(t *testing.T) {
	f := remotetest.NewFake(model.Todo{ID: 1, Task: "a"})
	f.Fail["fetch"] = true
	m := newTestModel(t, f)

	assert.False(t, m.Loading())
	assert.Empty(t, m.Todos())
	assert.Equal(t, "Failed to load todos", m.Toast())
}

func TestBlankSubmitMakesNoCall(t *testing.T) {
	f := remotetest.NewFake()
	m := newTestModel(t, f)

	m, _ = press(t, m, "a")
	m = typeText(t, m, "   ")
	m, cmd := press(t, m, "enter")

	require.NotNil(t, cmd)
	assert.Equal(t, []string{"fetch"}, f.Calls())
	assert.Equal(t, "Task cannot be empty", m.Toast())
	assert.Empty(t, m.Todos())
}

func TestAddAppendsConfirmedRecord(t *testing.T) {
	f := remotetest.NewFake(model.Todo{ID: 1, Task: "first"})
	m := newTestModel(t, f)

	m, _ = press(t, m, "a")
	m = typeText(t, m, "  milk ")
	assert.Contains(t, m.View(), "Add todo")

	m, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)
	// nothing changes before the response
	assert.Len(t, m.Todos(), 1)

	m = step(t, m, cmd())
	assert.Equal(t, []model.Todo{{ID: 1, Task: "first"}, {ID: 2, Task: "milk"}}, m.Todos())
	assert.Equal(t, "", m.Editor().Text())
	assert.Equal(t, "Todo added", m.Toast())

	// the echo of the same insert does not duplicate it
	m = step(t, m, feedMsg{ev: model.Event{Type: model.EventInsert, New: &model.Todo{ID: 2, Task: "milk"}}})
	assert.Len(t, m.Todos(), 2)
}

func TestFailedAddKeepsText(t *testing.T) {
	f := remotetest.NewFake()
	f.Fail["insert"] = true
	m := newTestModel(t, f)

	m, _ = press(t, m, "a")
	m = typeText(t, m, "milk")
	m, cmd := press(t, m, "enter")
	m = step(t, m, cmd())

	assert.Empty(t, m.Todos())
	assert.Equal(t, "milk", m.Editor().Text())
	assert.Equal(t, "Failed to add todo", m.Toast())
}

func TestEditReplacesInPlace(t *testing.T) {
	f := remotetest.NewFake(
		model.Todo{ID: 1, Task: "one"},
		model.Todo{ID: 2, Task: "two"},
	)
	m := newTestModel(t, f)

	m, _ = press(t, m, "e")
	id, editing := m.Editor().EditingID()
	require.True(t, editing)
	assert.Equal(t, int64(1), id)
	assert.Contains(t, m.View(), "Edit todo")

	m = typeText(t, m, "!")
	m, cmd := press(t, m, "enter")
	m = step(t, m, cmd())

	assert.Equal(t, []model.Todo{{ID: 1, Task: "one!"}, {ID: 2, Task: "two"}}, m.Todos())
	assert.False(t, m.Editor().Editing())
	assert.Equal(t, "", m.Editor().Text())
}

func TestEscCancelsEdit(t *testing.T) {
	m := newTestModel(t, remotetest.NewFake(model.Todo{ID: 1, Task: "one"}))

	m, _ = press(t, m, "e")
	m, _ = press(t, m, "esc")
	assert.False(t, m.Editor().Editing())
	assert.NotContains(t, m.View(), "Edit todo")
}

func TestToggle(t *testing.T) {
	f := remotetest.NewFake(model.Todo{ID: 1, Task: "one"})
	m := newTestModel(t, f)

	m, cmd := press(t, m, " ")
	require.NotNil(t, cmd)
	m = step(t, m, cmd())

	assert.True(t, m.Todos()[0].Done)
	assert.Equal(t, "Todo updated", m.Toast())
}

func TestFailedToggleLeavesRecord(t *testing.T) {
	f := remotetest.NewFake(model.Todo{ID: 1, Task: "one"})
	f.Fail["update"] = true
	m := newTestModel(t, f)

	m, cmd := press(t, m, " ")
	m = step(t, m, cmd())

	assert.Equal(t, []model.Todo{{ID: 1, Task: "one"}}, m.Todos())
	assert.Equal(t, "Failed to update todo", m.Toast())
}

func TestDelete(t *testing.T) {
	f := remotetest.NewFake(model.Todo{ID: 1, Task: "one"}, model.Todo{ID: 2, Task: "two"})
	m := newTestModel(t, f)

	m, cmd := press(t, m, "d")
	m = step(t, m, cmd())
	assert.Equal(t, []model.Todo{{ID: 2, Task: "two"}}, m.Todos())

	// echo of the delete is a no-op
	m = step(t, m, feedMsg{ev: model.Event{Type: model.EventDelete, Old: &model.Todo{ID: 1}}})
	assert.Len(t, m.Todos(), 1)
}

func TestFeedEventsFromOtherClients(t *testing.T) {
	f := remotetest.NewFake(
		model.Todo{ID: 1, Task: "one"},
		model.Todo{ID: 2, Task: "two"},
		model.Todo{ID: 3, Task: "three"},
	)
	m := newTestModel(t, f)

	m = step(t, m, feedMsg{ev: model.Event{Type: model.EventDelete, Old: &model.Todo{ID: 2}}})
	m = step(t, m, feedMsg{ev: model.Event{Type: model.EventUpdate, New: &model.Todo{ID: 3, Task: "three", Done: true}}})
	m = step(t, m, feedMsg{ev: model.Event{Type: "TRUNCATE"}})

	assert.Equal(t, []model.Todo{{ID: 1, Task: "one"}, {ID: 3, Task: "three", Done: true}}, m.Todos())
}

func TestFeedPumpDeliversAndReportsLoss(t *testing.T) {
	f := remotetest.NewFake()
	sub, err := f.Subscribe(context.Background())
	require.NoError(t, err)

	f.Emit(model.Event{Type: model.EventInsert, New: &model.Todo{ID: 9, Task: "remote"}})
	msg := waitForEvent(sub)()
	require.IsType(t, feedMsg{}, msg)
	assert.Equal(t, int64(9), msg.(feedMsg).ev.New.ID)

	require.NoError(t, sub.Close())
	assert.Equal(t, feedClosedMsg{}, waitForEvent(sub)())

	m := newTestModel(t, f)
	m = step(t, m, feedClosedMsg{err: assert.AnError})
	assert.Equal(t, "Live updates unavailable", m.Toast())
}

func TestToastExpiresBySequence(t *testing.T) {
	f := remotetest.NewFake()
	f.Fail["fetch"] = true
	m := newTestModel(t, f)
	seq := m.toast.seq

	m = step(t, m, toastExpiredMsg{seq: seq - 1})
	assert.NotEmpty(t, m.Toast())
	m = step(t, m, toastExpiredMsg{seq: seq})
	assert.Empty(t, m.Toast())
}

func TestRunClosesSubscription(t *testing.T) {
	f := remotetest.NewFake()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, f, Options{}, tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutRenderer())
	require.NoError(t, err)
	require.NotNil(t, f.Sub())
	assert.True(t, f.Sub().Closed())
}

func TestRunWithoutFeed(t *testing.T) {
	f := remotetest.NewFake()
	f.Fail["subscribe"] = true
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := Run(ctx, f, Options{}, tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutRenderer())
	require.NoError(t, err)
	assert.Nil(t, f.Sub())
}

func TestToastResizesList(t *testing.T) {
	f := remotetest.NewFake()
	f.Fail["fetch"] = true
	m := New(f, nil, Options{Timeout: time.Second})
	m = step(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	full := m.list.Height()

	m = step(t, m, m.call.fetch()())
	require.NotEmpty(t, m.Toast())
	assert.Equal(t, full-1, m.list.Height())

	m = step(t, m, toastExpiredMsg{seq: m.toast.seq})
	assert.Empty(t, m.Toast())
	assert.Equal(t, full, m.list.Height())
}
