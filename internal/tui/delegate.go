package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/livetodo/internal/model"
)

// todoItem adapts a model.Todo to bubbles/list.Item.
type todoItem struct {
	todo model.Todo
}

func (i todoItem) Title() string       { return i.todo.Task }
func (i todoItem) Description() string { return "" }
func (i todoItem) FilterValue() string { return i.todo.Task }

// itemDelegate renders one todo per line: cursor, checkbox, task.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(todoItem)
	if !ok {
		return
	}
	fmt.Fprintln(w, renderRow(it.todo, index == m.Index()))
}

// renderRow draws a record; done rows get a checked box and struck-through text.
func renderRow(t model.Todo, selected bool) string {
	checked, unchecked := boxes()
	box := mutedStyle.Render(unchecked)
	text := t.Task
	if t.Done {
		box = successStyle.Render(checked)
		text = doneStyle.Render(t.Task)
	}
	prefix := "  "
	if selected {
		prefix = selectedStyle.Render("> ")
	}
	return prefix + box + " " + text
}
