// Package tui is the interactive todo screen.
//
// Every remote call runs as a tea.Cmd; its result comes back as a message and
// is applied to the reconciler inside Update, which is the only place the
// list changes. Realtime events arrive the same way, one at a time.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/livetodo/internal/editor"
	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/reconcile"
	"github.com/idilsaglam/livetodo/internal/remote"
	"github.com/idilsaglam/livetodo/internal/ui"
)

const (
	toastTTL       = 4 * time.Second
	defaultTimeout = 10 * time.Second
)

// Options configure the screen.
type Options struct {
	Timeout time.Duration // per remote call
	Logger  *slog.Logger

	// SubscribeErr is shown once when the feed could not be opened.
	SubscribeErr error
}

type toast struct {
	text string
	ok   bool
	seq  int
}

// Model is the Bubble Tea model of the todo screen.
type Model struct {
	call caller
	sub  remote.Subscription
	log  *slog.Logger

	rec *reconcile.Reconciler
	ed  editor.Controller

	list    list.Model
	input   textinput.Model
	spinner spinner.Model
	keys    keyMap

	loading     bool
	inputActive bool
	toast       toast
	subErr      error

	width, height int
}

// New builds the screen. sub may be nil when live updates are unavailable.
func New(store remote.Store, sub remote.Subscription, opts Options) Model {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	applyTheme(ui.Current())
	keys := newKeyMap()

	l := list.New(nil, itemDelegate{}, 80, 20)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")
	l.AdditionalShortHelpKeys = keys.extra
	l.AdditionalFullHelpKeys = keys.extra
	// q and esc are handled here, not by the list.
	l.KeyMap.Quit.SetEnabled(false)

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Add a new task"
	ti.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	m := Model{
		call:    caller{store: store, timeout: opts.Timeout},
		sub:     sub,
		log:     opts.Logger,
		rec:     reconcile.New(),
		list:    l,
		input:   ti,
		spinner: sp,
		keys:    keys,
		loading: true,
		subErr:  opts.SubscribeErr,
		width:   80,
		height:  24,
	}
	m.list.Title = m.header()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.call.fetch()}
	if m.sub != nil {
		cmds = append(cmds, waitForEvent(m.sub))
	}
	if m.subErr != nil {
		err := m.subErr
		cmds = append(cmds, func() tea.Msg { return feedClosedMsg{err: err} })
	}
	return tea.Batch(cmds...)
}

// Todos is the current cached list.
func (m Model) Todos() []model.Todo { return m.rec.Todos() }

// Editor is a copy of the input/edit state.
func (m Model) Editor() *editor.Controller {
	ed := m.ed
	return &ed
}

// Toast is the visible notification text, if any.
func (m Model) Toast() string { return m.toast.text }

// Loading reports whether the initial fetch is still in flight.
func (m Model) Loading() bool { return m.loading }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case fetchedMsg:
		m.loading = false
		if msg.err != nil {
			m.log.Warn("fetch failed", "err", msg.err)
			return m, m.notify(false, "Failed to load todos")
		}
		m.rec.ApplyFetchResult(msg.todos)
		return m, m.refresh()

	case submittedMsg:
		return m.applySubmitted(msg)

	case toggledMsg:
		if msg.err != nil {
			m.log.Warn("toggle failed", "id", msg.id, "err", msg.err)
			return m, m.notify(false, "Failed to update todo")
		}
		m.rec.ApplyToggle(msg.id, msg.todo)
		return m, tea.Batch(m.refresh(), m.notify(true, "Todo updated"))

	case deletedMsg:
		if msg.err != nil {
			m.log.Warn("delete failed", "id", msg.id, "err", msg.err)
			return m, m.notify(false, "Failed to delete todo")
		}
		m.rec.ApplyDelete(msg.id)
		return m, tea.Batch(m.refresh(), m.notify(true, "Todo deleted"))

	case feedMsg:
		applied := m.rec.ApplyEvent(msg.ev)
		m.log.Debug("feed event", "type", msg.ev.Type, "applied", applied)
		next := waitForEvent(m.sub)
		if !applied {
			return m, next
		}
		return m, tea.Batch(m.refresh(), next)

	case feedClosedMsg:
		m.sub = nil
		if msg.err == nil {
			return m, nil
		}
		m.log.Warn("live updates unavailable", "err", msg.err)
		return m, m.notify(false, "Live updates unavailable")

	case toastExpiredMsg:
		if msg.seq == m.toast.seq {
			m.toast.text = ""
			m.resize()
		}
		return m, nil

	case tea.KeyMsg:
		if m.inputActive {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) applySubmitted(msg submittedMsg) (tea.Model, tea.Cmd) {
	in := msg.intent
	if msg.err != nil {
		m.log.Warn("submit failed", "kind", in.Kind, "id", in.ID, "err", msg.err)
		if in.Kind == editor.IntentUpdate {
			return m, m.notify(false, "Failed to edit todo")
		}
		return m, m.notify(false, "Failed to add todo")
	}

	label := "Todo added"
	if in.Kind == editor.IntentUpdate {
		m.rec.ApplyUpdate(in.ID, msg.todo)
		label = "Todo edited"
	} else {
		m.rec.ApplyInsert(msg.todo)
	}
	m.ed.Succeeded(in)
	if m.inputActive {
		m.input.SetValue(m.ed.Text())
		if m.ed.Text() == "" && !m.ed.Editing() {
			m.closeInput()
		}
	}
	return m, tea.Batch(m.refresh(), m.notify(true, label))
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, m.keys.Submit):
		m.ed.SetText(m.input.Value())
		in, err := m.ed.Submit()
		if err != nil {
			return m, m.notify(false, "Task cannot be empty")
		}
		return m, m.call.submit(in)
	case key.Matches(msg, m.keys.Cancel):
		m.ed.Cancel()
		m.closeInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ed.SetText(m.input.Value())
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	if msg.String() == "esc" && m.list.FilterState() == list.FilterApplied {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Add):
		m.ed.Cancel()
		return m, m.openInput("Add a new task")
	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.selected(); ok {
			m.ed.BeginEdit(t)
			return m, m.openInput("Edit task")
		}
		return m, nil
	case key.Matches(msg, m.keys.Toggle):
		if t, ok := m.selected(); ok {
			return m, m.call.toggle(t)
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selected(); ok {
			return m, m.call.remove(t.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.call.fetch()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// selected is the record under the cursor, looked up fresh in the cache.
func (m Model) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(todoItem)
	if !ok {
		return model.Todo{}, false
	}
	return m.rec.Get(it.todo.ID)
}

func (m *Model) openInput(placeholder string) tea.Cmd {
	m.inputActive = true
	m.input.Placeholder = placeholder
	m.input.SetValue(m.ed.Text())
	m.input.CursorEnd()
	m.resize()
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.inputActive = false
	m.input.SetValue("")
	m.input.Blur()
	m.resize()
}

// refresh pushes the reconciler's list into the list widget.
func (m *Model) refresh() tea.Cmd {
	todos := m.rec.Todos()
	items := make([]list.Item, 0, len(todos))
	for _, t := range todos {
		items = append(items, todoItem{todo: t})
	}
	m.list.Title = m.header()
	return m.list.SetItems(items)
}

func (m *Model) notify(ok bool, text string) tea.Cmd {
	m.toast = toast{text: text, ok: ok, seq: m.toast.seq + 1}
	m.resize()
	return expireToast(m.toast.seq, toastTTL)
}

func (m *Model) resize() {
	h := m.height - 4
	if m.inputActive {
		h -= 4
	}
	if m.toast.text != "" {
		h--
	}
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
}

func (m Model) header() string {
	done, pending := m.rec.Stats()
	th := ui.Current()
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		"Todo List",
		successStyle.Render(th.SymDone), done,
		pendingStyle.Render(th.SymPending), pending,
		accentStyle.Render("Total"), m.rec.Len(),
	)
}

// submitLabel is the action enter performs in the input bar.
func (m Model) submitLabel() string {
	if m.ed.Editing() {
		return "Edit todo"
	}
	return "Add todo"
}

func (m Model) View() string {
	if m.loading {
		return panelString(m.spinner.View() + " Loading todos...")
	}

	var b strings.Builder
	b.WriteString(m.list.View())
	if m.inputActive {
		title := accentStyle.Render(m.submitLabel())
		if m.ed.Editing() {
			title = pendingStyle.Render(m.submitLabel())
		}
		bar := frameStyle.Render(title + "\n" + m.input.View() + "\n" +
			helpStyle.Render("enter: "+strings.ToLower(m.submitLabel())+" • esc: cancel"))
		b.WriteString("\n" + bar)
	}
	if m.toast.text != "" {
		th := ui.Current()
		style, sym := successStyle, th.SymDone
		if !m.toast.ok {
			style, sym = errorStyle, th.SymFail
		}
		b.WriteString("\n" + style.Render(sym+" "+m.toast.text))
	}
	return panelString(lipgloss.NewStyle().MaxWidth(m.width - 4).Render(b.String()))
}
