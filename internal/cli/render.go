package cli

import (
	"fmt"

	"github.com/mattn/go-runewidth"

	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/ui"
)

const maxTaskWidth = 80

// listLines is the body of the ls panel: counts, progress, rows, tip.
func listLines(todos []model.Todo, group bool) []string {
	th := ui.Current()
	d, p := model.Stats(todos)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(th.Title, "Todos"),
		ui.C(th.Success, th.SymDone), d,
		ui.C(th.Pending, th.SymPending), p,
		ui.C(th.Accent, "Total"), len(todos),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(th.Muted, ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")

	if group {
		lines = append(lines, groupLines(todos)...)
	} else {
		lines = append(lines, flatLines(todos)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(th.Muted, "Tip: add with `todo add \"Buy milk\"`"))
	return lines
}

func flatLines(todos []model.Todo) []string {
	th := ui.Current()
	if len(todos) == 0 {
		return []string{ui.C(th.Muted, "no todos")}
	}
	out := make([]string, 0, len(todos))
	for _, t := range todos {
		id := fmt.Sprintf("%4s", fmt.Sprintf("#%d", t.ID))
		box, color := th.BoxUnchecked, th.Muted
		task := runewidth.Truncate(t.Task, maxTaskWidth, "...")
		if t.Done {
			box, color = th.BoxChecked, th.Success
			task = ui.Strike(task)
		}
		out = append(out, fmt.Sprintf("%s %s %s", ui.Dim(id), ui.C(color, box), task))
	}
	return out
}

func groupLines(todos []model.Todo) []string {
	var pend, done []model.Todo
	for _, t := range todos {
		if t.Done {
			done = append(done, t)
		} else {
			pend = append(pend, t)
		}
	}
	th := ui.Current()
	section := func(title string, ts []model.Todo) []string {
		lines := []string{ui.C(th.Accent, title)}
		if len(ts) == 0 {
			return append(lines, ui.C(th.Muted, "(none)"))
		}
		return append(lines, flatLines(ts)...)
	}
	lines := section("Pending", pend)
	lines = append(lines, "")
	return append(lines, section("Done", done)...)
}

// eventLine describes one feed event for watch.
func eventLine(ev model.Event) string {
	th := ui.Current()
	switch ev.Type {
	case model.EventInsert:
		if ev.New != nil {
			return fmt.Sprintf("%s #%d %s", ui.C(th.Success, "+ insert"), ev.New.ID, ev.New.Task)
		}
	case model.EventUpdate:
		if ev.New != nil {
			box := th.BoxUnchecked
			if ev.New.Done {
				box = th.BoxChecked
			}
			return fmt.Sprintf("%s #%d %s %s", ui.C(th.Pending, "~ update"), ev.New.ID, box, ev.New.Task)
		}
	case model.EventDelete:
		if ev.Old != nil {
			return fmt.Sprintf("%s #%d", ui.C(th.Error, "- delete"), ev.Old.ID)
		}
	}
	return ui.C(th.Muted, "? "+string(ev.Type))
}
