// Package editor holds the single pending input value shared by the add and
// edit paths, and the id of the record being edited, if any.
package editor

import (
	"errors"
	"strings"

	"github.com/idilsaglam/livetodo/internal/model"
)

// ErrEmptyTask blocks submission of empty or whitespace-only text.
var ErrEmptyTask = errors.New("task cannot be empty")

// IntentKind says which remote call a submission should issue.
type IntentKind int

const (
	IntentInsert IntentKind = iota + 1
	IntentUpdate
)

// Intent is a validated submission.
type Intent struct {
	Kind IntentKind
	ID   int64 // set for IntentUpdate
	Task string
}

// Controller is the input/edit state machine.
type Controller struct {
	text      string
	editingID int64
	editing   bool
}

// SetText records what the user typed.
func (c *Controller) SetText(s string) { c.text = s }

// Text is the pending input value.
func (c *Controller) Text() string { return c.text }

// EditingID returns the id targeted by an in-progress edit.
func (c *Controller) EditingID() (int64, bool) { return c.editingID, c.editing }

// Editing reports whether submit will issue an update.
func (c *Controller) Editing() bool { return c.editing }

// BeginEdit switches to composing-for-edit on t, from any state.
func (c *Controller) BeginEdit(t model.Todo) {
	c.text = t.Task
	c.editingID = t.ID
	c.editing = true
}

// Submit validates the pending text and returns the call to make.
// State is not cleared here; call Succeeded once the remote call succeeds.
func (c *Controller) Submit() (Intent, error) {
	task := strings.TrimSpace(c.text)
	if task == "" {
		return Intent{}, ErrEmptyTask
	}
	if c.editing {
		return Intent{Kind: IntentUpdate, ID: c.editingID, Task: task}, nil
	}
	return Intent{Kind: IntentInsert, Task: task}, nil
}

// Succeeded clears the pending text, and the editing id on the edit path.
// A late success for a superseded edit leaves the current state alone.
func (c *Controller) Succeeded(in Intent) {
	switch in.Kind {
	case IntentInsert:
		if !c.editing {
			c.text = ""
		}
	case IntentUpdate:
		if c.editing && c.editingID == in.ID {
			c.Cancel()
		}
	}
}

// Cancel returns to idle.
func (c *Controller) Cancel() {
	c.text = ""
	c.editingID = 0
	c.editing = false
}
