// Package reconcile keeps the local todo list consistent with the remote store.
//
// Both direct mutation responses and realtime feed events are applied here.
// Every operation is match-and-replace or match-and-remove, so applying the
// same logical change twice (response plus echoed event) leaves the list as if
// it had been applied once.
package reconcile

import "github.com/idilsaglam/livetodo/internal/model"

// Reconciler is an ordered cache of todo records, at most one per id.
// It is not safe for concurrent use; the view's update loop owns it.
type Reconciler struct {
	todos []model.Todo
}

// New returns an empty reconciler.
func New() *Reconciler { return &Reconciler{} }

// ApplyFetchResult replaces the whole list with records, in the order given.
// Duplicate ids keep their first occurrence.
func (r *Reconciler) ApplyFetchResult(records []model.Todo) {
	out := make([]model.Todo, 0, len(records))
	seen := make(map[int64]struct{}, len(records))
	for _, t := range records {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	r.todos = out
}

// ApplyInsert appends rec to the end of the list. If a record with the same id
// is already present it is replaced in place instead.
func (r *Reconciler) ApplyInsert(rec model.Todo) {
	if i := r.index(rec.ID); i >= 0 {
		r.todos[i] = rec
		return
	}
	r.todos = append(r.todos, rec)
}

// ApplyUpdate replaces the record matching id with rec, keeping its position.
// It reports false when no record matched (for example after a concurrent delete).
func (r *Reconciler) ApplyUpdate(id int64, rec model.Todo) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.todos[i] = rec
	return true
}

// ApplyToggle applies the server-returned record of a done flip.
func (r *Reconciler) ApplyToggle(id int64, rec model.Todo) bool {
	return r.ApplyUpdate(id, rec)
}

// ApplyDelete removes the record matching id. It reports false if absent.
func (r *Reconciler) ApplyDelete(id int64) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.todos = append(r.todos[:i], r.todos[i+1:]...)
	return true
}

// ApplyEvent routes a realtime event to the matching apply operation.
// Unknown event types and events missing their record are ignored and
// reported as not applied.
func (r *Reconciler) ApplyEvent(ev model.Event) bool {
	switch ev.Type {
	case model.EventInsert:
		if ev.New == nil {
			return false
		}
		r.ApplyInsert(*ev.New)
		return true
	case model.EventUpdate:
		if ev.New == nil {
			return false
		}
		return r.ApplyUpdate(ev.New.ID, *ev.New)
	case model.EventDelete:
		if ev.Old == nil {
			return false
		}
		return r.ApplyDelete(ev.Old.ID)
	}
	return false
}

// Todos returns a copy of the list in display order.
func (r *Reconciler) Todos() []model.Todo {
	out := make([]model.Todo, len(r.todos))
	copy(out, r.todos)
	return out
}

// Get returns the record with id, if present.
func (r *Reconciler) Get(id int64) (model.Todo, bool) {
	if i := r.index(id); i >= 0 {
		return r.todos[i], true
	}
	return model.Todo{}, false
}

// Len is the number of cached records.
func (r *Reconciler) Len() int { return len(r.todos) }

// Stats counts done and pending records.
func (r *Reconciler) Stats() (done, pending int) { return model.Stats(r.todos) }

func (r *Reconciler) index(id int64) int {
	for i, t := range r.todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}
