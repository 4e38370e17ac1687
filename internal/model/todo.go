package model

// Todo is one row of the remote todos table.
// ID is assigned by the remote store; the client never invents one.
type Todo struct {
	ID   int64  `json:"id"`
	Task string `json:"task"`
	Done bool   `json:"done"`
}

// Patch is a partial update. Nil fields are left untouched remotely.
type Patch struct {
	Task *string `json:"task,omitempty"`
	Done *bool   `json:"done,omitempty"`
}

// TaskPatch sets only the task text.
func TaskPatch(task string) Patch { return Patch{Task: &task} }

// DonePatch sets only the done flag.
func DonePatch(done bool) Patch { return Patch{Done: &done} }

// EventType is the kind of a realtime change event.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is a row-level change pushed by the remote store.
// New is set for INSERT and UPDATE, Old for UPDATE and DELETE (often only the id).
type Event struct {
	Type EventType `json:"type"`
	New  *Todo     `json:"new,omitempty"`
	Old  *Todo     `json:"old,omitempty"`
}

// Stats counts done and pending records.
func Stats(todos []Todo) (done, pending int) {
	for _, t := range todos {
		if t.Done {
			done++
		} else {
			pending++
		}
	}
	return
}
