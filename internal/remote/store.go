// Package remote describes the hosted store the client reads and mutates.
// The store is the source of truth; implementations live in supabase (hosted)
// and store/sqlite (local).
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/idilsaglam/livetodo/internal/model"
)

// ErrNotFound is returned when an update or delete matched no row.
var ErrNotFound = errors.New("no matching row")

// Store is the CRUD plus change-feed surface of the todos table.
type Store interface {
	// Fetch returns every row ordered by id ascending.
	Fetch(ctx context.Context) ([]model.Todo, error)
	// Insert stores a new, not-done task and returns it with its assigned id.
	Insert(ctx context.Context, task string) (model.Todo, error)
	// Update applies p to the row with id and returns the stored row.
	Update(ctx context.Context, id int64, p model.Patch) (model.Todo, error)
	Delete(ctx context.Context, id int64) error
	// Subscribe opens the change feed for the table.
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is a live change feed. Events is closed after Close, or when
// the feed fails; Err then reports why.
type Subscription interface {
	Events() <-chan model.Event
	Err() error
	Close() error
}

// Error is an opaque remote failure tagged with the operation that failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with op. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) && re.Op == op {
		return err
	}
	return &Error{Op: op, Err: err}
}

// Errorf is fmt.Errorf followed by Wrap.
func Errorf(op, format string, args ...any) error {
	return &Error{Op: op, Err: fmt.Errorf(format, args...)}
}
