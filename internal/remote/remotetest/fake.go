// Package remotetest provides an in-memory remote.Store for tests.
package remotetest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/remote"
)

// ErrInjected is returned by calls listed in Fake.Fail.
var ErrInjected = errors.New("injected failure")

// Fake stores rows in memory. It does not echo mutations on the feed;
// tests push events explicitly with Emit.
type Fake struct {
	mu     sync.Mutex
	rows   map[int64]model.Todo
	nextID int64
	calls  []string
	sub    *FakeSub

	// Fail names operations ("fetch", "insert", ...) that return ErrInjected.
	Fail map[string]bool
}

// NewFake returns a store seeded with rows. Ids continue after the highest seed.
func NewFake(rows ...model.Todo) *Fake {
	f := &Fake{rows: make(map[int64]model.Todo), Fail: make(map[string]bool)}
	for _, r := range rows {
		f.rows[r.ID] = r
		if r.ID > f.nextID {
			f.nextID = r.ID
		}
	}
	return f
}

func (f *Fake) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if f.Fail[op] {
		return remote.Wrap(op, ErrInjected)
	}
	return nil
}

// Calls lists the operations invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) Fetch(ctx context.Context) ([]model.Todo, error) {
	if err := f.record("fetch"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Todo, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) Insert(ctx context.Context, task string) (model.Todo, error) {
	if err := f.record("insert"); err != nil {
		return model.Todo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := model.Todo{ID: f.nextID, Task: task}
	f.rows[t.ID] = t
	return t, nil
}

func (f *Fake) Update(ctx context.Context, id int64, p model.Patch) (model.Todo, error) {
	if err := f.record("update"); err != nil {
		return model.Todo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return model.Todo{}, remote.Wrap("update", remote.ErrNotFound)
	}
	if p.Task != nil {
		t.Task = *p.Task
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
	f.rows[id] = t
	return t, nil
}

func (f *Fake) Delete(ctx context.Context, id int64) error {
	if err := f.record("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *Fake) Subscribe(ctx context.Context) (remote.Subscription, error) {
	if err := f.record("subscribe"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sub = &FakeSub{events: make(chan model.Event, 16)}
	return f.sub, nil
}

// Emit pushes ev on the current subscription, if any.
func (f *Fake) Emit(ev model.Event) {
	f.mu.Lock()
	sub := f.sub
	f.mu.Unlock()
	if sub != nil {
		sub.events <- ev
	}
}

// Sub is the last subscription handed out.
func (f *Fake) Sub() *FakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sub
}

// FakeSub is the subscription returned by Fake.
type FakeSub struct {
	events chan model.Event
	once   sync.Once
	closed bool
	mu     sync.Mutex
}

func (s *FakeSub) Events() <-chan model.Event { return s.events }

func (s *FakeSub) Err() error { return nil }

func (s *FakeSub) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.events)
	})
	return nil
}

// Closed reports whether Close was called.
func (s *FakeSub) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
