// Package sqlite is a local remote.Store over modernc.org/sqlite.
//
// It keeps the same table shape as the hosted store and echoes every
// successful mutation on its change feed, the way the hosted Realtime service
// does. Useful offline and as an integration backend in tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/remote"
)

const schema = `
CREATE TABLE IF NOT EXISTS todos (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	task TEXT    NOT NULL,
	done BOOLEAN NOT NULL DEFAULT FALSE
)`

// feedBuffer is how many events a slow subscriber may lag before drops.
const feedBuffer = 256

// Store is a sqlite-backed todo table with an in-process change feed.
type Store struct {
	db  *sql.DB
	log *slog.Logger

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

var _ remote.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases shared and writes serialized.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create todos table: %w", err)
	}
	log.Info("sqlite store ready", "path", path)
	return &Store{db: db, log: log, subs: make(map[*subscription]struct{})}, nil
}

// Close closes every open subscription and the database.
func (s *Store) Close() error {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[*subscription]struct{})
	s.mu.Unlock()
	for sub := range subs {
		sub.close()
	}
	return s.db.Close()
}

func (s *Store) Fetch(ctx context.Context) ([]model.Todo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, task, done FROM todos ORDER BY id ASC`)
	if err != nil {
		return nil, remote.Wrap("fetch", err)
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		var t model.Todo
		if err := rows.Scan(&t.ID, &t.Task, &t.Done); err != nil {
			return nil, remote.Wrap("fetch", fmt.Errorf("scan: %w", err))
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, remote.Wrap("fetch", err)
	}
	return todos, nil
}

func (s *Store) Insert(ctx context.Context, task string) (model.Todo, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO todos (task, done) VALUES (?, FALSE)`, task)
	if err != nil {
		return model.Todo{}, remote.Wrap("insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Todo{}, remote.Wrap("insert", err)
	}
	t := model.Todo{ID: id, Task: task}
	s.publish(model.Event{Type: model.EventInsert, New: &t})
	return t, nil
}

func (s *Store) Update(ctx context.Context, id int64, p model.Patch) (model.Todo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Todo{}, remote.Wrap("update", err)
	}
	defer tx.Rollback()

	if p.Task != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE todos SET task = ? WHERE id = ?`, *p.Task, id); err != nil {
			return model.Todo{}, remote.Wrap("update", err)
		}
	}
	if p.Done != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE todos SET done = ? WHERE id = ?`, *p.Done, id); err != nil {
			return model.Todo{}, remote.Wrap("update", err)
		}
	}
	t := model.Todo{ID: id}
	err = tx.QueryRowContext(ctx, `SELECT task, done FROM todos WHERE id = ?`, id).Scan(&t.Task, &t.Done)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Todo{}, remote.Wrap("update", remote.ErrNotFound)
	}
	if err != nil {
		return model.Todo{}, remote.Wrap("update", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Todo{}, remote.Wrap("update", err)
	}
	s.publish(model.Event{Type: model.EventUpdate, New: &t, Old: &model.Todo{ID: id}})
	return t, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return remote.Wrap("delete", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.publish(model.Event{Type: model.EventDelete, Old: &model.Todo{ID: id}})
	}
	return nil
}

// Subscribe registers a feed. ctx bounds its lifetime.
func (s *Store) Subscribe(ctx context.Context) (remote.Subscription, error) {
	sub := &subscription{
		store:  s,
		events: make(chan model.Event, feedBuffer),
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

func (s *Store) publish(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if !sub.offer(ev) {
			s.log.Warn("dropping event for slow subscriber", "type", ev.Type)
		}
	}
}

type subscription struct {
	store  *Store
	events chan model.Event

	mu   sync.Mutex
	done chan struct{}
	shut bool
}

func (s *subscription) Events() <-chan model.Event { return s.events }

func (s *subscription) Err() error { return nil }

func (s *subscription) Close() error {
	s.store.mu.Lock()
	delete(s.store.subs, s)
	s.store.mu.Unlock()
	s.close()
	return nil
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shut {
		return
	}
	s.shut = true
	close(s.events)
	close(s.done)
}

// offer sends without blocking; it reports false when the buffer is full.
func (s *subscription) offer(ev model.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shut {
		return true
	}
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}
