// Package todo maintains the in-memory task cache for the current
// identity and the four mutation operations against the backend.
//
// The cache is an exact mirror of the last successful fetch, ordered by
// creation time descending. It is replaced wholesale, never patched:
// every successful mutation triggers a reconciling fetch before the
// operation returns.
package todo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"taskpad/internal/provider"
)

var (
	// ErrEmptyText is returned when Add is called with empty or
	// whitespace-only text. No provider call is made.
	ErrEmptyText = errors.New("todo text is empty")

	// ErrNoSession is returned when an operation requires a signed-in identity.
	ErrNoSession = errors.New("no authenticated identity")
)

// Task is a single to-do record scoped to one identity.
type Task struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalJSON accepts both string and numeric ids; the backend
// assigns them and the client treats them as opaque keys.
func (t *Task) UnmarshalJSON(data []byte) error {
	var row struct {
		ID        json.RawMessage `json:"id"`
		Text      string          `json:"text"`
		Completed bool            `json:"completed"`
		UserID    string          `json:"user_id"`
		CreatedAt time.Time       `json:"created_at"`
	}
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}

	var id string
	if len(row.ID) > 0 {
		if row.ID[0] == '"' {
			if err := json.Unmarshal(row.ID, &id); err != nil {
				return err
			}
		} else {
			id = string(row.ID)
		}
	}

	*t = Task{
		ID:        id,
		Text:      row.Text,
		Completed: row.Completed,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
	}
	return nil
}

// Store is the authoritative local cache of the current identity's
// tasks. The mutex is held across provider calls so mutations on the
// same store serialize instead of racing their reconciling fetches.
type Store struct {
	mu     sync.Mutex
	client provider.Client
	ident  *provider.Identity
	tasks  []Task
}

// NewStore creates a task store backed by the given provider client.
func NewStore(client provider.Client) *Store {
	return &Store{client: client}
}

// Refresh fetches all tasks for ident and replaces the cache.
// On failure the previous cache is retained.
func (s *Store) Refresh(ctx context.Context, ident provider.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ident = &ident
	return s.refreshLocked(ctx, ident)
}

// Fetch re-fetches tasks for the identity of the last Refresh.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ident == nil {
		return ErrNoSession
	}
	return s.refreshLocked(ctx, *s.ident)
}

func (s *Store) refreshLocked(ctx context.Context, ident provider.Identity) error {
	raw, err := s.client.Select(ctx, provider.TableTodos,
		[]provider.Filter{provider.Eq("user_id", ident.ID)},
		&provider.Order{Column: "created_at", Descending: true})
	if err != nil {
		return err
	}

	var tasks []Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return fmt.Errorf("decode todo rows: %w", err)
	}

	// Replace only after a fully decoded result; the cache must never
	// hold a partially applied fetch.
	s.tasks = tasks
	return nil
}

// Add inserts a new open task and reconciles the cache.
// Empty or whitespace-only text is rejected before any provider call.
func (s *Store) Add(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ident == nil {
		return ErrNoSession
	}

	_, err := s.client.Insert(ctx, provider.TableTodos, []map[string]any{{
		"text":      text,
		"completed": false,
		"user_id":   s.ident.ID,
	}})
	if err != nil {
		return err
	}

	return s.refreshLocked(ctx, *s.ident)
}

// Toggle flips completed for the task matching id. The update filters
// on both id and user_id: a crafted id can never reach another
// identity's row.
func (s *Store) Toggle(ctx context.Context, id string, previousCompleted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ident == nil {
		return ErrNoSession
	}

	err := s.client.Update(ctx, provider.TableTodos,
		[]provider.Filter{
			provider.Eq("id", id),
			provider.Eq("user_id", s.ident.ID),
		},
		map[string]any{"completed": !previousCompleted})
	if err != nil {
		return err
	}

	return s.refreshLocked(ctx, *s.ident)
}

// Delete removes the task matching id, filtered by both id and user_id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ident == nil {
		return ErrNoSession
	}

	err := s.client.Delete(ctx, provider.TableTodos,
		[]provider.Filter{
			provider.Eq("id", id),
			provider.Eq("user_id", s.ident.ID),
		})
	if err != nil {
		return err
	}

	return s.refreshLocked(ctx, *s.ident)
}

// Clear drops the cache and identity. Called on sign-out.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ident = nil
	s.tasks = nil
}

// Tasks returns a copy of the cached tasks in fetch order.
func (s *Store) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}
