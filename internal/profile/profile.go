// Package profile mirrors the one profile record of the current identity.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskpad/internal/provider"
)

var (
	// ErrNotFound is returned when no profile row exists for the identity.
	ErrNotFound = errors.New("profile not found")

	// ErrInconsistent is returned when more than one profile row exists.
	ErrInconsistent = errors.New("multiple profile rows for identity")

	// ErrNoSession is returned when an operation requires a signed-in identity.
	ErrNoSession = errors.New("no authenticated identity")

	// ErrNotLoaded is returned when Update is called before a successful fetch.
	ErrNotLoaded = errors.New("profile not loaded")

	// ErrNoFields is returned when Update is called with nothing to change.
	ErrNoFields = errors.New("no profile fields to update")
)

// Profile is the mutable user-metadata record associated 1:1 with an
// identity. Exactly one row per identity is an invariant enforced by
// the backend; this store treats zero or multiple rows as errors.
type Profile struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url"`
	LastLogin time.Time `json:"last_login"`
}

// Fields are the updatable profile columns. Nil means unchanged.
type Fields struct {
	FullName  *string
	AvatarURL *string
}

// Store holds the local mirror of the current identity's profile.
// The mutex is held across provider calls so that operations on the
// same store serialize rather than interleave.
type Store struct {
	mu      sync.Mutex
	client  provider.Client
	ident   *provider.Identity
	current *Profile
}

// NewStore creates a profile store backed by the given provider client.
func NewStore(client provider.Client) *Store {
	return &Store{client: client}
}

// Refresh fetches the profile row for ident and replaces the local
// mirror. On any error the local profile is set absent.
func (s *Store) Refresh(ctx context.Context, ident provider.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ident = &ident
	return s.refreshLocked(ctx, ident)
}

// Fetch re-fetches the profile for the identity of the last Refresh.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ident == nil {
		return ErrNoSession
	}
	return s.refreshLocked(ctx, *s.ident)
}

func (s *Store) refreshLocked(ctx context.Context, ident provider.Identity) error {
	raw, err := s.client.Select(ctx, provider.TableProfiles,
		[]provider.Filter{provider.Eq("user_id", ident.ID)}, nil)
	if err != nil {
		s.current = nil
		return err
	}

	var rows []Profile
	if err := json.Unmarshal(raw, &rows); err != nil {
		s.current = nil
		return fmt.Errorf("decode profile rows: %w", err)
	}

	switch len(rows) {
	case 0:
		s.current = nil
		return ErrNotFound
	case 1:
		s.current = &rows[0]
		return nil
	default:
		s.current = nil
		return ErrInconsistent
	}
}

// Update patches the changed fields plus a refreshed last_login stamp,
// then re-fetches to reconcile with the persisted row. A failed update
// leaves the prior local profile unchanged.
func (s *Store) Update(ctx context.Context, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ident == nil {
		return ErrNoSession
	}
	if s.current == nil {
		return ErrNotLoaded
	}
	if fields.FullName == nil && fields.AvatarURL == nil {
		return ErrNoFields
	}

	patch := map[string]any{
		"last_login": time.Now().UTC(),
	}
	if fields.FullName != nil {
		patch["full_name"] = *fields.FullName
	}
	if fields.AvatarURL != nil {
		patch["avatar_url"] = *fields.AvatarURL
	}

	err := s.client.Update(ctx, provider.TableProfiles,
		[]provider.Filter{provider.Eq("user_id", s.ident.ID)}, patch)
	if err != nil {
		return err
	}

	return s.refreshLocked(ctx, *s.ident)
}

// Clear drops the local profile and identity. Called on sign-out.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ident = nil
	s.current = nil
}

// Current returns a copy of the fetched profile, if present.
func (s *Store) Current() (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Profile{}, false
	}
	return *s.current, true
}
