// Package session tracks the authenticated identity and drives the
// data stores through auth-state transitions.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskpad/internal/provider"
)

// MinPasswordLen is the minimum accepted password length at sign-up.
const MinPasswordLen = 6

var (
	// ErrMissingFields is returned when a required field is empty.
	ErrMissingFields = errors.New("all fields are required")

	// ErrPasswordTooShort is returned when the sign-up password is
	// shorter than MinPasswordLen. Checked before any provider call.
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLen)

	// ErrProfileSetup is returned when credentials were created but the
	// profile row could not be. The identity exists without a profile;
	// nothing is rolled back.
	ErrProfileSetup = errors.New("account created but profile setup failed")
)

// Syncer is per-identity state that follows the session: refreshed on
// sign-in, cleared on sign-out. The profile and task stores implement it.
type Syncer interface {
	Refresh(ctx context.Context, ident provider.Identity) error
	Clear()
}

// Manager is the single authoritative holder of the current identity.
// Auth events are pushed by the provider; the manager never polls.
type Manager struct {
	// Logf reports best-effort failures that must not surface as
	// operation errors (e.g. the last_login stamp). Nil discards.
	Logf func(format string, args ...any)

	client  provider.Client
	syncers []Syncer // refresh order: profile first, then tasks

	mu      sync.Mutex
	ctx     context.Context
	current *provider.Identity
	unsub   func()
}

// NewManager creates a session manager. Syncers are refreshed in the
// given order on sign-in and cleared in the same order on sign-out.
func NewManager(client provider.Client, syncers ...Syncer) *Manager {
	return &Manager{client: client, syncers: syncers}
}

// Start restores an existing session, refreshes the stores if one is
// present, and subscribes to auth-state changes. ctx is retained for
// refreshes triggered by pushed events.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	ident, err := m.client.GetCurrentSession(ctx)
	if err != nil {
		return err
	}
	if ident != nil {
		m.setCurrent(ident)
		if err := m.refreshAll(ctx, *ident); err != nil {
			// No failure here is fatal; stores report errors on their
			// own operations and the session itself is valid.
			m.logf("refresh after session restore failed: %v", err)
		}
	}

	unsub := m.client.OnAuthStateChange(m.handleEvent)
	m.mu.Lock()
	m.unsub = unsub
	m.mu.Unlock()
	return nil
}

// Stop unsubscribes from auth-state changes.
func (m *Manager) Stop() {
	m.mu.Lock()
	unsub := m.unsub
	m.unsub = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Current returns the authenticated identity, if any.
func (m *Manager) Current() (provider.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return provider.Identity{}, false
	}
	return *m.current, true
}

// SignUp validates locally, creates credentials on the provider, then
// creates the profile row for the new identity. A profile failure
// after successful credential creation returns ErrProfileSetup.
func (m *Manager) SignUp(ctx context.Context, email, username, password string) error {
	if email == "" || username == "" || password == "" {
		return ErrMissingFields
	}
	if len(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}

	ident, err := m.client.SignUpWithPassword(ctx, email, password)
	if err != nil {
		return err
	}

	_, err = m.client.Insert(ctx, provider.TableProfiles, []map[string]any{{
		"user_id":    ident.ID,
		"username":   username,
		"email":      email,
		"last_login": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProfileSetup, err)
	}
	return nil
}

// SignIn validates locally and delegates to the provider. On success
// the attempt time is stamped on the profile's last_login as a
// best-effort side effect; its failure is logged, never surfaced.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrMissingFields
	}

	ident, err := m.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}

	err = m.client.Update(ctx, provider.TableProfiles,
		[]provider.Filter{provider.Eq("user_id", ident.ID)},
		map[string]any{"last_login": time.Now().UTC()})
	if err != nil {
		m.logf("last_login update failed: %v", err)
	}
	return nil
}

// SignOut delegates to the provider. Local state is cleared by the
// resulting SIGNED_OUT event, not here; callers must not assume
// synchronous clearing.
func (m *Manager) SignOut(ctx context.Context) error {
	return m.client.SignOut(ctx)
}

func (m *Manager) handleEvent(ev provider.AuthEvent) {
	switch ev.Type {
	case provider.SignedIn:
		if ev.Identity == nil {
			return
		}
		m.setCurrent(ev.Identity)
		m.mu.Lock()
		ctx := m.ctx
		m.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := m.refreshAll(ctx, *ev.Identity); err != nil {
			m.logf("refresh after sign-in failed: %v", err)
		}
	case provider.SignedOut:
		m.setCurrent(nil)
		for _, s := range m.syncers {
			s.Clear()
		}
	}
}

// refreshAll refreshes every syncer in order. A failing syncer does
// not stop the ones after it; the first error is joined and returned.
func (m *Manager) refreshAll(ctx context.Context, ident provider.Identity) error {
	var errs []error
	for _, s := range m.syncers {
		if err := s.Refresh(ctx, ident); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) setCurrent(ident *provider.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = ident
}

func (m *Manager) logf(format string, args ...any) {
	if m.Logf != nil {
		m.Logf(format, args...)
	}
}
