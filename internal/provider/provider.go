// Package provider defines the boundary with the hosted backend service.
// It covers the two capabilities the client depends on: password
// authentication with pushed auth-state events, and filtered access to
// the user-scoped tables. Stores never speak the wire protocol directly.
package provider

import "context"

// Table names on the hosted backend.
const (
	TableProfiles = "profiles"
	TableTodos    = "todos"
)

// Identity is the provider-issued user record for the current session.
// It is opaque to the client: the ID is never generated or interpreted
// locally, only echoed back in table filters.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthEventType distinguishes pushed auth-state transitions.
type AuthEventType string

const (
	// SignedIn fires after sign-up, sign-in, or session restore.
	SignedIn AuthEventType = "SIGNED_IN"

	// SignedOut fires after sign-out or session invalidation.
	SignedOut AuthEventType = "SIGNED_OUT"
)

// AuthEvent is a pushed auth-state transition.
// Identity is set for SignedIn events and nil for SignedOut.
type AuthEvent struct {
	Type     AuthEventType
	Identity *Identity
}

// Filter is an equality predicate on a table column.
// Multiple filters are ANDed together.
type Filter struct {
	Column string
	Value  string
}

// Eq builds an equality filter.
func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

// Order describes result ordering for Select.
type Order struct {
	Column     string
	Descending bool
}

// Client is the contract with the hosted backend. Implementations must
// be safe for sequential use from UI-style event handlers; all durable
// state and access control live on the provider side.
//
// Table operations return raw JSON so each store can decode into its
// own record type.
type Client interface {
	// GetCurrentSession returns the identity of an existing valid
	// session, or nil if no session is active.
	GetCurrentSession(ctx context.Context) (*Identity, error)

	// OnAuthStateChange registers a callback for pushed auth events.
	// The returned function unsubscribes the callback.
	OnAuthStateChange(fn func(AuthEvent)) (unsubscribe func())

	// SignUpWithPassword creates credentials for a new identity.
	SignUpWithPassword(ctx context.Context, email, password string) (Identity, error)

	// SignInWithPassword authenticates an existing identity.
	SignInWithPassword(ctx context.Context, email, password string) (Identity, error)

	// SignOut invalidates the current session.
	SignOut(ctx context.Context) error

	// Insert adds records to a table and returns the inserted rows
	// as a JSON array.
	Insert(ctx context.Context, table string, records any) ([]byte, error)

	// Select returns rows matching all filters as a JSON array.
	// order may be nil for provider-default ordering.
	Select(ctx context.Context, table string, filters []Filter, order *Order) ([]byte, error)

	// Update applies patch to all rows matching the filters.
	Update(ctx context.Context, table string, filters []Filter, patch any) error

	// Delete removes all rows matching the filters.
	Delete(ctx context.Context, table string, filters []Filter) error
}
