// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"taskpad/internal/provider"
)

// FakeProvider is an in-memory implementation of provider.Client for
// testing. Table rows are generic maps so the fake stays ignorant of
// store record types, like the real wire boundary.
type FakeProvider struct {
	mu      sync.Mutex
	users   map[string]fakeUser // email -> user
	tables  map[string][]map[string]any
	session *provider.Identity
	subs    map[int]func(provider.AuthEvent)
	nextSub int
	nextID  int
	clock   time.Time

	// Calls logs every provider call, e.g. "SignIn" or "Select(todos)".
	Calls []string

	// Error injection for testing
	GetCurrentSessionErr error
	SignUpErr            error
	SignInErr            error
	SignOutErr           error
	InsertErr            map[string]error // table -> error
	SelectErr            map[string]error
	UpdateErr            map[string]error
	DeleteErr            map[string]error
}

type fakeUser struct {
	ident    provider.Identity
	password string
}

// NewFakeProvider creates an empty fake provider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		users: make(map[string]fakeUser),
		tables: map[string][]map[string]any{
			provider.TableProfiles: nil,
			provider.TableTodos:    nil,
		},
		subs:      make(map[int]func(provider.AuthEvent)),
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		InsertErr: make(map[string]error),
		SelectErr: make(map[string]error),
		UpdateErr: make(map[string]error),
		DeleteErr: make(map[string]error),
	}
}

// AddUser registers credentials and returns the new identity.
func (f *FakeProvider) AddUser(email, password string) provider.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ident := provider.Identity{ID: fmt.Sprintf("user-%d", f.nextID), Email: email}
	f.users[email] = fakeUser{ident: ident, password: password}
	return ident
}

// SetSession makes ident the current session without emitting events,
// as if a persisted session had been restored.
func (f *FakeProvider) SetSession(ident provider.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = &ident
}

// SeedProfile inserts a profile row directly, bypassing the call log.
func (f *FakeProvider) SeedProfile(userID, username, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[provider.TableProfiles] = append(f.tables[provider.TableProfiles], map[string]any{
		"user_id":    userID,
		"username":   username,
		"email":      email,
		"full_name":  "",
		"avatar_url": "",
		"last_login": f.tick(),
	})
}

// SeedTask inserts a todo row directly, bypassing the call log.
// Creation times increase in seeding order.
func (f *FakeProvider) SeedTask(userID, id, text string, completed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[provider.TableTodos] = append(f.tables[provider.TableTodos], map[string]any{
		"id":         id,
		"text":       text,
		"completed":  completed,
		"user_id":    userID,
		"created_at": f.tick(),
	})
}

// Rows returns a copy of the raw rows of a table.
func (f *FakeProvider) Rows(table string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := make([]map[string]any, len(f.tables[table]))
	copy(rows, f.tables[table])
	return rows
}

// CallCount returns how many logged calls match name exactly.
func (f *FakeProvider) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == name {
			n++
		}
	}
	return n
}

// GetCurrentSession implements provider.Client.
func (f *FakeProvider) GetCurrentSession(ctx context.Context) (*provider.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "GetCurrentSession")
	if f.GetCurrentSessionErr != nil {
		return nil, f.GetCurrentSessionErr
	}
	if f.session == nil {
		return nil, nil
	}
	ident := *f.session
	return &ident, nil
}

// OnAuthStateChange implements provider.Client.
func (f *FakeProvider) OnAuthStateChange(fn func(provider.AuthEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSub++
	id := f.nextSub
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// SignUpWithPassword implements provider.Client.
func (f *FakeProvider) SignUpWithPassword(ctx context.Context, email, password string) (provider.Identity, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, "SignUp")
	if f.SignUpErr != nil {
		f.mu.Unlock()
		return provider.Identity{}, f.SignUpErr
	}
	if _, exists := f.users[email]; exists {
		f.mu.Unlock()
		return provider.Identity{}, &provider.AuthError{Status: 422, Message: "user already registered"}
	}
	f.nextID++
	ident := provider.Identity{ID: fmt.Sprintf("user-%d", f.nextID), Email: email}
	f.users[email] = fakeUser{ident: ident, password: password}
	f.session = &ident
	f.mu.Unlock()

	f.emit(provider.AuthEvent{Type: provider.SignedIn, Identity: &ident})
	return ident, nil
}

// SignInWithPassword implements provider.Client.
func (f *FakeProvider) SignInWithPassword(ctx context.Context, email, password string) (provider.Identity, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, "SignIn")
	if f.SignInErr != nil {
		f.mu.Unlock()
		return provider.Identity{}, f.SignInErr
	}
	u, ok := f.users[email]
	if !ok || u.password != password {
		f.mu.Unlock()
		return provider.Identity{}, &provider.AuthError{Status: 400, Message: "invalid login credentials"}
	}
	ident := u.ident
	f.session = &ident
	f.mu.Unlock()

	f.emit(provider.AuthEvent{Type: provider.SignedIn, Identity: &ident})
	return ident, nil
}

// SignOut implements provider.Client.
func (f *FakeProvider) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.Calls = append(f.Calls, "SignOut")
	if f.SignOutErr != nil {
		f.mu.Unlock()
		return f.SignOutErr
	}
	f.session = nil
	f.mu.Unlock()

	f.emit(provider.AuthEvent{Type: provider.SignedOut})
	return nil
}

// Insert implements provider.Client.
func (f *FakeProvider) Insert(ctx context.Context, table string, records any) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "Insert("+table+")")
	if err := f.InsertErr[table]; err != nil {
		return nil, err
	}
	if _, ok := f.tables[table]; !ok {
		return nil, &provider.DbError{Code: "42P01", Message: "relation does not exist: " + table}
	}

	rows, err := toRows(records)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if table == provider.TableTodos {
			f.nextID++
			row["id"] = fmt.Sprintf("task-%d", f.nextID)
			row["created_at"] = f.tick()
		}
		f.tables[table] = append(f.tables[table], row)
	}
	return json.Marshal(rows)
}

// Select implements provider.Client.
func (f *FakeProvider) Select(ctx context.Context, table string, filters []provider.Filter, order *provider.Order) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "Select("+table+")")
	if err := f.SelectErr[table]; err != nil {
		return nil, err
	}
	rows, ok := f.tables[table]
	if !ok {
		return nil, &provider.DbError{Code: "42P01", Message: "relation does not exist: " + table}
	}

	matched := make([]map[string]any, 0)
	for _, row := range rows {
		if matchesAll(row, filters) {
			matched = append(matched, row)
		}
	}

	if order != nil {
		col, desc := order.Column, order.Descending
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return columnLess(matched[j][col], matched[i][col])
			}
			return columnLess(matched[i][col], matched[j][col])
		})
	}

	return json.Marshal(matched)
}

// Update implements provider.Client.
func (f *FakeProvider) Update(ctx context.Context, table string, filters []provider.Filter, patch any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "Update("+table+")")
	if err := f.UpdateErr[table]; err != nil {
		return err
	}
	rows, ok := f.tables[table]
	if !ok {
		return &provider.DbError{Code: "42P01", Message: "relation does not exist: " + table}
	}

	patchRows, err := toRows([]any{patch})
	if err != nil {
		return err
	}
	for _, row := range rows {
		if matchesAll(row, filters) {
			for k, v := range patchRows[0] {
				row[k] = v
			}
		}
	}
	return nil
}

// Delete implements provider.Client.
func (f *FakeProvider) Delete(ctx context.Context, table string, filters []provider.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "Delete("+table+")")
	if err := f.DeleteErr[table]; err != nil {
		return err
	}
	rows, ok := f.tables[table]
	if !ok {
		return &provider.DbError{Code: "42P01", Message: "relation does not exist: " + table}
	}

	kept := rows[:0]
	for _, row := range rows {
		if !matchesAll(row, filters) {
			kept = append(kept, row)
		}
	}
	f.tables[table] = kept
	return nil
}

// emit delivers an event to all subscribers. Callers must not hold the
// fake's mutex: subscribers typically call straight back into the fake.
func (f *FakeProvider) emit(ev provider.AuthEvent) {
	f.mu.Lock()
	fns := make([]func(provider.AuthEvent), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// tick advances the fake clock so creation times are strictly ordered.
func (f *FakeProvider) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// toRows normalizes arbitrary record values to generic maps via JSON,
// the same shape they would take on the wire.
func toRows(records any) ([]map[string]any, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		// Single record, not a slice
		var row map[string]any
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, fmt.Errorf("unsupported record shape: %w", err)
		}
		rows = []map[string]any{row}
	}
	return rows, nil
}

func matchesAll(row map[string]any, filters []provider.Filter) bool {
	for _, flt := range filters {
		if columnString(row[flt.Column]) != flt.Value {
			return false
		}
	}
	return true
}

func columnString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

func columnLess(a, b any) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Before(bt)
	}
	return columnString(a) < columnString(b)
}
