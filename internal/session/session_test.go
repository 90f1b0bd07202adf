package session_test

import (
	"context"
	"errors"
	"testing"

	"taskpad/internal/profile"
	"taskpad/internal/provider"
	"taskpad/internal/session"
	"taskpad/internal/testutil"
	"taskpad/internal/todo"
)

type fixture struct {
	fake     *testutil.FakeProvider
	profiles *profile.Store
	todos    *todo.Store
	manager  *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := testutil.NewFakeProvider()
	profiles := profile.NewStore(fake)
	todos := todo.NewStore(fake)
	return &fixture{
		fake:     fake,
		profiles: profiles,
		todos:    todos,
		manager:  session.NewManager(fake, profiles, todos),
	}
}

func TestManager_StartWithoutSession(t *testing.T) {
	f := newFixture(t)

	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.manager.Stop()

	if _, ok := f.manager.Current(); ok {
		t.Error("expected unauthenticated state")
	}
}

func TestManager_StartRestoresSession(t *testing.T) {
	f := newFixture(t)
	ident := f.fake.AddUser("ada@example.com", "hunter22")
	f.fake.SetSession(ident)
	f.fake.SeedProfile(ident.ID, "ada", ident.Email)
	f.fake.SeedTask(ident.ID, "task-a", "restore me", false)

	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.manager.Stop()

	got, ok := f.manager.Current()
	if !ok || got.ID != ident.ID {
		t.Fatalf("expected restored identity %q, got %+v ok=%v", ident.ID, got, ok)
	}
	if _, ok := f.profiles.Current(); !ok {
		t.Error("expected profile loaded on restore")
	}
	if tasks := f.todos.Tasks(); len(tasks) != 1 {
		t.Errorf("expected tasks loaded on restore, got %d", len(tasks))
	}
}

func TestManager_SignUpValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		username string
		password string
		wantErr  error
	}{
		{"empty email", "", "ada", "hunter22", session.ErrMissingFields},
		{"empty username", "ada@example.com", "", "hunter22", session.ErrMissingFields},
		{"empty password", "ada@example.com", "ada", "", session.ErrMissingFields},
		{"five char password", "ada@example.com", "ada", "12345", session.ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			err := f.manager.SignUp(context.Background(), tt.email, tt.username, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if n := f.fake.CallCount("SignUp"); n != 0 {
				t.Errorf("expected no provider call, got %d", n)
			}
		})
	}
}

func TestManager_SignUpCreatesProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.manager.Stop()

	if err := f.manager.SignUp(ctx, "ada@example.com", "ada", "hunter22"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	ident, ok := f.manager.Current()
	if !ok {
		t.Fatal("expected authenticated state after signup")
	}

	rows := f.fake.Rows(provider.TableProfiles)
	if len(rows) != 1 {
		t.Fatalf("expected 1 profile row, got %d", len(rows))
	}
	if rows[0]["user_id"] != ident.ID || rows[0]["username"] != "ada" {
		t.Errorf("unexpected profile row: %+v", rows[0])
	}
}

func TestManager_SignUpProfileFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.manager.Stop()

	f.fake.InsertErr[provider.TableProfiles] = &provider.DbError{Message: "backend down"}

	err := f.manager.SignUp(ctx, "ada@example.com", "ada", "hunter22")
	if !errors.Is(err, session.ErrProfileSetup) {
		t.Fatalf("expected ErrProfileSetup, got %v", err)
	}

	// Credentials exist and the session is live; nothing is rolled back.
	if _, ok := f.manager.Current(); !ok {
		t.Error("expected authenticated state despite profile failure")
	}
}

func TestManager_SignInRefreshesStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ident := f.fake.AddUser("ada@example.com", "hunter22")
	f.fake.SeedProfile(ident.ID, "ada", ident.Email)
	f.fake.SeedTask(ident.ID, "task-a", "hello", false)

	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.manager.Stop()

	if err := f.manager.SignIn(ctx, "ada@example.com", "hunter22"); err != nil {
		t.Fatalf("signin failed: %v", err)
	}

	if _, ok := f.profiles.Current(); !ok {
		t.Error("expected profile loaded after sign-in")
	}
	if tasks := f.todos.Tasks(); len(tasks) != 1 {
		t.Errorf("expected tasks loaded after sign-in, got %d", len(tasks))
	}
}

func TestManager_SignInBadCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.AddUser("ada@example.com", "hunter22")

	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.manager.Stop()

	err := f.manager.SignIn(ctx, "ada@example.com", "wrong")
	var authErr *provider.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if _, ok := f.manager.Current(); ok {
		t.Error("expected unauthenticated state after failed sign-in")
	}
}

func TestManager_SignInLastLoginFailureNotSurfaced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ident := f.fake.AddUser("ada@example.com", "hunter22")
	f.fake.SeedProfile(ident.ID, "ada", ident.Email)
	f.fake.UpdateErr[provider.TableProfiles] = &provider.DbError{Message: "backend down"}

	var logged []string
	f.manager.Logf = func(format string, args ...any) {
		logged = append(logged, format)
	}

	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.manager.Stop()

	if err := f.manager.SignIn(ctx, "ada@example.com", "hunter22"); err != nil {
		t.Fatalf("sign-in should succeed despite last_login failure, got %v", err)
	}
	if len(logged) == 0 {
		t.Error("expected the last_login failure to be logged")
	}
}

func TestManager_SignOutClearsStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ident := f.fake.AddUser("ada@example.com", "hunter22")
	f.fake.SeedProfile(ident.ID, "ada", ident.Email)
	f.fake.SeedTask(ident.ID, "task-a", "hello", false)

	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.manager.Stop()

	if err := f.manager.SignIn(ctx, "ada@example.com", "hunter22"); err != nil {
		t.Fatalf("signin failed: %v", err)
	}
	if err := f.manager.SignOut(ctx); err != nil {
		t.Fatalf("signout failed: %v", err)
	}

	// The SIGNED_OUT event clears everything synchronously.
	if _, ok := f.manager.Current(); ok {
		t.Error("expected unauthenticated state after sign-out")
	}
	if _, ok := f.profiles.Current(); ok {
		t.Error("expected profile cleared after sign-out")
	}
	if tasks := f.todos.Tasks(); len(tasks) != 0 {
		t.Errorf("expected tasks cleared after sign-out, got %d", len(tasks))
	}
}

func TestManager_ProfileFailureDoesNotBlockTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ident := f.fake.AddUser("ada@example.com", "hunter22")
	// No profile row: the profile refresh fails with not-found.
	f.fake.SeedTask(ident.ID, "task-a", "still here", false)

	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.manager.Stop()

	if err := f.manager.SignIn(ctx, "ada@example.com", "hunter22"); err != nil {
		t.Fatalf("signin failed: %v", err)
	}

	if tasks := f.todos.Tasks(); len(tasks) != 1 {
		t.Errorf("expected task fetch despite profile failure, got %d tasks", len(tasks))
	}
}

func TestManager_StopUnsubscribes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.AddUser("ada@example.com", "hunter22")

	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	f.manager.Stop()

	if err := f.manager.SignIn(ctx, "ada@example.com", "hunter22"); err != nil {
		t.Fatalf("signin failed: %v", err)
	}

	// No subscription: the SIGNED_IN event is not observed.
	if _, ok := f.manager.Current(); ok {
		t.Error("expected no state change after Stop")
	}
}
