package profile_test

import (
	"context"
	"errors"
	"testing"

	"taskpad/internal/profile"
	"taskpad/internal/provider"
	"taskpad/internal/testutil"
)

func newStoreWithUser(t *testing.T) (*profile.Store, *testutil.FakeProvider, provider.Identity) {
	t.Helper()
	fake := testutil.NewFakeProvider()
	ident := fake.AddUser("ada@example.com", "hunter22")
	return profile.NewStore(fake), fake, ident
}

func TestStore_FetchSingleRow(t *testing.T) {
	store, fake, ident := newStoreWithUser(t)
	fake.SeedProfile(ident.ID, "ada", ident.Email)

	if err := store.Refresh(context.Background(), ident); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	p, ok := store.Current()
	if !ok {
		t.Fatal("expected profile present")
	}
	if p.Username != "ada" || p.Email != ident.Email || p.UserID != ident.ID {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestStore_FetchZeroRows(t *testing.T) {
	store, _, ident := newStoreWithUser(t)

	err := store.Refresh(context.Background(), ident)
	if !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, ok := store.Current(); ok {
		t.Error("expected absent profile after zero-row fetch")
	}
}

func TestStore_FetchMultipleRows(t *testing.T) {
	store, fake, ident := newStoreWithUser(t)
	fake.SeedProfile(ident.ID, "ada", ident.Email)
	fake.SeedProfile(ident.ID, "ada-dup", ident.Email)

	err := store.Refresh(context.Background(), ident)
	if !errors.Is(err, profile.ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
	if _, ok := store.Current(); ok {
		t.Error("expected absent profile after multi-row fetch")
	}
}

func TestStore_FetchScopesToIdentity(t *testing.T) {
	store, fake, ident := newStoreWithUser(t)
	other := fake.AddUser("eve@example.com", "hunter22")
	fake.SeedProfile(other.ID, "eve", other.Email)
	fake.SeedProfile(ident.ID, "ada", ident.Email)

	if err := store.Refresh(context.Background(), ident); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	p, _ := store.Current()
	if p.Username != "ada" {
		t.Errorf("expected own profile, got %+v", p)
	}
}

func TestStore_FetchErrorSetsAbsent(t *testing.T) {
	store, fake, ident := newStoreWithUser(t)
	fake.SeedProfile(ident.ID, "ada", ident.Email)

	if err := store.Refresh(context.Background(), ident); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	fake.SelectErr[provider.TableProfiles] = &provider.DbError{Message: "backend down"}
	if err := store.Fetch(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if _, ok := store.Current(); ok {
		t.Error("expected absent profile after failed fetch")
	}
}

func TestStore_UpdateChangesFields(t *testing.T) {
	store, fake, ident := newStoreWithUser(t)
	fake.SeedProfile(ident.ID, "ada", ident.Email)

	ctx := context.Background()
	if err := store.Refresh(ctx, ident); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	before, _ := store.Current()

	name := "Ada Lovelace"
	if err := store.Update(ctx, profile.Fields{FullName: &name}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	after, ok := store.Current()
	if !ok {
		t.Fatal("expected profile present after update")
	}
	if after.FullName != name {
		t.Errorf("full name not updated: %q", after.FullName)
	}
	if after.AvatarURL != before.AvatarURL {
		t.Errorf("avatar changed unexpectedly: %q", after.AvatarURL)
	}
	if !after.LastLogin.After(before.LastLogin) {
		t.Error("expected last_login refreshed by update")
	}
}

func TestStore_UpdateRequiresFetchedProfile(t *testing.T) {
	store, fake, ident := newStoreWithUser(t)
	fake.SeedProfile(ident.ID, "ada", ident.Email)

	name := "Ada"
	err := store.Update(context.Background(), profile.Fields{FullName: &name})
	if !errors.Is(err, profile.ErrNoSession) {
		t.Fatalf("expected ErrNoSession before any refresh, got %v", err)
	}
}

func TestStore_UpdateRequiresLoadedProfile(t *testing.T) {
	store, _, ident := newStoreWithUser(t)

	ctx := context.Background()
	// No profile row: refresh sets the identity but leaves the
	// profile absent.
	if err := store.Refresh(ctx, ident); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	name := "Ada"
	err := store.Update(ctx, profile.Fields{FullName: &name})
	if !errors.Is(err, profile.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestStore_UpdateRequiresFields(t *testing.T) {
	store, fake, ident := newStoreWithUser(t)
	fake.SeedProfile(ident.ID, "ada", ident.Email)

	ctx := context.Background()
	if err := store.Refresh(ctx, ident); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	err := store.Update(ctx, profile.Fields{})
	if !errors.Is(err, profile.ErrNoFields) {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}
	if n := fake.CallCount("Update(profiles)"); n != 0 {
		t.Errorf("expected no provider update, got %d", n)
	}
}

func TestStore_UpdateFailureLeavesProfile(t *testing.T) {
	store, fake, ident := newStoreWithUser(t)
	fake.SeedProfile(ident.ID, "ada", ident.Email)

	ctx := context.Background()
	if err := store.Refresh(ctx, ident); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	before, _ := store.Current()

	fake.UpdateErr[provider.TableProfiles] = &provider.DbError{Message: "backend down"}
	name := "Ada Lovelace"
	if err := store.Update(ctx, profile.Fields{FullName: &name}); err == nil {
		t.Fatal("expected update error")
	}

	after, ok := store.Current()
	if !ok {
		t.Fatal("expected profile still present")
	}
	if after != before {
		t.Errorf("profile changed despite failed update: %+v vs %+v", after, before)
	}
}

func TestStore_ClearDropsProfile(t *testing.T) {
	store, fake, ident := newStoreWithUser(t)
	fake.SeedProfile(ident.ID, "ada", ident.Email)

	ctx := context.Background()
	if err := store.Refresh(ctx, ident); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	store.Clear()

	if _, ok := store.Current(); ok {
		t.Error("expected absent profile after clear")
	}
	if err := store.Fetch(ctx); !errors.Is(err, profile.ErrNoSession) {
		t.Errorf("expected ErrNoSession after clear, got %v", err)
	}
}
