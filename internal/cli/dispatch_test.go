package cli_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"taskpad/internal/app"
	"taskpad/internal/cli"
	"taskpad/internal/commands"
	"taskpad/internal/config"
	"taskpad/internal/exitcode"
	"taskpad/internal/testutil"
)

// testFactory builds apps over the given FakeProvider.
func testFactory(fake *testutil.FakeProvider) cli.AppFactory {
	return func(ctx context.Context, cfg *config.Config) (*app.App, error) {
		return app.New(fake), nil
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	fake := testutil.NewFakeProvider()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(fake))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"unknowncmd"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	fake := testutil.NewFakeProvider()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(fake))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"--quiet"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_HelpWithoutClient(t *testing.T) {
	// help must run even when no backend is configured; the factory
	// would fail loudly if consulted.
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry,
		func(ctx context.Context, cfg *config.Config) (*app.App, error) {
			t.Fatal("factory must not be called for help")
			return nil, nil
		})

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"help"}, &stdout, &stderr)

	if code != exitcode.Success {
		t.Fatalf("expected success, got %d (stderr %q)", code, stderr.String())
	}
	if stdout.Len() == 0 {
		t.Error("expected help output")
	}
}

func TestDispatcher_DefaultsToList(t *testing.T) {
	fake := testutil.NewFakeProvider()
	ident := fake.AddUser("ada@example.com", "hunter22")
	fake.SetSession(ident)
	fake.SeedProfile(ident.ID, "ada", ident.Email)
	fake.SeedTask(ident.ID, "task-a", "hello", false)

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(fake))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), nil, &stdout, &stderr)

	if code != exitcode.Success {
		t.Fatalf("expected success, got %d (stderr %q)", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "hello") {
		t.Errorf("expected task listing, got %q", stdout.String())
	}
}

func TestDispatcher_AuthRequiredWithoutSession(t *testing.T) {
	fake := testutil.NewFakeProvider()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(fake))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"list"}, &stdout, &stderr)

	if code != exitcode.AuthError {
		t.Fatalf("expected auth error, got %d", code)
	}
	expected := "error: not signed in (run: taskpad login)\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	fake := testutil.NewFakeProvider()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(fake))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"version", "--bogus"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Fatalf("expected user error, got %d", code)
	}
	if !strings.Contains(stderr.String(), "unknown flag") {
		t.Errorf("expected unknown flag error, got %q", stderr.String())
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	fake := testutil.NewFakeProvider()
	fake.AddUser("ada@example.com", "hunter22")
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(fake))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"login", "--password"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Fatalf("expected user error, got %d", code)
	}
	if !strings.Contains(stderr.String(), "flag needs an argument") {
		t.Errorf("expected missing-value error, got %q", stderr.String())
	}
}

func TestDispatcher_CommandAlias(t *testing.T) {
	fake := testutil.NewFakeProvider()
	ident := fake.AddUser("ada@example.com", "hunter22")
	fake.SetSession(ident)
	fake.SeedProfile(ident.ID, "ada", ident.Email)

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(fake))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"ls"}, &stdout, &stderr)

	if code != exitcode.Success {
		t.Fatalf("expected success via alias, got %d (stderr %q)", code, stderr.String())
	}
}

func TestDispatcher_QuietFlag(t *testing.T) {
	fake := testutil.NewFakeProvider()
	ident := fake.AddUser("ada@example.com", "hunter22")
	fake.SetSession(ident)
	fake.SeedProfile(ident.ID, "ada", ident.Email)

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(fake))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"add", "--quiet", "silent task"}, &stdout, &stderr)

	if code != exitcode.Success {
		t.Fatalf("expected success, got %d (stderr %q)", code, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no stdout in quiet mode, got %q", stdout.String())
	}
}
