package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"taskpad/internal/app"
	"taskpad/internal/config"
	"taskpad/internal/exitcode"
	"taskpad/internal/session"
)

func init() {
	Register(&SignupCmd{})
}

// SignupCmd implements the signup command.
type SignupCmd struct {
	password string
}

// SetPassword sets the password (for testing).
func (c *SignupCmd) SetPassword(pw string) {
	c.password = pw
}

func (c *SignupCmd) Name() string      { return "signup" }
func (c *SignupCmd) Aliases() []string { return nil }
func (c *SignupCmd) Synopsis() string  { return "Create an account" }
func (c *SignupCmd) Usage() string     { return "taskpad signup --password <password> <email> <username>" }
func (c *SignupCmd) NeedsClient() bool { return true }
func (c *SignupCmd) NeedsAuth() bool   { return false }

func (c *SignupCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
}

func (c *SignupCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(errOut, "error: email and username required")
		return exitcode.UserError
	}
	email, username := args[0], args[1]

	err := a.Session.SignUp(ctx, email, username, c.password)
	if errors.Is(err, session.ErrProfileSetup) {
		// The identity exists but has no profile; make this failure
		// mode visible as its own condition, not a generic error.
		a.Status.Warningf("account created but profile setup failed")
		fmt.Fprintf(errOut, "warning: %v\n", err)
		return exitcode.BackendError
	}
	if err != nil {
		a.Status.Errorf("%v", err)
		return fail(errOut, err)
	}

	a.Status.Successf("account created")
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
