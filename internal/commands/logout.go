package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskpad/internal/app"
	"taskpad/internal/config"
	"taskpad/internal/exitcode"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string                { return "logout" }
func (c *LogoutCmd) Aliases() []string           { return nil }
func (c *LogoutCmd) Synopsis() string            { return "Sign out" }
func (c *LogoutCmd) Usage() string               { return "taskpad logout" }
func (c *LogoutCmd) NeedsClient() bool           { return true }
func (c *LogoutCmd) NeedsAuth() bool             { return false }
func (c *LogoutCmd) RegisterFlags(*flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(errOut, "error: logout takes no arguments")
		return exitcode.UserError
	}

	if err := a.Session.SignOut(ctx); err != nil {
		a.Status.Errorf("%v", err)
		return fail(errOut, err)
	}

	a.Status.Successf("signed out")
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
