package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskpad/internal/app"
	"taskpad/internal/config"
	"taskpad/internal/exitcode"
	"taskpad/internal/output"
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd implements the whoami command.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string                { return "whoami" }
func (c *WhoamiCmd) Aliases() []string           { return nil }
func (c *WhoamiCmd) Synopsis() string            { return "Show the signed-in user" }
func (c *WhoamiCmd) Usage() string               { return "taskpad whoami" }
func (c *WhoamiCmd) NeedsClient() bool           { return true }
func (c *WhoamiCmd) NeedsAuth() bool             { return true }
func (c *WhoamiCmd) RegisterFlags(*flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(errOut, "error: whoami takes no arguments")
		return exitcode.UserError
	}

	ident, ok := a.Session.Current()
	if !ok {
		fmt.Fprintln(errOut, "error: not signed in")
		return exitcode.AuthError
	}
	output.FormatIdentity(out, ident)
	return exitcode.Success
}
