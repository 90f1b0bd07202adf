package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskpad/internal/app"
	"taskpad/internal/config"
	"taskpad/internal/exitcode"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct{}

func (c *AddCmd) Name() string                { return "add" }
func (c *AddCmd) Aliases() []string           { return []string{"a"} }
func (c *AddCmd) Synopsis() string            { return "Add a task" }
func (c *AddCmd) Usage() string               { return "taskpad add <text...>" }
func (c *AddCmd) NeedsClient() bool           { return true }
func (c *AddCmd) NeedsAuth() bool             { return true }
func (c *AddCmd) RegisterFlags(*flag.FlagSet) {}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: task text required")
		return exitcode.UserError
	}
	text := strings.Join(args, " ")

	if err := a.Todos.Add(ctx, text); err != nil {
		a.Status.Errorf("%v", err)
		return fail(errOut, err)
	}

	a.Status.Successf("task added")
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
