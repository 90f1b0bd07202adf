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
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string                { return "rm" }
func (c *RmCmd) Aliases() []string           { return []string{"delete"} }
func (c *RmCmd) Synopsis() string            { return "Delete a task" }
func (c *RmCmd) Usage() string               { return "taskpad rm <number>" }
func (c *RmCmd) NeedsClient() bool           { return true }
func (c *RmCmd) NeedsAuth() bool             { return true }
func (c *RmCmd) RegisterFlags(*flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	task, code := resolveTask(ctx, a, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if err := a.Todos.Delete(ctx, task.ID); err != nil {
		a.Status.Errorf("%v", err)
		return fail(errOut, err)
	}

	a.Status.Successf("task deleted")
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
