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
	Register(&ListCmd{})
}

// ListCmd implements the list command.
type ListCmd struct{}

func (c *ListCmd) Name() string                { return "list" }
func (c *ListCmd) Aliases() []string           { return []string{"ls"} }
func (c *ListCmd) Synopsis() string            { return "List tasks" }
func (c *ListCmd) Usage() string               { return "taskpad list" }
func (c *ListCmd) NeedsClient() bool           { return true }
func (c *ListCmd) NeedsAuth() bool             { return true }
func (c *ListCmd) RegisterFlags(*flag.FlagSet) {}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(errOut, "error: list takes no arguments")
		return exitcode.UserError
	}

	if err := a.Todos.Fetch(ctx); err != nil {
		a.Status.Errorf("%v", err)
		return fail(errOut, err)
	}

	tasks := a.Todos.Tasks()
	if len(tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks")
		}
		return exitcode.Success
	}
	for i, t := range tasks {
		output.FormatTask(out, i+1, t)
	}
	return exitcode.Success
}
