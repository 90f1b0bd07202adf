package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"taskpad/internal/app"
	"taskpad/internal/config"
	"taskpad/internal/exitcode"
	"taskpad/internal/todo"
)

func init() {
	Register(&DoneCmd{})
	Register(&UndoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string                { return "done" }
func (c *DoneCmd) Aliases() []string           { return nil }
func (c *DoneCmd) Synopsis() string            { return "Mark a task completed" }
func (c *DoneCmd) Usage() string               { return "taskpad done <number>" }
func (c *DoneCmd) NeedsClient() bool           { return true }
func (c *DoneCmd) NeedsAuth() bool             { return true }
func (c *DoneCmd) RegisterFlags(*flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	return setCompleted(ctx, cfg, a, args, out, errOut, true, "task completed")
}

// UndoneCmd implements the undone command.
type UndoneCmd struct{}

func (c *UndoneCmd) Name() string                { return "undone" }
func (c *UndoneCmd) Aliases() []string           { return nil }
func (c *UndoneCmd) Synopsis() string            { return "Mark a task not completed" }
func (c *UndoneCmd) Usage() string               { return "taskpad undone <number>" }
func (c *UndoneCmd) NeedsClient() bool           { return true }
func (c *UndoneCmd) NeedsAuth() bool             { return true }
func (c *UndoneCmd) RegisterFlags(*flag.FlagSet) {}

func (c *UndoneCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	return setCompleted(ctx, cfg, a, args, out, errOut, false, "task reopened")
}

// setCompleted resolves a 1-based list position against a fresh fetch
// and toggles the task when its state differs from the target.
func setCompleted(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer, completed bool, okStatus string) int {
	task, code := resolveTask(ctx, a, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if task.Completed != completed {
		if err := a.Todos.Toggle(ctx, task.ID, task.Completed); err != nil {
			a.Status.Errorf("%v", err)
			return fail(errOut, err)
		}
	}

	a.Status.Successf(okStatus)
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// resolveTask fetches the current list and returns the task at the
// 1-based position given in args.
func resolveTask(ctx context.Context, a *app.App, args []string, errOut io.Writer) (todo.Task, int) {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: task number required")
		return todo.Task{}, exitcode.UserError
	}
	num, err := strconv.Atoi(args[0])
	if err != nil || num < 1 {
		fmt.Fprintf(errOut, "error: invalid task number %q\n", args[0])
		return todo.Task{}, exitcode.UserError
	}

	if err := a.Todos.Fetch(ctx); err != nil {
		a.Status.Errorf("%v", err)
		return todo.Task{}, fail(errOut, err)
	}

	tasks := a.Todos.Tasks()
	if num > len(tasks) {
		fmt.Fprintf(errOut, "error: no task %d (have %d)\n", num, len(tasks))
		return todo.Task{}, exitcode.UserError
	}
	return tasks[num-1], exitcode.Success
}
