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
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string                { return "help" }
func (c *HelpCmd) Aliases() []string           { return []string{"h"} }
func (c *HelpCmd) Synopsis() string            { return "Show help" }
func (c *HelpCmd) Usage() string               { return "taskpad help [command]" }
func (c *HelpCmd) NeedsClient() bool           { return false }
func (c *HelpCmd) NeedsAuth() bool             { return false }
func (c *HelpCmd) RegisterFlags(*flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) == 1 {
		cmd, ok := DefaultRegistry.Find(args[0])
		if !ok {
			fmt.Fprintf(errOut, "error: unknown command %q\n", args[0])
			return exitcode.UserError
		}
		fmt.Fprintf(out, "%s\n\nusage: %s\n", cmd.Synopsis(), cmd.Usage())
		return exitcode.Success
	}

	fmt.Fprintln(out, "taskpad - a todo list in your terminal")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "usage: taskpad [flags] <command> [args]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "commands:")
	for _, cmd := range DefaultRegistry.All() {
		fmt.Fprintf(out, "  %-10s %s\n", cmd.Name(), cmd.Synopsis())
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "flags:")
	fmt.Fprintln(out, "  --config <dir>  config directory")
	fmt.Fprintln(out, "  --quiet         suppress ok output")
	fmt.Fprintln(out, "  --debug         log backend activity to stderr")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "environment:\n")
	fmt.Fprintf(out, "  %s       backend base URL\n", config.EnvProviderURL)
	fmt.Fprintf(out, "  %s  backend anon key\n", config.EnvAnonKey)
	return exitcode.Success
}
