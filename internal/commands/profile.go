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
	"taskpad/internal/profile"
)

func init() {
	Register(&ProfileCmd{})
}

// ProfileCmd implements the profile command. With no flags it shows
// the profile; --name and --avatar update fields.
type ProfileCmd struct {
	name      string
	avatar    string
	nameSet   bool
	avatarSet bool
}

func (c *ProfileCmd) Name() string      { return "profile" }
func (c *ProfileCmd) Aliases() []string { return nil }
func (c *ProfileCmd) Synopsis() string  { return "Show or update the profile" }
func (c *ProfileCmd) Usage() string {
	return "taskpad profile [--name <full name>] [--avatar <url>]"
}
func (c *ProfileCmd) NeedsClient() bool { return true }
func (c *ProfileCmd) NeedsAuth() bool   { return true }

func (c *ProfileCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.Func("name", "", func(v string) error {
		c.name, c.nameSet = v, true
		return nil
	})
	fs.Func("avatar", "", func(v string) error {
		c.avatar, c.avatarSet = v, true
		return nil
	})
}

// SetFields sets the update fields (for testing).
func (c *ProfileCmd) SetFields(name, avatar *string) {
	if name != nil {
		c.name, c.nameSet = *name, true
	}
	if avatar != nil {
		c.avatar, c.avatarSet = *avatar, true
	}
}

func (c *ProfileCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(errOut, "error: profile takes no arguments")
		return exitcode.UserError
	}

	if c.nameSet || c.avatarSet {
		var fields profile.Fields
		if c.nameSet {
			fields.FullName = &c.name
		}
		if c.avatarSet {
			fields.AvatarURL = &c.avatar
		}
		if err := a.Profile.Update(ctx, fields); err != nil {
			a.Status.Errorf("%v", err)
			return fail(errOut, err)
		}
		a.Status.Successf("profile updated")
		if !cfg.Quiet {
			fmt.Fprintln(out, "ok")
		}
		return exitcode.Success
	}

	if err := a.Profile.Fetch(ctx); err != nil {
		a.Status.Errorf("%v", err)
		return fail(errOut, err)
	}
	p, ok := a.Profile.Current()
	if !ok {
		fmt.Fprintln(errOut, "error: profile not found")
		return exitcode.BackendError
	}
	output.FormatProfile(out, p)
	return exitcode.Success
}
