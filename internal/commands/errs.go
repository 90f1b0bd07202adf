package commands

import (
	"errors"
	"fmt"
	"io"

	"taskpad/internal/exitcode"
	"taskpad/internal/profile"
	"taskpad/internal/provider"
	"taskpad/internal/session"
	"taskpad/internal/todo"
)

// fail prints err and maps it to an exit code: validation failures are
// user errors, provider auth rejections are auth errors, everything
// else is a backend error.
func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)

	switch {
	case errors.Is(err, session.ErrMissingFields),
		errors.Is(err, session.ErrPasswordTooShort),
		errors.Is(err, todo.ErrEmptyText),
		errors.Is(err, profile.ErrNoFields),
		errors.Is(err, profile.ErrNotLoaded):
		return exitcode.UserError
	case errors.Is(err, todo.ErrNoSession),
		errors.Is(err, profile.ErrNoSession):
		return exitcode.AuthError
	}

	var authErr *provider.AuthError
	if errors.As(err, &authErr) {
		return exitcode.AuthError
	}
	return exitcode.BackendError
}
