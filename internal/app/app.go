// Package app wires the provider client, session manager, and stores
// into one explicit application state passed to commands. Nothing is
// held in package-level globals.
package app

import (
	"taskpad/internal/profile"
	"taskpad/internal/provider"
	"taskpad/internal/session"
	"taskpad/internal/status"
	"taskpad/internal/todo"
)

// App is the assembled client application state.
type App struct {
	Client  provider.Client
	Session *session.Manager
	Profile *profile.Store
	Todos   *todo.Store
	Status  *status.Area
}

// New assembles the stores and session manager around a provider
// client. The session manager refreshes the profile store before the
// task store on sign-in.
func New(client provider.Client) *App {
	profiles := profile.NewStore(client)
	todos := todo.NewStore(client)
	manager := session.NewManager(client, profiles, todos)

	return &App{
		Client:  client,
		Session: manager,
		Profile: profiles,
		Todos:   todos,
		Status:  status.NewArea(),
	}
}
