// Package views holds the client's screens. Each view owns its state behind
// a mutex, issues remote calls without holding it, and drops responses that
// arrive after it was closed or reopened.
package views

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"tutorly/internal/catalog"
	"tutorly/internal/providers"
	"tutorly/internal/routes"
	"tutorly/internal/session"
)

// App bundles what every view needs.
type App struct {
	API     providers.Service
	Session *session.Store
	Nav     routes.Navigator
	Routes  *routes.Table
	Log     *log.Logger
}

func NewApp(api providers.Service, s *session.Store, nav routes.Navigator) *App {
	return &App{
		API:     api,
		Session: s,
		Nav:     nav,
		Routes:  routes.NewTable(),
		Log:     log.Default(),
	}
}

// Visit resolves path and, when the guard refuses it, navigates to login.
func (a *App) Visit(path string) routes.Match {
	m := a.Routes.Resolve(path, a.Session)
	if m.Decision == routes.RedirectToLogin {
		routes.RedirectToLoginPage(a.Nav)
	}
	return m
}

// Logout clears the stored credential and returns to the login view.
func (a *App) Logout() {
	if err := a.Session.Clear(); err != nil {
		a.Log.Printf("WARN: logout: %v", err)
	}
	a.Nav.Navigate(routes.PathLogin)
}

func (a *App) expire() { routes.Expire(a.Session, a.Nav) }

func (a *App) catalog() *catalog.Catalog {
	c := catalog.New(a.API, a.Session, a.Nav)
	c.Log = a.Log
	return c
}

// instance tags each mount of a view so late responses can be recognized.
type instance struct {
	mu      sync.Mutex
	tag     uuid.UUID
	mounted bool
}

func (i *instance) mount() uuid.UUID {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tag = uuid.New()
	i.mounted = true
	return i.tag
}

func (i *instance) current(tag uuid.UUID) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mounted && i.tag == tag
}

func (i *instance) unmount() {
	i.mu.Lock()
	i.mounted = false
	i.mu.Unlock()
}
