package views

import (
	"context"
	"sync"

	"tutorly/internal/domain"
	"tutorly/internal/providers/tutorly"
	"tutorly/internal/routes"
)

const (
	MsgRegistered  = "Registration successful! Logging in..."
	MsgLoggedIn    = "Login successful! Redirecting..."
	MsgLoginFailed = "Login failed. Check your credentials."
)

// AuthView is the combined login and register screen.
type AuthView struct {
	app *App

	mu      sync.Mutex
	message string
}

func (a *App) NewAuthView() *AuthView { return &AuthView{app: a} }

// Login stores the returned credential and moves to the course list.
func (v *AuthView) Login(ctx context.Context, username, password string) error {
	resp, err := v.app.API.Login(ctx, domain.LoginRequest{Username: username, Password: password})
	if err != nil {
		v.app.Log.Printf("WARN: login %s: %v", username, err)
		v.setMessage(MsgLoginFailed)
		return err
	}
	if err := v.app.Session.Set(resp.AccessToken); err != nil {
		v.app.Log.Printf("ERROR: store credential: %v", err)
		v.setMessage(MsgLoginFailed)
		return err
	}
	v.setMessage(MsgLoggedIn)
	v.app.Nav.Navigate(routes.PathCourses)
	return nil
}

// Register creates the account and then logs in with the same credentials.
func (v *AuthView) Register(ctx context.Context, username, email, password string) error {
	err := v.app.API.Register(ctx, domain.RegisterRequest{Username: username, Email: email, Password: password})
	if err != nil {
		msg := tutorly.ServerMessage(err)
		if msg == "" {
			msg = err.Error()
		}
		v.setMessage("Error: " + msg)
		return err
	}
	v.setMessage(MsgRegistered)
	return v.Login(ctx, username, password)
}

func (v *AuthView) Message() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.message
}

func (v *AuthView) setMessage(m string) {
	v.mu.Lock()
	v.message = m
	v.mu.Unlock()
}
