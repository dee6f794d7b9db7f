package views

import (
	"context"
	"errors"
	"sync"

	"tutorly/internal/domain"
	"tutorly/internal/providers/tutorly"
	"tutorly/internal/routes"
)

const (
	MsgProfileLoadFailed    = "Failed to load profile. Please log in again."
	MsgProfileUpdated       = "Profile updated successfully!"
	MsgProfileUpdateFailed  = "Failed to update profile."
	MsgPasswordChanged      = "Password changed successfully!"
	MsgPasswordChangeFailed = "Failed to change password."
)

type ProfileView struct {
	app  *App
	inst instance

	mu      sync.Mutex
	state   State
	profile domain.Profile
	message string
}

func (a *App) NewProfile() *ProfileView { return &ProfileView{app: a} }

// Load fetches the profile. Any failure sends the user back to login.
func (v *ProfileView) Load(ctx context.Context) {
	tag := v.inst.mount()
	v.setState(StateLoading)

	if !v.app.Session.IsAuthenticated() {
		routes.RedirectToLoginPage(v.app.Nav)
		v.setState(StateRedirected)
		return
	}

	p, err := v.app.API.Profile(ctx)
	if !v.inst.current(tag) {
		return
	}
	if err != nil {
		v.app.Log.Printf("WARN: profile: %v", err)
		v.mu.Lock()
		v.state = StateRedirected
		v.message = MsgProfileLoadFailed
		v.mu.Unlock()
		if tutorly.IsUnauthorized(err) {
			v.app.expire()
		} else {
			routes.RedirectToLoginPage(v.app.Nav)
		}
		return
	}

	v.mu.Lock()
	v.profile = p
	v.state = StateReady
	v.mu.Unlock()
}

func (v *ProfileView) Close() { v.inst.unmount() }

// Update saves username and email. Empty values are left unchanged.
func (v *ProfileView) Update(ctx context.Context, username, email string) error {
	_, err := v.app.API.UpdateProfile(ctx, domain.ProfileUpdate{Username: username, Email: email})
	if err != nil {
		v.fail("update profile", MsgProfileUpdateFailed, err)
		return err
	}

	v.mu.Lock()
	if username != "" {
		v.profile.Username = username
	}
	if email != "" {
		v.profile.Email = email
	}
	v.message = MsgProfileUpdated
	v.mu.Unlock()
	return nil
}

func (v *ProfileView) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if newPassword == "" {
		err := errors.New("views: new password is empty")
		v.fail("change password", MsgPasswordChangeFailed, err)
		return err
	}
	_, err := v.app.API.ChangePassword(ctx, domain.PasswordChange{OldPassword: oldPassword, NewPassword: newPassword})
	if err != nil {
		v.fail("change password", MsgPasswordChangeFailed, err)
		return err
	}
	v.mu.Lock()
	v.message = MsgPasswordChanged
	v.mu.Unlock()
	return nil
}

func (v *ProfileView) fail(op, msg string, err error) {
	v.app.Log.Printf("WARN: %s: %v", op, err)
	v.mu.Lock()
	v.message = msg
	v.mu.Unlock()
	if tutorly.IsUnauthorized(err) {
		v.app.expire()
	}
}

func (v *ProfileView) Profile() domain.Profile {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.profile
}

func (v *ProfileView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *ProfileView) Message() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.message
}

func (v *ProfileView) setState(s State) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
}
