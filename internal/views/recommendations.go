package views

import (
	"context"
	"sync"

	"tutorly/internal/domain"
	"tutorly/internal/providers/tutorly"
)

const (
	MsgRecommendationsLogin  = "You need to log in to see recommendations."
	MsgRecommendationsFailed = "Failed to fetch recommendations."
)

type RecommendationsView struct {
	app  *App
	inst instance

	mu      sync.Mutex
	state   State
	courses []domain.Course
	message string
}

func (a *App) NewRecommendations() *RecommendationsView { return &RecommendationsView{app: a} }

func (v *RecommendationsView) Load(ctx context.Context) {
	tag := v.inst.mount()

	if !v.app.Session.IsAuthenticated() {
		v.set(StateFailed, nil, MsgRecommendationsLogin)
		return
	}
	v.set(StateLoading, nil, "")

	courses, err := v.app.API.Recommendations(ctx)
	if !v.inst.current(tag) {
		return
	}
	if err != nil {
		v.app.Log.Printf("WARN: recommendations: %v", err)
		v.set(StateFailed, nil, MsgRecommendationsFailed)
		if tutorly.IsUnauthorized(err) {
			v.app.expire()
		}
		return
	}
	v.set(StateReady, courses, "")
}

func (v *RecommendationsView) Close() { v.inst.unmount() }

func (v *RecommendationsView) Cards() []CourseCard {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Cards(v.courses)
}

func (v *RecommendationsView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *RecommendationsView) Message() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.message
}

func (v *RecommendationsView) set(s State, courses []domain.Course, msg string) {
	v.mu.Lock()
	v.state = s
	v.courses = courses
	v.message = msg
	v.mu.Unlock()
}
