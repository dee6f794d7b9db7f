package views

import (
	"context"
	"errors"
	"strings"
	"sync"

	"tutorly/internal/catalog"
	"tutorly/internal/domain"
)

// State is the lifecycle of a data-backed view.
type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
	StateRedirected
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateRedirected:
		return "redirected"
	default:
		return "loading"
	}
}

// CourseCard is one entry of the course list.
type CourseCard struct {
	ID          int
	Title       string
	Description string
	Category    string
	Rating      string
}

type CourseListView struct {
	app  *App
	inst instance

	mu      sync.Mutex
	state   State
	filter  domain.CourseListFilter
	courses []domain.Course
	message string
}

func (a *App) NewCourseList() *CourseListView { return &CourseListView{app: a} }

func (v *CourseListView) SetFilter(f domain.CourseListFilter) {
	v.mu.Lock()
	v.filter = f
	v.mu.Unlock()
}

func (v *CourseListView) Filter() domain.CourseListFilter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Load queries the catalog with the current filter.
func (v *CourseListView) Load(ctx context.Context) {
	tag := v.inst.mount()

	v.mu.Lock()
	v.state = StateLoading
	f := v.filter
	v.mu.Unlock()

	courses, err := v.app.catalog().ListCourses(ctx, f)

	if !v.inst.current(tag) {
		v.app.Log.Printf("course list: dropping stale response")
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case errors.Is(err, catalog.ErrLoginRequired):
		v.state = StateRedirected
	case err != nil:
		v.state = StateFailed
		v.message = catalog.ListFailedMessage
	default:
		v.state = StateReady
		v.courses = courses
		v.message = ""
	}
}

func (v *CourseListView) Close() { v.inst.unmount() }

func (v *CourseListView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *CourseListView) Message() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.message
}

func (v *CourseListView) Courses() []domain.Course {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Course(nil), v.courses...)
}

func (v *CourseListView) Cards() []CourseCard {
	return Cards(v.Courses())
}

// Cards renders courses the way list screens show them.
func Cards(courses []domain.Course) []CourseCard {
	out := make([]CourseCard, 0, len(courses))
	for _, c := range courses {
		category := strings.TrimSpace(c.Category)
		if category == "" {
			category = "Others"
		}
		out = append(out, CourseCard{
			ID:          c.ID,
			Title:       c.Title,
			Description: c.Description,
			Category:    category,
			Rating:      c.RatingLabel(),
		})
	}
	return out
}
