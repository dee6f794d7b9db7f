// Package catalog fetches course lists and course details and applies the
// client's failure policy to them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tutorly/internal/domain"
	"tutorly/internal/providers"
	"tutorly/internal/providers/tutorly"
	"tutorly/internal/routes"
	"tutorly/internal/session"
)

const (
	ListFailedMessage   = "Failed to load courses. Please try again."
	DetailFailedMessage = "Failed to load course details."
)

var (
	// ErrLoginRequired means the credential was missing or rejected. The
	// session has already been cleared and the user sent to login.
	ErrLoginRequired = errors.New("catalog: login required")
	// ErrLoadFailed is any other failure. Nothing is retried.
	ErrLoadFailed = errors.New("catalog: load failed")
)

type Catalog struct {
	Courses providers.CourseProvider
	Session *session.Store
	Nav     routes.Navigator
	Log     *log.Logger
}

func New(p providers.CourseProvider, s *session.Store, nav routes.Navigator) *Catalog {
	return &Catalog{Courses: p, Session: s, Nav: nav, Log: log.Default()}
}

// ListCourses queries the catalog with the filter fields that are set.
func (c *Catalog) ListCourses(ctx context.Context, f domain.CourseListFilter) ([]domain.Course, error) {
	if !c.Session.IsAuthenticated() {
		routes.RedirectToLoginPage(c.Nav)
		return nil, ErrLoginRequired
	}
	courses, err := c.Courses.ListCourses(ctx, f)
	if err != nil {
		return nil, c.fail("list courses", err)
	}
	return courses, nil
}

// GetCourse fetches one course. Without a credential nothing is requested.
func (c *Catalog) GetCourse(ctx context.Context, id int) (domain.Course, error) {
	if !c.Session.IsAuthenticated() {
		routes.RedirectToLoginPage(c.Nav)
		return domain.Course{}, ErrLoginRequired
	}
	course, err := c.Courses.GetCourse(ctx, id)
	if err != nil {
		return domain.Course{}, c.fail(fmt.Sprintf("course %d", id), err)
	}
	return course, nil
}

func (c *Catalog) fail(op string, err error) error {
	switch {
	case tutorly.IsUnauthorized(err):
		c.logf("WARN: %s: credential rejected, signing out", op)
		routes.Expire(c.Session, c.Nav)
		return ErrLoginRequired
	case errors.Is(err, tutorly.ErrNoCredential):
		routes.RedirectToLoginPage(c.Nav)
		return ErrLoginRequired
	default:
		c.logf("ERROR: %s: %v", op, err)
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
}

func (c *Catalog) logf(format string, args ...any) {
	if c.Log != nil {
		c.Log.Printf(format, args...)
	}
}
