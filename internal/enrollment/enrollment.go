// Package enrollment drives the enroll action and the rating/feedback form
// of a course detail view.
package enrollment

import (
	"context"
	"errors"
	"log"
	"sync"

	"tutorly/internal/domain"
	"tutorly/internal/providers"
	"tutorly/internal/providers/tutorly"
	"tutorly/internal/session"
)

const (
	MsgEnrollLoginRequired   = "You must be logged in to enroll."
	MsgEnrollFailed          = "Enrollment failed. Please try again."
	MsgFeedbackLoginRequired = "You must be logged in to submit feedback."
	MsgFeedbackFailed        = "Failed to submit feedback. Please try again."
	MsgSelectRating          = "Please select a rating between 1 and 5."
)

var ErrLoginRequired = errors.New("enrollment: login required")

// Controller owns the view's course snapshot, its status message and the
// feedback form fields.
type Controller struct {
	api  providers.EnrollmentProvider
	sess *session.Store
	log  *log.Logger

	// OnUnauthorized runs when the service rejects the credential.
	OnUnauthorized func()

	mu       sync.Mutex
	course   domain.Course
	message  string
	rating   domain.Rating
	feedback string
}

func New(course domain.Course, api providers.EnrollmentProvider, sess *session.Store) *Controller {
	return &Controller{course: course, api: api, sess: sess, log: log.Default()}
}

func (c *Controller) SetLogger(l *log.Logger) { c.log = l }

// Enroll asks the service to enroll the user. On success the server's
// message is shown verbatim and the snapshot is marked enrolled.
func (c *Controller) Enroll(ctx context.Context) error {
	if !c.sess.IsAuthenticated() {
		c.setMessage(MsgEnrollLoginRequired)
		return ErrLoginRequired
	}

	c.mu.Lock()
	id := c.course.ID
	c.mu.Unlock()

	msg, err := c.api.Enroll(ctx, id)
	if err != nil {
		c.log.Printf("WARN: enroll course %d: %v", id, err)
		c.setMessage(MsgEnrollFailed)
		c.unauthorized(err)
		return err
	}

	c.mu.Lock()
	c.course.Enrolled = true
	c.message = msg
	c.mu.Unlock()
	return nil
}

func (c *Controller) SetRating(r domain.Rating) error {
	if !r.Valid() {
		return domain.ErrInvalidRating
	}
	c.mu.Lock()
	c.rating = r
	c.mu.Unlock()
	return nil
}

// SelectRating sets the rating from a form value such as "4".
func (c *Controller) SelectRating(s string) error {
	r, err := domain.ParseRating(s)
	if err != nil {
		return err
	}
	return c.SetRating(r)
}

func (c *Controller) SetFeedback(s string) {
	c.mu.Lock()
	c.feedback = s
	c.mu.Unlock()
}

// SubmitFeedback sends the current form. Success clears both fields.
func (c *Controller) SubmitFeedback(ctx context.Context) error {
	if !c.sess.IsAuthenticated() {
		c.setMessage(MsgFeedbackLoginRequired)
		return ErrLoginRequired
	}

	c.mu.Lock()
	id := c.course.ID
	sub := domain.FeedbackSubmission{Rating: c.rating, Feedback: c.feedback}
	c.mu.Unlock()

	if !sub.Rating.Valid() {
		c.setMessage(MsgSelectRating)
		return domain.ErrInvalidRating
	}

	msg, err := c.api.Rate(ctx, id, sub)
	if err != nil {
		c.log.Printf("WARN: rate course %d: %v", id, err)
		c.setMessage(MsgFeedbackFailed)
		c.unauthorized(err)
		return err
	}

	c.mu.Lock()
	c.message = msg
	c.rating = 0
	c.feedback = ""
	c.mu.Unlock()
	return nil
}

// Submit fills the form and sends it.
func (c *Controller) Submit(ctx context.Context, rating domain.Rating, feedback string) error {
	c.mu.Lock()
	c.rating = rating
	c.feedback = feedback
	c.mu.Unlock()
	return c.SubmitFeedback(ctx)
}

func (c *Controller) Course() domain.Course {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.course
}

func (c *Controller) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

func (c *Controller) Rating() domain.Rating {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rating
}

func (c *Controller) Feedback() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feedback
}

func (c *Controller) setMessage(m string) {
	c.mu.Lock()
	c.message = m
	c.mu.Unlock()
}

func (c *Controller) unauthorized(err error) {
	if c.OnUnauthorized != nil && (tutorly.IsUnauthorized(err) || errors.Is(err, tutorly.ErrNoCredential)) {
		c.OnUnauthorized()
	}
}
