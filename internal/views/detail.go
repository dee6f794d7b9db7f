package views

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tutorly/internal/catalog"
	"tutorly/internal/domain"
	"tutorly/internal/enrollment"
	"tutorly/internal/progress"
	"tutorly/internal/resources"
	"tutorly/internal/routes"
)

const NoSyllabusMessage = "No syllabus available"

var ErrNotReady = errors.New("views: course not loaded")

// CourseDetailView joins the course snapshot, the learner's progress, the
// enrollment/feedback controller and the public feedback list.
type CourseDetailView struct {
	app  *App
	id   int
	inst instance

	mu       sync.Mutex
	state    State
	message  string
	tracker  *progress.Tracker
	ctrl     *enrollment.Controller
	feedback []domain.Interaction
}

func (a *App) NewCourseDetail(id int) *CourseDetailView {
	return &CourseDetailView{app: a, id: id}
}

// Open (re)enters the view: the course, the progress set and the feedback
// list are fetched concurrently and applied only if this entry is still the
// current one.
func (v *CourseDetailView) Open(ctx context.Context) error {
	tag := v.inst.mount()

	v.mu.Lock()
	if v.tracker != nil {
		v.tracker.Close()
	}
	v.state = StateLoading
	v.message = ""
	v.tracker, v.ctrl, v.feedback = nil, nil, nil
	v.mu.Unlock()

	if !v.app.Session.IsAuthenticated() {
		routes.RedirectToLoginPage(v.app.Nav)
		v.setState(StateRedirected, "")
		return catalog.ErrLoginRequired
	}

	tr := progress.New(v.id, v.app.API)
	tr.SetLogger(v.app.Log)
	tr.OnUnauthorized = v.app.expire

	var (
		wg        sync.WaitGroup
		course    domain.Course
		courseErr error
		feedback  []domain.Interaction
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		course, courseErr = v.app.catalog().GetCourse(ctx, v.id)
	}()
	go func() {
		defer wg.Done()
		tr.Load(ctx)
	}()
	go func() {
		defer wg.Done()
		list, err := v.app.API.CourseFeedback(ctx, v.id)
		if err != nil {
			v.app.Log.Printf("WARN: course %d: feedback list: %v", v.id, err)
			return
		}
		feedback = list
	}()
	wg.Wait()

	if !v.inst.current(tag) {
		tr.Close()
		v.app.Log.Printf("course %d: dropping stale response", v.id)
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case errors.Is(courseErr, catalog.ErrLoginRequired):
		tr.Close()
		v.state = StateRedirected
		return courseErr
	case courseErr != nil:
		tr.Close()
		v.state = StateFailed
		v.message = catalog.DetailFailedMessage
		return courseErr
	}

	ctrl := enrollment.New(course, v.app.API, v.app.Session)
	ctrl.SetLogger(v.app.Log)
	ctrl.OnUnauthorized = v.app.expire

	v.tracker = tr
	v.ctrl = ctrl
	v.feedback = feedback
	v.state = StateReady
	return nil
}

// Close leaves the view. In-flight progress saves still complete.
func (v *CourseDetailView) Close() {
	v.inst.unmount()
	v.mu.Lock()
	if v.tracker != nil {
		v.tracker.Close()
	}
	v.mu.Unlock()
}

// Toggle flips the completion of topic i.
func (v *CourseDetailView) Toggle(ctx context.Context, i int) error {
	tr, ctrl := v.parts()
	if tr == nil {
		return ErrNotReady
	}
	if total := ctrl.Course().TotalTopics(); i < 0 || i >= total {
		return fmt.Errorf("%w: %d of %d", progress.ErrInvalidTopic, i, total)
	}
	_, err := tr.Toggle(ctx, i)
	return err
}

func (v *CourseDetailView) Enroll(ctx context.Context) error {
	_, ctrl := v.parts()
	if ctrl == nil {
		return ErrNotReady
	}
	return ctrl.Enroll(ctx)
}

// Rate submits a rating and optional feedback text. On success the public
// feedback list is refreshed.
func (v *CourseDetailView) Rate(ctx context.Context, rating domain.Rating, feedback string) error {
	_, ctrl := v.parts()
	if ctrl == nil {
		return ErrNotReady
	}
	if err := ctrl.Submit(ctx, rating, feedback); err != nil {
		return err
	}

	list, err := v.app.API.CourseFeedback(ctx, v.id)
	if err != nil {
		v.app.Log.Printf("WARN: course %d: feedback list: %v", v.id, err)
		return nil
	}
	v.mu.Lock()
	if v.ctrl == ctrl {
		v.feedback = list
	}
	v.mu.Unlock()
	return nil
}

// Wait blocks until pending progress saves are done.
func (v *CourseDetailView) Wait() {
	if tr, _ := v.parts(); tr != nil {
		tr.Wait()
	}
}

func (v *CourseDetailView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *CourseDetailView) parts() (*progress.Tracker, *enrollment.Controller) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateReady {
		return nil, nil
	}
	return v.tracker, v.ctrl
}

func (v *CourseDetailView) setState(s State, msg string) {
	v.mu.Lock()
	v.state = s
	v.message = msg
	v.mu.Unlock()
}

// Topic is one syllabus line.
type Topic struct {
	Index int
	Title string
	Done  bool
}

// CourseDetail is everything the detail screen shows.
type CourseDetail struct {
	State       State
	Message     string
	Title       string
	Description string
	Instructor  string
	Price       string
	Duration    string
	Category    string
	Rating      string
	Enrolled    bool
	Topics      []Topic
	Syllabus    string
	Progress    string
	Resources   []resources.Item
	Feedback    []domain.Interaction
}

// Model snapshots the view for rendering.
func (v *CourseDetailView) Model() CourseDetail {
	v.mu.Lock()
	state, msg, tr, ctrl := v.state, v.message, v.tracker, v.ctrl
	feedback := append([]domain.Interaction(nil), v.feedback...)
	v.mu.Unlock()

	d := CourseDetail{State: state, Message: msg}
	if state != StateReady {
		return d
	}

	c := ctrl.Course()
	d.Message = ctrl.Message()
	d.Title = c.Title
	d.Description = c.Description
	d.Instructor = c.InstructorLabel()
	d.Price = c.PriceLabel()
	d.Duration = c.DurationLabel()
	d.Category = c.CategoryLabel()
	d.Rating = c.RatingLabel()
	d.Enrolled = c.Enrolled
	d.Resources = resources.Normalize(c.Resources)
	d.Feedback = feedback

	for i, title := range c.Topics() {
		d.Topics = append(d.Topics, Topic{Index: i, Title: title, Done: tr.IsCompleted(i)})
	}
	if len(d.Topics) == 0 {
		d.Syllabus = NoSyllabusMessage
	}
	d.Progress = tr.Summary(len(d.Topics)) + " topics completed"
	return d
}
