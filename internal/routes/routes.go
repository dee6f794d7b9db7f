// Package routes maps client paths to views and decides whether a view may
// render for the current session.
package routes

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"tutorly/internal/session"
)

type View string

const (
	ViewHome            View = "home"
	ViewLogin           View = "login"
	ViewLogout          View = "logout"
	ViewCourseList      View = "courses"
	ViewCourseDetail    View = "course"
	ViewRecommendations View = "recommendations"
	ViewProfile         View = "profile"
	ViewNotFound        View = "not-found"
)

const (
	PathHome            = "/"
	PathLogin           = "/login"
	PathLogout          = "/logout"
	PathCourses         = "/courses"
	PathRecommendations = "/recommendations"
	PathProfile         = "/profile"
)

// Decision is the outcome of the guard check.
type Decision int

const (
	Render Decision = iota
	RedirectToLogin
)

func (d Decision) String() string {
	if d == RedirectToLogin {
		return "redirect-to-login"
	}
	return "render"
}

// Guard is the whole access policy: protected views need a stored credential.
// It never contacts the remote service.
func Guard(protected bool, s *session.Store) Decision {
	if protected && !s.IsAuthenticated() {
		return RedirectToLogin
	}
	return Render
}

// Match is a resolved path.
type Match struct {
	View      View
	Vars      map[string]string
	Protected bool
	Decision  Decision
}

// CourseID returns the {id} segment of a course detail match.
func (m Match) CourseID() (int, error) {
	id, err := strconv.Atoi(m.Vars["id"])
	if err != nil {
		return 0, fmt.Errorf("routes: course id %q: %w", m.Vars["id"], err)
	}
	return id, nil
}

// Table is the client route table.
type Table struct {
	router    *mux.Router
	protected map[View]bool
}

func NewTable() *Table {
	t := &Table{router: mux.NewRouter(), protected: map[View]bool{}}
	t.add(PathHome, ViewHome, false)
	t.add(PathLogin, ViewLogin, false)
	t.add(PathLogout, ViewLogout, false)
	t.add(PathCourses, ViewCourseList, true)
	t.add(PathCourses+"/{id:[0-9]+}", ViewCourseDetail, true)
	t.add(PathRecommendations, ViewRecommendations, true)
	t.add(PathProfile, ViewProfile, true)
	return t
}

func (t *Table) add(path string, v View, protected bool) {
	t.router.NewRoute().Path(path).Name(string(v))
	t.protected[v] = protected
}

// Protected reports whether v requires a credential.
func (t *Table) Protected(v View) bool { return t.protected[v] }

// Resolve matches path and applies Guard. Unknown paths resolve to
// ViewNotFound, which always renders.
func (t *Table) Resolve(path string, s *session.Store) Match {
	if path == "" {
		path = PathHome
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return Match{View: ViewNotFound, Decision: Render}
	}

	var rm mux.RouteMatch
	if !t.router.Match(req, &rm) || rm.Route == nil {
		return Match{View: ViewNotFound, Decision: Render}
	}

	v := View(rm.Route.GetName())
	m := Match{View: v, Vars: rm.Vars, Protected: t.protected[v]}
	m.Decision = Guard(m.Protected, s)
	return m
}

func CoursePath(id int) string { return PathCourses + "/" + strconv.Itoa(id) }

// Navigator performs client-side navigation.
type Navigator interface {
	Navigate(path string)
}

// History is an in-memory Navigator that remembers every navigation.
type History struct {
	mu    sync.Mutex
	paths []string
}

func NewHistory(start string) *History {
	return &History{paths: []string{start}}
}

func (h *History) Navigate(path string) {
	h.mu.Lock()
	h.paths = append(h.paths, path)
	h.mu.Unlock()
}

func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.paths) == 0 {
		return ""
	}
	return h.paths[len(h.paths)-1]
}

func (h *History) Paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

// RedirectToLoginPage sends the user to the login view.
func RedirectToLoginPage(nav Navigator) {
	nav.Navigate(PathLogin)
}

// Expire is the single authorization-failure policy: the stored credential is
// cleared and the user is sent to login, always both.
func Expire(s *session.Store, nav Navigator) {
	if err := s.Clear(); err != nil {
		log.Printf("WARN: session clear failed: %v", err)
	}
	nav.Navigate(PathLogin)
}
