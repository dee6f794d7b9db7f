// Package apitest is an in-memory stand-in for the course service. It
// implements the REST surface the client consumes and lets tests force
// failures per route.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"tutorly/internal/domain"
)

// Route names accepted by FailRoute.
const (
	RouteRegister  = "register"
	RouteLogin     = "login"
	RouteCourses   = "courses"
	RouteCourse    = "course"
	RouteProgress  = "progress"
	RouteEnroll    = "enroll"
	RouteRate      = "rate"
	RouteFeedback  = "feedback"
	RouteRecommend = "recommend"
	RouteProfile   = "profile"
	RoutePassword  = "password"
)

type user struct {
	ID       int
	Username string
	Email    string
	Password string
}

type rating struct {
	Value    int
	Feedback string
}

type Server struct {
	mu          sync.Mutex
	users       map[string]*user
	tokens      map[string]string
	courses     map[int]domain.Course
	order       []int
	enrollments map[string]map[int][]int
	ratings     map[int]map[string]rating
	failures    map[string]int
	requests    []string
	nextUserID  int
	nextCourse  int
}

func New() *Server {
	return &Server{
		users:       map[string]*user{},
		tokens:      map[string]string{},
		courses:     map[int]domain.Course{},
		enrollments: map[string]map[int][]int{},
		ratings:     map[int]map[string]rating{},
		failures:    map[string]int{},
		nextUserID:  1,
		nextCourse:  1,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.record)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register/", s.handleRegister).Methods(http.MethodPost).Name(RouteRegister)
	api.HandleFunc("/login/", s.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	api.HandleFunc("/courses/", s.auth(s.handleCourses)).Methods(http.MethodGet).Name(RouteCourses)
	api.HandleFunc("/courses/{id:[0-9]+}/", s.auth(s.handleCourse)).Methods(http.MethodGet).Name(RouteCourse)
	api.HandleFunc("/courses/{id:[0-9]+}/progress/", s.auth(s.handleProgress)).Methods(http.MethodGet, http.MethodPost).Name(RouteProgress)
	api.HandleFunc("/courses/{id:[0-9]+}/enroll/", s.auth(s.handleEnroll)).Methods(http.MethodPost).Name(RouteEnroll)
	api.HandleFunc("/courses/{id:[0-9]+}/rate/", s.auth(s.handleRate)).Methods(http.MethodPost).Name(RouteRate)
	api.HandleFunc("/courses/{id:[0-9]+}/feedback/", s.auth(s.handleFeedback)).Methods(http.MethodGet).Name(RouteFeedback)
	api.HandleFunc("/recommend_courses/", s.auth(s.handleRecommend)).Methods(http.MethodGet).Name(RouteRecommend)
	api.HandleFunc("/user/profile/", s.auth(s.handleProfile)).Methods(http.MethodGet, http.MethodPut).Name(RouteProfile)
	api.HandleFunc("/user/change-password/", s.auth(s.handlePassword)).Methods(http.MethodPost).Name(RoutePassword)
	return r
}

/* -------- Fixtures & inspection -------- */

func (s *Server) AddUser(username, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addUserLocked(username, email, password)
}

func (s *Server) addUserLocked(username, email, password string) {
	s.users[username] = &user{ID: s.nextUserID, Username: username, Email: email, Password: password}
	s.nextUserID++
}

// IssueToken returns a valid bearer token for username.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(username)
}

func (s *Server) issueLocked(username string) string {
	tok := uuid.NewString()
	s.tokens[tok] = username
	return tok
}

// RevokeToken makes tok fail with 401 from now on.
func (s *Server) RevokeToken(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tok)
}

// AddCourse stores c under the next id and returns it.
func (s *Server) AddCourse(c domain.Course) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextCourse
	s.nextCourse++
	c.Enrolled = false
	c.AvgRating = nil
	s.courses[c.ID] = c
	s.order = append(s.order, c.ID)
	return c.ID
}

func (s *Server) SetProgress(username string, courseID int, completed []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollmentLocked(username)[courseID] = append([]int{}, completed...)
}

func (s *Server) Progress(username string, courseID int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int{}, s.enrollments[username][courseID]...)
}

func (s *Server) Enrolled(username string, courseID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.enrollments[username][courseID]
	return ok
}

func (s *Server) Rating(username string, courseID int) (int, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ratings[courseID][username]
	return r.Value, r.Feedback, ok
}

// FailRoute makes every request to the named route answer status until
// cleared with status 0.
func (s *Server) FailRoute(name string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, name)
		return
	}
	s.failures[name] = status
}

// Requests lists "METHOD /path" for every request received, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.requests...)
}

// CountRequests counts received requests whose "METHOD /path" has prefix.
func (s *Server) CountRequests(prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

/* -------- Middleware -------- */

type ctxUser struct{}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		status := 0
		if route := mux.CurrentRoute(r); route != nil {
			status = s.failures[route.GetName()]
		}
		s.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auth(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		s.mu.Lock()
		username, ok := s.tokens[parts[1]]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
			return
		}
		h(w, r, username)
	}
}

/* -------- Handlers -------- */

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Username and password are required."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{"username": []string{"A user with that username already exists."}})
		return
	}
	s.addUserLocked(req.Username, req.Email, req.Password)
	u := s.users[req.Username]
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           u.ID,
		"username":     u.Username,
		"email":        u.Email,
		"access_token": s.issueLocked(u.Username),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Username and password are required."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[req.Username]
	if !ok || u.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, domain.LoginResponse{
		Message:      fmt.Sprintf("Welcome back, %s!", u.Username),
		AccessToken:  s.issueLocked(u.Username),
		RefreshToken: uuid.NewString(),
	})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request, username string) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	category := q.Get("category")
	minRating, _ := strconv.ParseFloat(q.Get("min_rating"), 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Course{}
	for _, id := range s.order {
		c := s.viewLocked(id, username)
		if search != "" && !strings.Contains(strings.ToLower(c.Title), search) {
			continue
		}
		if category != "" && c.Category != category {
			continue
		}
		if minRating > 0 && (c.AvgRating == nil || *c.AvgRating < minRating) {
			continue
		}
		out = append(out, c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCourse(w http.ResponseWriter, r *http.Request, username string) {
	id, ok := s.courseID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.viewLocked(id, username))
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, username string) {
	id, ok := s.courseID(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet {
		s.mu.Lock()
		completed := append([]int{}, s.enrollments[username][id]...)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"completed_topics": completed})
		return
	}

	var body struct {
		CompletedTopics json.RawMessage `json:"completed_topics"`
	}
	var completed []int
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || json.Unmarshal(body.CompletedTopics, &completed) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid data format"})
		return
	}

	s.mu.Lock()
	s.enrollmentLocked(username)[id] = completed
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "Progress updated successfully!", "completed_topics": completed})
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request, username string) {
	id, ok := s.courseID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	enr := s.enrollmentLocked(username)
	if _, exists := enr[id]; exists {
		writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "Already enrolled!"})
		return
	}
	enr[id] = []int{}
	writeJSON(w, http.StatusCreated, domain.MessageResponse{Message: "Enrolled successfully!"})
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request, username string) {
	id, ok := s.courseID(w, r)
	if !ok {
		return
	}
	var sub domain.FeedbackSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil || !sub.Rating.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Rating must be between 1 and 5."})
		return
	}
	feedback := strings.TrimSpace(sub.Feedback)
	if feedback == "" {
		feedback = "No feedback"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ratings[id] == nil {
		s.ratings[id] = map[string]rating{}
	}
	s.ratings[id][username] = rating{Value: int(sub.Rating), Feedback: feedback}
	writeJSON(w, http.StatusOK, domain.MessageResponse{
		Message: fmt.Sprintf("Rated %s with %d stars!", s.courses[id].Title, sub.Rating),
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request, username string) {
	id, ok := s.courseID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.ratings[id]))
	for name := range s.ratings[id] {
		names = append(names, name)
	}
	sort.Strings(names)

	out := []domain.Interaction{}
	for i, name := range names {
		rt := s.ratings[id][name]
		v := rt.Value
		out = append(out, domain.Interaction{ID: i + 1, User: name, Course: s.courses[id].Title, Rating: &v, Feedback: rt.Feedback})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Course{}
	for _, id := range s.order {
		if _, enrolled := s.enrollments[username][id]; enrolled {
			continue
		}
		out = append(out, s.viewLocked(id, username))
	}
	sort.SliceStable(out, func(i, j int) bool { return avg(out[i]) > avg(out[j]) })
	writeJSON(w, http.StatusOK, domain.RecommendationsResponse{RecommendedCourses: out})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[username]
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
		return
	}

	if r.Method == http.MethodPut {
		var upd domain.ProfileUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid data format"})
			return
		}
		if upd.Email != "" {
			u.Email = upd.Email
		}
		if upd.Username != "" && upd.Username != u.Username {
			if _, taken := s.users[upd.Username]; taken {
				writeJSON(w, http.StatusBadRequest, map[string]any{"username": []string{"A user with that username already exists."}})
				return
			}
			s.renameLocked(u, upd.Username)
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated successfully!"})
		return
	}

	titles := []string{}
	for _, id := range s.order {
		if _, ok := s.enrollments[u.Username][id]; ok {
			titles = append(titles, s.courses[id].Title)
		}
	}
	writeJSON(w, http.StatusOK, domain.Profile{ID: u.ID, Username: u.Username, Email: u.Email, EnrolledCourses: titles})
}

func (s *Server) handlePassword(w http.ResponseWriter, r *http.Request, username string) {
	var pc domain.PasswordChange
	if err := json.NewDecoder(r.Body).Decode(&pc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid data format"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[username]
	if u == nil || u.Password != pc.OldPassword {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Old password is incorrect"})
		return
	}
	u.Password = pc.NewPassword
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "Password changed successfully!"})
}

/* -------- Helpers -------- */

func (s *Server) courseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	s.mu.Lock()
	_, ok := s.courses[id]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Course not found"})
		return 0, false
	}
	return id, true
}

func (s *Server) viewLocked(id int, username string) domain.Course {
	c := s.courses[id]
	_, c.Enrolled = s.enrollments[username][id]
	if rs := s.ratings[id]; len(rs) > 0 {
		sum := 0
		for _, rt := range rs {
			sum += rt.Value
		}
		a := float64(sum) / float64(len(rs))
		c.AvgRating = &a
	}
	return c
}

func (s *Server) enrollmentLocked(username string) map[int][]int {
	if s.enrollments[username] == nil {
		s.enrollments[username] = map[int][]int{}
	}
	return s.enrollments[username]
}

func (s *Server) renameLocked(u *user, to string) {
	from := u.Username
	delete(s.users, from)
	u.Username = to
	s.users[to] = u
	for tok, name := range s.tokens {
		if name == from {
			s.tokens[tok] = to
		}
	}
	if enr, ok := s.enrollments[from]; ok {
		delete(s.enrollments, from)
		s.enrollments[to] = enr
	}
	for _, rs := range s.ratings {
		if rt, ok := rs[from]; ok {
			delete(rs, from)
			rs[to] = rt
		}
	}
}

func avg(c domain.Course) float64 {
	if c.AvgRating == nil {
		return 0
	}
	return *c.AvgRating
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
