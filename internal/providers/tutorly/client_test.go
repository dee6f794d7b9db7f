package tutorly

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"tutorly/internal/apitest"
	"tutorly/internal/domain"
	"tutorly/internal/httpx"
	"tutorly/internal/resources"
)

const testBaseURL = "http://127.0.0.1:8000"

type staticCreds string

func (s staticCreds) Get() (string, bool) { return string(s), s != "" }

func newTestClient(t *testing.T) (*Client, *apitest.Server, string) {
	t.Helper()

	api := apitest.New()
	api.AddUser("ada", "ada@example.com", "secret")
	tok := api.IssueToken("ada")
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return New(srv.URL, staticCreds(tok)), api, tok
}

func TestNew(t *testing.T) {
	client := New(testBaseURL+"/", staticCreds(""))

	if client.BaseURL != testBaseURL {
		t.Errorf("Expected BaseURL to be %q, got %q", testBaseURL, client.BaseURL)
	}
	if client.HTTP == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.Retry.MaxAttempts != 1 {
		t.Errorf("Expected single attempt by default, got %d", client.Retry.MaxAttempts)
	}
}

func TestNoCredentialShortCircuits(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client := New(srv.URL, staticCreds(""))
	ctx := context.Background()

	if _, err := client.GetCourse(ctx, 1); !errors.Is(err, ErrNoCredential) {
		t.Errorf("Expected ErrNoCredential from GetCourse, got %v", err)
	}
	if _, err := client.Enroll(ctx, 1); !errors.Is(err, ErrNoCredential) {
		t.Errorf("Expected ErrNoCredential from Enroll, got %v", err)
	}
	if err := client.SaveProgress(ctx, 1, []int{0}); !errors.Is(err, ErrNoCredential) {
		t.Errorf("Expected ErrNoCredential from SaveProgress, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected no requests without a credential, got %d", calls)
	}
}

func TestLoginAndRegister(t *testing.T) {
	client, api, _ := newTestClient(t)
	ctx := context.Background()

	if err := client.Register(ctx, domain.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Expected no error registering, got %v", err)
	}
	resp, err := client.Login(ctx, domain.LoginRequest{Username: "bob", Password: "pw"})
	if err != nil {
		t.Fatalf("Expected no error logging in, got %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("Expected access token")
	}

	_, err = client.Login(ctx, domain.LoginRequest{Username: "bob", Password: "wrong"})
	if !IsUnauthorized(err) {
		t.Errorf("Expected unauthorized error, got %v", err)
	}
	if got := ServerMessage(err); got != "Invalid credentials" {
		t.Errorf("Expected server message 'Invalid credentials', got %q", got)
	}

	err = client.Register(ctx, domain.RegisterRequest{Username: "bob", Password: "pw"})
	if err == nil {
		t.Fatal("Expected duplicate registration to fail")
	}
	if api.CountRequests("POST /api/register/") != 2 {
		t.Errorf("Expected 2 register requests, got %d", api.CountRequests("POST /api/register/"))
	}
}

func TestListCoursesSendsFilterAndBearer(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": 2, "title": "B"}, {"id": 1, "title": "A"}]`))
	}))
	defer srv.Close()

	client := New(srv.URL, staticCreds("tok"))
	courses, err := client.ListCourses(context.Background(), domain.CourseListFilter{SearchQuery: "go", MinRating: 3})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gotQuery != "min_rating=3&search=go" {
		t.Errorf("Expected query min_rating=3&search=go, got %q", gotQuery)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Expected bearer header, got %q", gotAuth)
	}
	if len(courses) != 2 || courses[0].ID != 2 || courses[1].ID != 1 {
		t.Errorf("Expected server order [2 1], got %+v", courses)
	}
}

func TestCourseDetailAndProgress(t *testing.T) {
	client, api, _ := newTestClient(t)
	ctx := context.Background()

	id := api.AddCourse(domain.Course{
		Title:     "Go",
		Syllabus:  "Intro\nTypes\nConcurrency",
		Resources: resources.FromString("https://go.dev\nEffective Go"),
	})
	api.SetProgress("ada", id, []int{0, 2})

	c, err := client.GetCourse(ctx, id)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if c.Title != "Go" || c.TotalTopics() != 3 {
		t.Errorf("Unexpected course %+v", c)
	}
	if got := resources.Strings(c.Resources); !reflect.DeepEqual(got, []string{"https://go.dev", "Effective Go"}) {
		t.Errorf("Unexpected resources %q", got)
	}

	done, err := client.GetProgress(ctx, id)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !reflect.DeepEqual(done, []int{0, 2}) {
		t.Errorf("Expected [0 2], got %v", done)
	}

	if err := client.SaveProgress(ctx, id, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := api.Progress("ada", id); len(got) != 0 {
		t.Errorf("Expected empty saved progress, got %v", got)
	}

	if _, err := client.GetCourse(ctx, 999); httpx.StatusCode(err) != http.StatusNotFound {
		t.Errorf("Expected 404, got %v", err)
	}
}

func TestEnrollAndRate(t *testing.T) {
	client, api, _ := newTestClient(t)
	ctx := context.Background()
	id := api.AddCourse(domain.Course{Title: "Design 101"})

	msg, err := client.Enroll(ctx, id)
	if err != nil || msg != "Enrolled successfully!" {
		t.Errorf("Expected enrollment message, got %q (%v)", msg, err)
	}
	msg, _ = client.Enroll(ctx, id)
	if msg != "Already enrolled!" {
		t.Errorf("Expected second enroll to report Already enrolled!, got %q", msg)
	}

	msg, err = client.Rate(ctx, id, domain.FeedbackSubmission{Rating: 4, Feedback: "nice"})
	if err != nil || msg != "Rated Design 101 with 4 stars!" {
		t.Errorf("Unexpected rate result %q (%v)", msg, err)
	}

	if _, err := client.Rate(ctx, id, domain.FeedbackSubmission{Rating: 9}); err == nil {
		t.Error("Expected out of range rating to be rejected locally")
	}

	fb, err := client.CourseFeedback(ctx, id)
	if err != nil || len(fb) != 1 || fb[0].Feedback != "nice" {
		t.Errorf("Unexpected feedback list %+v (%v)", fb, err)
	}
}

func TestUnauthorizedWrapsHTTPError(t *testing.T) {
	client, api, tok := newTestClient(t)
	api.RevokeToken(tok)

	_, err := client.ListCourses(context.Background(), domain.CourseListFilter{})
	if !IsUnauthorized(err) {
		t.Fatalf("Expected unauthorized, got %v", err)
	}
	if httpx.StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("Expected wrapped HTTPError with 401, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "tutorly: list courses:") {
		t.Errorf("Expected prefixed error, got %q", err.Error())
	}
}

func TestProfileRoundTrip(t *testing.T) {
	client, _, _ := newTestClient(t)
	ctx := context.Background()

	p, err := client.Profile(ctx)
	if err != nil || p.Username != "ada" {
		t.Fatalf("Unexpected profile %+v (%v)", p, err)
	}
	if msg, err := client.UpdateProfile(ctx, domain.ProfileUpdate{Email: "new@example.com"}); err != nil || msg == "" {
		t.Errorf("Unexpected update result %q (%v)", msg, err)
	}
	if _, err := client.ChangePassword(ctx, domain.PasswordChange{OldPassword: "nope", NewPassword: "x"}); ServerMessage(err) != "Old password is incorrect" {
		t.Errorf("Expected old password error, got %v", err)
	}
	if msg, err := client.ChangePassword(ctx, domain.PasswordChange{OldPassword: "secret", NewPassword: "x"}); err != nil || msg != "Password changed successfully!" {
		t.Errorf("Unexpected password change result %q (%v)", msg, err)
	}
}

func TestServerMessage(t *testing.T) {
	testCases := []struct {
		err      error
		expected string
	}{
		{nil, ""},
		{errors.New("plain"), ""},
		{&httpx.HTTPError{Body: []byte(`{"error": "boom"}`)}, "boom"},
		{&httpx.HTTPError{Body: []byte(`{"detail": "bad token"}`)}, "bad token"},
		{&httpx.HTTPError{Body: []byte(`{"username": ["taken"]}`)}, ""},
		{&httpx.HTTPError{Body: []byte(`<html>`)}, ""},
	}

	for _, tc := range testCases {
		if got := ServerMessage(tc.err); got != tc.expected {
			t.Errorf("ServerMessage(%v) = %q, want %q", tc.err, got, tc.expected)
		}
	}
}

func TestSaveProgressSingleAttempt(t *testing.T) {
	client, api, _ := newTestClient(t)
	api.FailRoute(apitest.RouteProgress, http.StatusServiceUnavailable)
	ctx := context.Background()

	if err := client.SaveProgress(ctx, 1, []int{0}); httpx.StatusCode(err) != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 error, got %v", err)
	}
	if n := api.CountRequests("POST /api/courses/1/progress/"); n != 1 {
		t.Errorf("Expected 1 save request, got %d", n)
	}

	retrying := client.WithRetry(httpx.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
	if _, err := retrying.GetProgress(ctx, 1); err == nil {
		t.Error("Expected progress load to fail")
	}
	if n := api.CountRequests("GET /api/courses/1/progress/"); n != 3 {
		t.Errorf("Expected 3 load requests, got %d", n)
	}
	if client.Retry.MaxAttempts != 1 {
		t.Errorf("Expected original client to stay single attempt, got %d", client.Retry.MaxAttempts)
	}
	if retrying.HTTP != client.HTTP || retrying.Session != client.Session {
		t.Error("Expected retrying client to share transport and session")
	}
}
