package tutorly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tutorly/internal/domain"
	"tutorly/internal/httpx"
)

var (
	// ErrUnauthorized wraps every 401 from the service.
	ErrUnauthorized = errors.New("tutorly: authorization failed")
	// ErrNoCredential is returned without touching the network when an
	// authenticated call is made while logged out.
	ErrNoCredential = errors.New("tutorly: no stored credential")
)

// Credentials is read on every outgoing authenticated request; the client
// never copies the token.
type Credentials interface {
	Get() (string, bool)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Session Credentials
	Retry   httpx.RetryConfig
}

func New(baseURL string, sess Credentials) *Client {
	tr := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Session: sess,
		Retry:   httpx.SingleAttempt(),
		HTTP: &http.Client{
			Timeout:   30 * time.Second,
			Transport: tr,
		},
	}
}

// WithRetry returns a copy of c that reissues failed requests per r. It
// shares c's transport and session. Only unattended jobs use it; calls a
// user triggers stay single attempt.
func (c *Client) WithRetry(r httpx.RetryConfig) *Client {
	cp := *c
	cp.Retry = r
	return &cp
}

/* -------- Account -------- */

func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) error {
	if err := c.call(ctx, http.MethodPost, "/api/register/", nil, req, nil, false); err != nil {
		return fmt.Errorf("tutorly: register: %w", err)
	}
	return nil
}

func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	var out domain.LoginResponse
	if err := c.call(ctx, http.MethodPost, "/api/login/", nil, req, &out, false); err != nil {
		return domain.LoginResponse{}, fmt.Errorf("tutorly: login: %w", err)
	}
	if out.AccessToken == "" {
		return domain.LoginResponse{}, errors.New("tutorly: login: access_token not found")
	}
	return out, nil
}

func (c *Client) Profile(ctx context.Context) (domain.Profile, error) {
	var out domain.Profile
	if err := c.call(ctx, http.MethodGet, "/api/user/profile/", nil, nil, &out, true); err != nil {
		return domain.Profile{}, fmt.Errorf("tutorly: get profile: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) (string, error) {
	var out domain.MessageResponse
	if err := c.call(ctx, http.MethodPut, "/api/user/profile/", nil, upd, &out, true); err != nil {
		return "", fmt.Errorf("tutorly: update profile: %w", err)
	}
	return out.Message, nil
}

func (c *Client) ChangePassword(ctx context.Context, pc domain.PasswordChange) (string, error) {
	var out domain.MessageResponse
	if err := c.call(ctx, http.MethodPost, "/api/user/change-password/", nil, pc, &out, true); err != nil {
		return "", fmt.Errorf("tutorly: change password: %w", err)
	}
	return out.Message, nil
}

/* -------- Catalog -------- */

// ListCourses returns the courses in the order the service sent them.
func (c *Client) ListCourses(ctx context.Context, f domain.CourseListFilter) ([]domain.Course, error) {
	var out []domain.Course
	if err := c.call(ctx, http.MethodGet, "/api/courses/", f.Query(), nil, &out, true); err != nil {
		return nil, fmt.Errorf("tutorly: list courses: %w", err)
	}
	return out, nil
}

func (c *Client) GetCourse(ctx context.Context, id int) (domain.Course, error) {
	var out domain.Course
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/courses/%d/", id), nil, nil, &out, true); err != nil {
		return domain.Course{}, fmt.Errorf("tutorly: get course %d: %w", id, err)
	}
	return out, nil
}

func (c *Client) CourseFeedback(ctx context.Context, id int) ([]domain.Interaction, error) {
	var out []domain.Interaction
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/courses/%d/feedback/", id), nil, nil, &out, true); err != nil {
		return nil, fmt.Errorf("tutorly: course %d feedback: %w", id, err)
	}
	return out, nil
}

func (c *Client) Recommendations(ctx context.Context) ([]domain.Course, error) {
	var out domain.RecommendationsResponse
	if err := c.call(ctx, http.MethodGet, "/api/recommend_courses/", nil, nil, &out, true); err != nil {
		return nil, fmt.Errorf("tutorly: recommendations: %w", err)
	}
	return out.RecommendedCourses, nil
}

/* -------- Progress / enrollment / rating -------- */

func (c *Client) GetProgress(ctx context.Context, courseID int) ([]int, error) {
	var out domain.ProgressResponse
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/courses/%d/progress/", courseID), nil, nil, &out, true); err != nil {
		return nil, fmt.Errorf("tutorly: get progress %d: %w", courseID, err)
	}
	return []int(out.CompletedTopics), nil
}

// SaveProgress sends the full completed set, never a delta.
func (c *Client) SaveProgress(ctx context.Context, courseID int, completed []int) error {
	if completed == nil {
		completed = []int{}
	}
	body := domain.ProgressUpdate{CompletedTopics: completed}
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/courses/%d/progress/", courseID), nil, body, nil, true); err != nil {
		return fmt.Errorf("tutorly: save progress %d: %w", courseID, err)
	}
	return nil
}

func (c *Client) Enroll(ctx context.Context, courseID int) (string, error) {
	var out domain.MessageResponse
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/courses/%d/enroll/", courseID), nil, struct{}{}, &out, true); err != nil {
		return "", fmt.Errorf("tutorly: enroll %d: %w", courseID, err)
	}
	return out.Message, nil
}

func (c *Client) Rate(ctx context.Context, courseID int, sub domain.FeedbackSubmission) (string, error) {
	if !sub.Rating.Valid() {
		return "", fmt.Errorf("tutorly: rate %d: %w, got %d", courseID, domain.ErrInvalidRating, sub.Rating)
	}
	var out domain.MessageResponse
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/courses/%d/rate/", courseID), nil, sub, &out, true); err != nil {
		return "", fmt.Errorf("tutorly: rate %d: %w", courseID, err)
	}
	return out.Message, nil
}

/* -------- Plumbing -------- */

func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any, auth bool) error {
	var token string
	if auth {
		tok, ok := c.credential()
		if !ok {
			return ErrNoCredential
		}
		token = tok
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = b
	}

	err := httpx.DoJSON(
		ctx,
		c.HTTP,
		func(ctx context.Context) (*http.Request, error) {
			var body io.Reader
			if payload != nil {
				body = bytes.NewReader(payload)
			}
			r, err := http.NewRequestWithContext(ctx, method, u, body)
			if err != nil {
				return nil, err
			}
			httpx.SetDefaults(r)
			if token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
			return r, nil
		},
		out,
		c.Retry,
	)
	if httpx.StatusCode(err) == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return err
}

func (c *Client) credential() (string, bool) {
	if c.Session == nil {
		return "", false
	}
	return c.Session.Get()
}

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// ServerMessage extracts the service's {"error": ...} (or "detail"/"message")
// text from a failed call, or "" when there is none.
func ServerMessage(err error) string {
	var herr *httpx.HTTPError
	if !errors.As(err, &herr) || len(herr.Body) == 0 {
		return ""
	}
	var body map[string]any
	if json.Unmarshal(herr.Body, &body) != nil {
		return ""
	}
	for _, k := range []string{"error", "detail", "message"} {
		if s, ok := body[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
