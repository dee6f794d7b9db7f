package httpx

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
)

// AcceptEncoding is advertised on every request built through SetDefaults.
// Setting it by hand disables net/http's transparent gzip, so decodeBody
// handles both encodings itself.
const AcceptEncoding = "br, gzip"

// HTTPError carries status/body for non-2xx responses.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %s %s status=%d body=%s", e.Method, e.URL, e.StatusCode, snippet(e.Body, 900))
}

// StatusCode returns the status of the first HTTPError in err's chain, or 0.
func StatusCode(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.StatusCode
	}
	return 0
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// RetryConfig bounds how often a request is reissued. The zero value sends
// the request once.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// SingleAttempt is the policy for everything a user triggers: one request,
// failures go straight back to the caller.
func SingleAttempt() RetryConfig {
	return RetryConfig{MaxAttempts: 1}
}

// Backoff retries transient failures (timeouts, resets, 408, 429, 5xx) up to
// attempts times with exponential delay. Only unattended jobs use it.
func Backoff(attempts int) RetryConfig {
	if attempts <= 1 {
		return SingleAttempt()
	}
	return RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

func (c RetryConfig) attempts() int {
	if c.MaxAttempts < 1 {
		return 1
	}
	return c.MaxAttempts
}

// delay is the wait before attempt n+1. A server-sent Retry-After wins.
func (c RetryConfig) delay(n int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	d := c.BaseDelay << (n - 1)
	if c.MaxDelay > 0 && (d > c.MaxDelay || d <= 0) {
		d = c.MaxDelay
	}
	if c.BaseDelay > 0 {
		d += time.Duration(rand.Int63n(int64(c.BaseDelay)/2 + 1))
	}
	return d
}

// SetDefaults sets the headers every JSON call carries.
func SetDefaults(r *http.Request) {
	r.Header.Set("Accept", "application/json")
	r.Header.Set("Accept-Encoding", AcceptEncoding)
	if r.Body != nil && r.Body != http.NoBody {
		r.Header.Set("Content-Type", "application/json")
	}
}

// Do sends the request built by buildReq, reissuing it per cfg. The body is
// always read in full so the connection goes back to the pool.
func Do(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
	cfg RetryConfig,
) (*http.Response, []byte, error) {
	total := cfg.attempts()
	for n := 1; ; n++ {
		resp, body, retryAfter, err := once(ctx, client, buildReq)
		if err == nil || n >= total || !transient(err) {
			return resp, body, err
		}

		t := time.NewTimer(cfg.delay(n, retryAfter))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, nil, ctx.Err()
		}
	}
}

func once(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
) (*http.Response, []byte, time.Duration, error) {
	req, err := buildReq(ctx)
	if err != nil {
		return nil, nil, 0, &buildError{err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, 0, err
	}

	body, err := decodeBody(resp)
	if err != nil {
		return resp, body, 0, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, body, ParseRetryAfter(resp), &HTTPError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		}
	}
	return resp, body, 0, nil
}

// buildError marks a failure to construct the request; it is never retried.
type buildError struct{ err error }

func (e *buildError) Error() string { return e.err.Error() }
func (e *buildError) Unwrap() error { return e.err }

// transient reports whether reissuing the same request could succeed.
func transient(err error) bool {
	var berr *buildError
	if errors.As(err, &berr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var herr *HTTPError
	if errors.As(err, &herr) {
		switch herr.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		}
		return herr.StatusCode >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// decodeBody reads and closes resp.Body, undoing br/gzip content encoding.
func decodeBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("httpx: gzip body: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(r)
}

// ParseRetryAfter reads Retry-After as seconds or an HTTP date; 0 when absent,
// invalid or already past.
func ParseRetryAfter(resp *http.Response) time.Duration {
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// DoJSON is Do plus decoding of the response body into out.
func DoJSON(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
	out any,
	cfg RetryConfig,
) error {
	_, body, err := Do(ctx, client, buildReq, cfg)
	if err != nil {
		return err
	}
	if out == nil || len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("json parse error: %w body=%s", err, snippet(body, 900))
	}
	return nil
}
