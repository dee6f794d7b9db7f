package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// flakyServer answers with statuses in order, repeating the last one.
func flakyServer(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		w.WriteHeader(statuses[n])
		if statuses[n] == http.StatusOK {
			w.Write([]byte(`{"message":"ok"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func getReq(url string) func(context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		SetDefaults(r)
		return r, nil
	}
}

func fastBackoff(n int) RetryConfig {
	return RetryConfig{MaxAttempts: n, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestSingleAttemptNeverRetries(t *testing.T) {
	for _, cfg := range []RetryConfig{{}, SingleAttempt()} {
		srv, hits := flakyServer(t, http.StatusServiceUnavailable, http.StatusOK)

		_, _, err := Do(context.Background(), srv.Client(), getReq(srv.URL), cfg)
		if StatusCode(err) != http.StatusServiceUnavailable {
			t.Errorf("Expected 503 error, got %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("Expected 1 request, got %d", hits.Load())
		}
	}
}

func TestBackoffRecoversFromTransientStatus(t *testing.T) {
	srv, hits := flakyServer(t, http.StatusBadGateway, http.StatusTooManyRequests, http.StatusOK)

	var out struct {
		Message string `json:"message"`
	}
	if err := DoJSON(context.Background(), srv.Client(), getReq(srv.URL), &out, fastBackoff(5)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out.Message != "ok" {
		t.Errorf("Expected message ok, got %q", out.Message)
	}
	if hits.Load() != 3 {
		t.Errorf("Expected 3 requests, got %d", hits.Load())
	}
}

func TestBackoffGivesUpAfterMaxAttempts(t *testing.T) {
	srv, hits := flakyServer(t, http.StatusServiceUnavailable)

	resp, body, err := Do(context.Background(), srv.Client(), getReq(srv.URL), fastBackoff(3))
	if StatusCode(err) != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 error, got %v", err)
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected last response to be returned, got %v", resp)
	}
	if len(body) != 0 {
		t.Errorf("Expected empty body, got %q", body)
	}
	if hits.Load() != 3 {
		t.Errorf("Expected 3 requests, got %d", hits.Load())
	}
}

func TestBackoffSkipsPermanentStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusBadRequest} {
		srv, hits := flakyServer(t, status, http.StatusOK)

		_, _, err := Do(context.Background(), srv.Client(), getReq(srv.URL), fastBackoff(4))
		if StatusCode(err) != status {
			t.Errorf("Expected %d error, got %v", status, err)
		}
		if hits.Load() != 1 {
			t.Errorf("Status %d: expected 1 request, got %d", status, hits.Load())
		}
	}
}

func TestBackoffStopsOnCancel(t *testing.T) {
	srv, hits := flakyServer(t, http.StatusServiceUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	go func() {
		for hits.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	_, _, err := Do(ctx, srv.Client(), getReq(srv.URL), cfg)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 request, got %d", hits.Load())
	}
}

func TestBuildErrorIsFinal(t *testing.T) {
	calls := 0
	build := func(ctx context.Context) (*http.Request, error) {
		calls++
		return http.NewRequestWithContext(ctx, http.MethodGet, "://bad", nil)
	}

	if _, _, err := Do(context.Background(), http.DefaultClient, build, fastBackoff(3)); err == nil {
		t.Error("Expected error for unbuildable request")
	}
	if calls != 1 {
		t.Errorf("Expected 1 build, got %d", calls)
	}
}

func TestDoJSONEmptyAndInvalidBodies(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer empty.Close()

	var out map[string]any
	if err := DoJSON(context.Background(), empty.Client(), getReq(empty.URL), &out, SingleAttempt()); err != nil {
		t.Errorf("Expected no error for empty body, got %v", err)
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":`))
	}))
	defer bad.Close()

	if err := DoJSON(context.Background(), bad.Client(), getReq(bad.URL), &out, SingleAttempt()); err == nil {
		t.Error("Expected json parse error")
	}
}
