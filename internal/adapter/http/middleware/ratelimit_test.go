package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	h := rl.Wrap(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/ledgers", nil)
		req.RemoteAddr = "10.0.0.1:55001"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestRateLimiterRejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := rl.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/ledgers", nil)
	req.RemoteAddr = "10.0.0.1:55001"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if body["error"] != "rate_limited" {
		t.Errorf("unexpected error code: %v", body["error"])
	}
}

func TestRateLimiterIsPerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := rl.Wrap(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/v1/ledgers", nil)
	first.RemoteAddr = "10.0.0.1:55001"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// A different client has its own bucket. Same client, different source
	// port, shares one.
	other := httptest.NewRequest(http.MethodGet, "/v1/ledgers", nil)
	other.RemoteAddr = "10.0.0.2:55001"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a separate client, got %d", rec.Code)
	}

	samePortChanged := httptest.NewRequest(http.MethodGet, "/v1/ledgers", nil)
	samePortChanged.RemoteAddr = "10.0.0.1:55999"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, samePortChanged)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for the same client, got %d", rec.Code)
	}
}

func TestRateLimiterReset(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := rl.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/ledgers", nil)
	req.RemoteAddr = "10.0.0.1:55001"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 before reset, got %d", rec.Code)
	}

	rl.Reset()

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after reset, got %d", rec.Code)
	}
}
