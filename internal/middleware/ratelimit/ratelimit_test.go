package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 60, Burst: 2})
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst should be allowed")
	}
	if rl.Allow("a") {
		t.Error("third request within the same instant should be rejected")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Error("one token refills per second at 60/min")
	}

	m := rl.GetMetrics()
	if m.Rejected != 1 || m.ClientCount != 2 {
		t.Errorf("GetMetrics() = %+v", m)
	}
}

func TestLimiterCleanup(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("old")
	now = now.Add(11 * time.Minute)
	rl.Allow("new")

	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients() = %d, want 1", rl.ActiveClients())
	}
	rl.Stop()
}

func TestMiddlewareWritesOnly(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, Burst: 1})
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "client" }, WritesOnly, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/incomes", nil))
		return rec
	}

	if rec := do(http.MethodPost); rec.Code != http.StatusNoContent {
		t.Fatalf("first write: %d", rec.Code)
	}
	rec := do(http.MethodPost)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second write: %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
	for i := 0; i < 3; i++ {
		if rec := do(http.MethodGet); rec.Code != http.StatusNoContent {
			t.Errorf("reads are never limited: %d", rec.Code)
		}
	}
}
