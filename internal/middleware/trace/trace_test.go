package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"wealthtrack/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(func(*http.Request) string { return "192.0.2.1" }, log.New(log.Config{Output: &buf, Component: log.ComponentHTTP}))

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		log.FromContext(r.Context()).Info("handling")
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/incomes/x", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rec.Header().Get(HeaderRequestID), seen)
	}
	out := buf.String()
	if strings.Count(out, "request_id="+seen) != 2 {
		t.Errorf("both log lines should carry the request id:\n%s", out)
	}
	if !strings.Contains(out, "status_code=404") || !strings.Contains(out, "level=WARN") {
		t.Errorf("completion line missing status:\n%s", out)
	}
	if m.GetMetrics().TotalRequests != 1 {
		t.Errorf("TotalRequests = %d", m.GetMetrics().TotalRequests)
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	m := NewMiddleware(nil, log.New(log.Config{Output: &bytes.Buffer{}}))
	id := uuid.NewString()

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, id)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != id {
		t.Errorf("request id = %q, want %q", seen, id)
	}

	req.Header.Set(HeaderRequestID, "not-a-uuid")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "not-a-uuid" {
		t.Error("malformed incoming ids must be replaced")
	}
}
