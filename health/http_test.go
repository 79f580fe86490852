package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newRouter(t *testing.T, checkers ...Checker) http.Handler {
	t.Helper()
	agg := NewAggregator(AggregatorConfig{})
	for _, c := range checkers {
		if err := agg.Register(c); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	r := chi.NewRouter()
	Mount(r, agg)
	return r
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandlers_Status(t *testing.T) {
	tests := []struct {
		name     string
		checker  Checker
		target   string
		wantCode int
		wantBody string
	}{
		{"liveness ignores checks", fixed("x", Unhealthy("down", nil)), "/healthz", http.StatusOK, "OK"},
		{"ready", fixed("x", Healthy("")), "/readyz", http.StatusOK, "OK"},
		{"ready but degraded", fixed("x", Degraded("")), "/readyz", http.StatusOK, "DEGRADED"},
		{"not ready", fixed("x", Unhealthy("down", nil)), "/readyz", http.StatusServiceUnavailable, "UNHEALTHY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newRouter(t, tt.checker), tt.target)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestDetailedHandler(t *testing.T) {
	h := newRouter(t,
		fixed("realms", Degraded("1 realm(s) unavailable").WithDetails(map[string]any{"cached_verifiers": 2})),
		fixed("upstream", Unhealthy("refused", errors.New("dial tcp: refused"))),
	)

	rec := get(t, h, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	var rep Report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.Status != "unhealthy" {
		t.Errorf("Status = %q, want unhealthy", rep.Status)
	}
	if rep.Checks["realms"].Status != "degraded" {
		t.Errorf("realms = %+v", rep.Checks["realms"])
	}
	if rep.Checks["upstream"].Error != "dial tcp: refused" {
		t.Errorf("upstream error = %q", rep.Checks["upstream"].Error)
	}
}

func TestSingleCheckHandler(t *testing.T) {
	h := newRouter(t, fixed("realms", Healthy("all realms reachable")))

	rec := get(t, h, "/health/realms")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	var c CheckReport
	if err := json.NewDecoder(rec.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Message != "all realms reachable" {
		t.Errorf("Message = %q", c.Message)
	}

	if rec := get(t, h, "/health/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown check status = %d, want 404", rec.Code)
	}
}
