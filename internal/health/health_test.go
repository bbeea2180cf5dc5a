package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func probeReport(t *testing.T, h *Handler) (int, Response) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	return rec.Code, resp
}

func TestHandler_AllChecksHealthy(t *testing.T) {
	h := NewHandler("v1.0.0")
	h.RegisterChecker("db", NewSimpleChecker("db", func() error { return nil }))
	h.RegisterChecker("cache", NewSimpleChecker("cache", func() error { return nil }))

	code, resp := probeReport(t, h)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %s", resp.Status)
	}
	if resp.Version != "v1.0.0" {
		t.Fatalf("expected version in report, got %q", resp.Version)
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("expected both checks in report, got %d", len(resp.Checks))
	}
}

func TestHandler_UnhealthyCheckWins(t *testing.T) {
	h := NewHandler("v1.0.0")
	h.RegisterChecker("ok", NewSimpleChecker("ok", func() error { return nil }))
	h.RegisterChecker("down", NewSimpleChecker("down", func() error {
		return errors.New("connection refused")
	}))

	code, resp := probeReport(t, h)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if resp.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy aggregate, got %s", resp.Status)
	}
	if resp.Checks["down"].Message != "connection refused" {
		t.Fatalf("expected check message, got %q", resp.Checks["down"].Message)
	}
}

func TestReadiness(t *testing.T) {
	h := NewHandler("v1.0.0")
	h.RegisterChecker("db", NewSimpleChecker("db", func() error { return nil }))

	rec := httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ready" {
		t.Fatalf("expected 200/ready, got %d/%q", rec.Code, rec.Body.String())
	}

	h.RegisterChecker("db", NewSimpleChecker("db", func() error {
		return errors.New("down")
	}))
	rec = httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable || rec.Body.String() != "not ready" {
		t.Fatalf("expected 503/not ready, got %d/%q", rec.Code, rec.Body.String())
	}
}

func TestLiveness(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("expected 200/ok, got %d/%q", rec.Code, rec.Body.String())
	}
}

func TestSimpleChecker_ReportsError(t *testing.T) {
	check := NewSimpleChecker("flaky", func() error {
		return errors.New("timeout")
	}).Check()

	if check.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", check.Status)
	}
	if check.Message != "timeout" {
		t.Fatalf("expected error text in message, got %q", check.Message)
	}
	if check.Name != "flaky" {
		t.Fatalf("expected checker name, got %q", check.Name)
	}
}

func TestStatusRank(t *testing.T) {
	if statusRank(StatusUnhealthy) <= statusRank(StatusDegraded) {
		t.Fatal("unhealthy must outrank degraded")
	}
	if statusRank(StatusDegraded) <= statusRank(StatusHealthy) {
		t.Fatal("degraded must outrank healthy")
	}
}
