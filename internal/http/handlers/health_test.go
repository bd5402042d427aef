package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantFailed string
	}{
		{"no dependencies", nil, http.StatusOK, ""},
		{"all healthy", map[string]Pinger{"database": ok, "redis": ok}, http.StatusOK, ""},
		{"redis down", map[string]Pinger{"database": ok, "redis": down}, http.StatusServiceUnavailable, "redis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("test", tt.checks)
			r := gin.New()
			r.GET("/readyz", h.Readiness)
			r.GET("/health", h.Health)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("readyz: expected %d, got %d", tt.wantStatus, w.Code)
			}
			var report HealthReport
			if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(report.Checks) != len(tt.checks) {
				t.Fatalf("expected %d checks, got %+v", len(tt.checks), report.Checks)
			}
			if tt.wantFailed != "" && report.Checks[tt.wantFailed].Error == "" {
				t.Fatalf("%s must carry its error: %+v", tt.wantFailed, report.Checks)
			}

			w = httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("health: expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[string]int{
		"ValidationError":    http.StatusBadRequest,
		"DuplicateIdentity":  http.StatusConflict,
		"InvalidTransition":  http.StatusConflict,
		"NotFound":           http.StatusNotFound,
		"InvalidCredential":  http.StatusUnauthorized,
		"Unauthenticated":    http.StatusUnauthorized,
		"Forbidden":          http.StatusForbidden,
		"RateLimited":        http.StatusTooManyRequests,
		"Timeout":            http.StatusGatewayTimeout,
		"StorageUnavailable": http.StatusServiceUnavailable,
		"Internal":           http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Errorf("StatusFor(%s) = %d, want %d", code, got, want)
		}
	}
}
