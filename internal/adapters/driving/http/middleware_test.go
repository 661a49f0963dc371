package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/auth"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "valid bearer token",
			header:   "Bearer abc123",
			expected: "abc123",
		},
		{
			name:     "bearer with extra spaces",
			header:   "Bearer   token-with-spaces   ",
			expected: "token-with-spaces",
		},
		{
			name:     "lowercase bearer",
			header:   "bearer token123",
			expected: "token123",
		},
		{
			name:     "empty header",
			header:   "",
			expected: "",
		},
		{
			name:     "basic auth",
			header:   "Basic dXNlcjpwYXNz",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			result := extractBearerToken(req)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestCallerMiddleware_Disabled(t *testing.T) {
	m := NewCallerMiddleware(nil)
	called := false
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if GetCaller(r.Context()) != nil {
			t.Error("expected no caller in dev mode")
		}
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", nil))
	if !called {
		t.Error("handler should run without an authenticator")
	}
}

func TestCallerMiddleware_ValidToken(t *testing.T) {
	authenticator := auth.NewAdapter("secret-for-tests")
	token, _ := authenticator.GenerateToken(&driven.CallerClaims{
		UserID:         "u1",
		OrganizationID: "o1",
		IssuedAt:       time.Now().Unix(),
		ExpiresAt:      time.Now().Add(time.Hour).Unix(),
	})

	var caller *driven.CallerClaims
	handler := NewCallerMiddleware(authenticator).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller = GetCaller(r.Context())
	}))

	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if caller == nil || caller.UserID != "u1" || caller.OrganizationID != "o1" {
		t.Errorf("unexpected caller: %+v", caller)
	}
}

func TestCallerMiddleware_Rejects(t *testing.T) {
	handler := NewCallerMiddleware(auth.NewAdapter("secret-for-tests")).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	for _, header := range []string{"", "Bearer garbage", "Basic dXNlcjpwYXNz"} {
		req := httptest.NewRequest("POST", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rr.Code)
		}
	}
}

func TestGetCaller_Missing(t *testing.T) {
	if GetCaller(context.Background()) != nil {
		t.Error("expected nil caller")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := NewRequestIDMiddleware().Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if seen == "" || rr.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated id not propagated: ctx=%q header=%q", seen, rr.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id-1")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if seen != "upstream-id-1" {
		t.Errorf("expected inbound id to be reused, got %q", seen)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLen+1))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if len(seen) > maxRequestIDLen {
		t.Error("oversized inbound id should be replaced")
	}
}

func TestLoggingMiddleware_OmitsQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := NewLoggingMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/api/v1/integrations/hubspot/oauth2callback?code=secretcode&state=secretstate", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if !strings.Contains(out, `"status":418`) {
		t.Errorf("expected status in log, got %s", out)
	}
	if strings.Contains(out, "secretcode") || strings.Contains(out, "secretstate") {
		t.Errorf("query string leaked into log: %s", out)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	handler := NewRecoveryMiddleware(slog.New(slog.NewTextHandler(&buf, nil))).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("expected panic to be logged, got %s", buf.String())
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := NewCORSMiddleware([]string{"https://app.example.com"}).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("OPTIONS", "/api/v1/integrations/hubspot/authorize", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Errorf("expected allowed origin header, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unexpected CORS header for disallowed origin")
	}
}
