package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lawquery/lexgate/internal/gateway/admission"
)

func newAdmissionHandler(rule admission.Rule) http.Handler {
	controller := admission.NewController(rule, 300*time.Second)
	m := NewMiddleware(controller, nil)

	return m.AdmissionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAdmissionMiddlewareAllowsAndAnnotates(t *testing.T) {
	handler := newAdmissionHandler(admission.Rule{BurstLimit: 5, RequestsPerMinute: 10, RequestsPerHour: 100})

	req := httptest.NewRequest("POST", "/v1/ask", nil)
	req.RemoteAddr = "10.0.0.1:52000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining-Minute"); got != "9" {
		t.Fatalf("remaining minute = %q, want 9", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining-Hour"); got != "99" {
		t.Fatalf("remaining hour = %q, want 99", got)
	}
}

func TestAdmissionMiddlewareRejectsWith429(t *testing.T) {
	handler := newAdmissionHandler(admission.Rule{BurstLimit: 1, RequestsPerMinute: 10, RequestsPerHour: 100})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/v1/ask", nil)
		req.RemoteAddr = "10.0.0.1:52000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i == 0 {
			if rec.Code != http.StatusOK {
				t.Fatalf("first request: status = %d, want 200", rec.Code)
			}
			continue
		}

		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("second request: status = %d, want 429", rec.Code)
		}
		if got := rec.Header().Get("Retry-After"); got != "10" {
			t.Fatalf("Retry-After = %q, want 10", got)
		}

		var body struct {
			Reason            string `json:"reason"`
			RetryAfterSeconds int    `json:"retry_after_seconds"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Reason != "burst_limit" || body.RetryAfterSeconds != 10 {
			t.Fatalf("body = %+v, want burst_limit/10", body)
		}
	}
}

func TestAdmissionMiddlewareSeparatesIdentities(t *testing.T) {
	handler := newAdmissionHandler(admission.Rule{BurstLimit: 1, RequestsPerMinute: 10, RequestsPerHour: 100})

	first := httptest.NewRequest("POST", "/v1/ask", nil)
	first.RemoteAddr = "10.0.0.1:52000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first identity: status = %d", rec.Code)
	}

	second := httptest.NewRequest("POST", "/v1/ask", nil)
	second.RemoteAddr = "10.0.0.2:52000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Fatalf("second identity should be unaffected: status = %d", rec.Code)
	}
}

func TestClientIdentity(t *testing.T) {
	cases := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded wins", "1.2.3.4, 5.6.7.8", "9.9.9.9", "10.0.0.1:80", "1.2.3.4"},
		{"single forwarded", "1.2.3.4", "", "10.0.0.1:80", "1.2.3.4"},
		{"real ip next", "", "9.9.9.9", "10.0.0.1:80", "9.9.9.9"},
		{"peer address last", "", "", "10.0.0.1:80", "10.0.0.1"},
		{"peer without port", "", "", "10.0.0.1", "10.0.0.1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}

			if got := ClientIdentity(req); got != tc.want {
				t.Fatalf("identity = %q, want %q", got, tc.want)
			}
		})
	}
}
