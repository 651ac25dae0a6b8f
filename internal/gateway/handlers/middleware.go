package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lawquery/lexgate/internal/gateway/admission"
	"github.com/lawquery/lexgate/internal/gateway/metrics"
	"github.com/lawquery/lexgate/internal/shared/database"
	"github.com/lawquery/lexgate/internal/shared/models"
)

type contextKey string

const clientIDKey contextKey = "client_id"

type Middleware struct {
	controller *admission.Controller
	db         *database.DB
}

func NewMiddleware(controller *admission.Controller, db *database.DB) *Middleware {
	return &Middleware{
		controller: controller,
		db:         db,
	}
}

// AdmissionMiddleware runs the admission check for every request. Denials
// are resolved entirely here as a structured 429 and never reach the
// handler; admitted requests carry remaining-quota headers. No I/O happens
// on this path beyond the controller's in-memory check.
func (m *Middleware) AdmissionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := ClientIdentity(r)
		decision := m.controller.Check(identity, r.URL.Path)

		w.Header().Set("X-RateLimit-Remaining-Minute", strconv.Itoa(decision.Remaining.Minute))
		w.Header().Set("X-RateLimit-Remaining-Hour", strconv.Itoa(decision.Remaining.Hour))

		if !decision.Allowed {
			metrics.AdmissionDecisions.WithLabelValues(decision.Reason).Inc()

			if decision.Reason == admission.ReasonBurstLimit && m.db != nil {
				event := &models.BanEvent{
					ID:              uuid.NewString(),
					ClientID:        identity,
					Endpoint:        r.URL.Path,
					DurationSeconds: int(m.controller.BanDuration().Seconds()),
				}
				// Audit asynchronously to keep the rejection path free of I/O.
				go m.db.LogBan(context.Background(), event)
			}

			w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"reason":              decision.Reason,
				"retry_after_seconds": decision.RetryAfterSeconds,
			})
			return
		}

		metrics.AdmissionDecisions.WithLabelValues("allowed").Inc()

		ctx := context.WithValue(r.Context(), clientIDKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CORSMiddleware handles CORS
func (m *Middleware) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIdentity extracts the caller identity: the first hop of
// X-Forwarded-For, then X-Real-IP, then the direct peer address.
func ClientIdentity(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, found := strings.Cut(forwarded, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// clientIDFromContext returns the identity stored by the admission
// middleware, falling back to re-extraction for routes outside it.
func clientIDFromContext(r *http.Request) string {
	if id, ok := r.Context().Value(clientIDKey).(string); ok && id != "" {
		return id
	}
	return ClientIdentity(r)
}
