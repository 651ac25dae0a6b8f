package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lawquery/lexgate/internal/gateway/cache"
	"github.com/lawquery/lexgate/internal/gateway/fallback"
	"github.com/lawquery/lexgate/internal/gateway/metrics"
	"github.com/lawquery/lexgate/internal/shared/database"
	"github.com/lawquery/lexgate/internal/shared/models"
)

// Generator produces an answer for one question. Satisfied by
// *fallback.Executor.
type Generator interface {
	Generate(ctx context.Context, q fallback.Question) fallback.Answer
}

// AskRequest is the inbound question payload
type AskRequest struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
	Language string `json:"language,omitempty"`
}

// AskResponse is the outbound answer payload
type AskResponse struct {
	Answer    string `json:"answer"`
	Model     string `json:"model,omitempty"`
	TierLabel string `json:"tier_label,omitempty"`
	Degraded  bool   `json:"degraded"`
	RequestID string `json:"request_id"`
}

type AskHandler struct {
	generator    Generator
	cache        *cache.Cache
	db           *database.DB
	signal       *fallback.RateLimitSignal
	cacheEnabled bool
	cacheTTL     time.Duration
}

func NewAskHandler(generator Generator, answerCache *cache.Cache, db *database.DB, signal *fallback.RateLimitSignal, cacheEnabled bool, cacheTTL time.Duration) *AskHandler {
	return &AskHandler{
		generator:    generator,
		cache:        answerCache,
		db:           db,
		signal:       signal,
		cacheEnabled: cacheEnabled,
		cacheTTL:     cacheTTL,
	}
}

// HandleAsk handles POST /v1/ask
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()
	requestID := uuid.NewString()

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	question := fallback.Question{
		Text:     req.Question,
		Context:  req.Context,
		Language: req.Language,
	}

	// Check cache if enabled
	var cacheHit bool
	var answer fallback.Answer
	if h.cacheEnabled && h.cache != nil {
		if cached, err := h.cache.Get(ctx, question); err == nil {
			answer = *cached
			cacheHit = true
			metrics.CacheHits.Inc()
		}
	}

	if !cacheHit {
		answer = h.generator.Generate(ctx, question)

		if answer.Degraded {
			metrics.DegradedAnswers.WithLabelValues(answer.DegradedKind).Inc()
		} else {
			metrics.TierAnswers.WithLabelValues(answer.TierUsed).Inc()

			if h.cacheEnabled && h.cache != nil {
				h.cache.Set(ctx, question, &answer, h.cacheTTL)
			}
		}
	}

	latencyMs := int(time.Since(startTime).Milliseconds())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Model-Tier", answer.TierUsed)
	w.Header().Set("X-Degraded", fmt.Sprintf("%v", answer.Degraded))
	w.Header().Set("X-Cache-Hit", fmt.Sprintf("%v", cacheHit))
	w.Header().Set("X-Latency-Ms", fmt.Sprintf("%d", latencyMs))

	// The shared signal is the source of truth for upstream reset timing.
	if answer.DegradedKind == fallback.DegradedRateLimited && h.signal != nil {
		if remaining := h.signal.SecondsRemaining(); remaining > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(remaining))
		}
	}

	h.logAsk(r, requestID, &answer, cacheHit, latencyMs)

	json.NewEncoder(w).Encode(AskResponse{
		Answer:    answer.Text,
		Model:     answer.TierUsed,
		TierLabel: answer.TierLabel,
		Degraded:  answer.Degraded,
		RequestID: requestID,
	})
}

// logAsk records the request to the database without blocking the response.
func (h *AskHandler) logAsk(r *http.Request, requestID string, answer *fallback.Answer, cacheHit bool, latencyMs int) {
	if h.db == nil {
		return
	}

	entry := &models.AskLog{
		ID:         requestID,
		ClientID:   clientIDFromContext(r),
		Endpoint:   r.URL.Path,
		Model:      answer.TierUsed,
		TierLabel:  answer.TierLabel,
		Degraded:   answer.Degraded,
		CacheHit:   cacheHit,
		LatencyMs:  latencyMs,
		StatusCode: http.StatusOK,
	}
	if answer.Degraded {
		kind := answer.DegradedKind
		entry.ErrorMessage = &kind
	}

	go h.db.LogAsk(context.Background(), entry)
}
