package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AdmissionDecisions counts admission outcomes by reason; allowed
	// requests are labeled "allowed".
	AdmissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexgate_admission_decisions_total",
		Help: "Admission control decisions by outcome.",
	}, []string{"outcome"})

	// TierAnswers counts answers by the model tier that produced them.
	TierAnswers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexgate_tier_answers_total",
		Help: "Successful answers by model tier.",
	}, []string{"model"})

	// DegradedAnswers counts locally generated fallback answers by kind.
	DegradedAnswers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexgate_degraded_answers_total",
		Help: "Degraded answers by failure class.",
	}, []string{"kind"})

	// CacheHits counts answers served from the Redis cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexgate_cache_hits_total",
		Help: "Answers served from cache.",
	})
)

// Handler exposes the registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
