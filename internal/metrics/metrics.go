// Package metrics exposes Prometheus instrumentation for the HTTP
// surface and the generation pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizforge_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quizforge_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizforge_generations_total",
		Help: "Quiz generation pipeline invocations by outcome.",
	}, []string{"outcome"})

	generationsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quizforge_generations_in_flight",
		Help: "Generation pipeline invocations currently running.",
	})

	parserStageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizforge_parser_stage_total",
		Help: "Successful structure recoveries by parser stage.",
	}, []string{"stage"})

	droppedCandidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizforge_dropped_candidates_total",
		Help: "Candidates rejected by the option-count filter.",
	})
)

// Pipeline outcome labels recorded by GenerationStarted's done func.
const (
	OutcomeOK                  = "ok"
	OutcomeUpstreamError       = "upstream_error"
	OutcomeParseFailure        = "parse_failure"
	OutcomeValidationExhausted = "validation_exhausted"
	OutcomePersistenceError    = "persistence_error"
	OutcomeJoinCodeCapacity    = "join_code_capacity"
)

// GenerationStarted marks a pipeline invocation as running and returns
// a done func that records the final outcome.
func GenerationStarted() func(outcome string) {
	generationsInFlight.Inc()
	return func(outcome string) {
		generationsInFlight.Dec()
		generationsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveParserStage counts a successful recovery by stage name.
func ObserveParserStage(stage string) {
	parserStageTotal.WithLabelValues(stage).Inc()
}

// AddDroppedCandidates accumulates the sanitizer's aggregate drop count.
func AddDroppedCandidates(n int) {
	if n > 0 {
		droppedCandidatesTotal.Add(float64(n))
	}
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
