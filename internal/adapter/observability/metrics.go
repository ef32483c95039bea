package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts requests by route, method and status text.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	// HTTPRequestDuration observes request latency by route and method.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	// LLMRequestsTotal counts chat-completion calls by provider, operation
	// and outcome (ok, error).
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of LLM chat-completion requests",
		},
		[]string{"provider", "operation", "outcome"},
	)
	// LLMRequestDuration observes chat-completion latency. Buckets stretch to
	// a minute because local models routinely take tens of seconds.
	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM chat-completion duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	// FallbackTurnsTotal counts degraded turns by reason (timeout,
	// connection, status, empty).
	FallbackTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_turns_total",
			Help: "Total number of turns served by the canned fallback path",
		},
		[]string{"operation", "reason"},
	)

	// InterviewsStartedTotal counts created sessions.
	InterviewsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interviews_started_total",
			Help: "Total number of interview sessions started",
		},
	)
	// InterviewsCompletedTotal counts sessions that reached the completed state.
	InterviewsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interviews_completed_total",
			Help: "Total number of interview sessions completed",
		},
	)
)

// InitMetrics registers all Prometheus collectors once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(FallbackTurnsTotal)
	prometheus.MustRegister(InterviewsStartedTotal)
	prometheus.MustRegister(InterviewsCompletedTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveLLMRequest records one chat-completion call.
func ObserveLLMRequest(provider, operation string, dur time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	LLMRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	LLMRequestDuration.WithLabelValues(provider, operation).Observe(dur.Seconds())
}

// RecordFallbackTurn records a turn served by the canned fallback path.
func RecordFallbackTurn(operation, reason string) {
	FallbackTurnsTotal.WithLabelValues(operation, reason).Inc()
}
