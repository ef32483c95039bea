package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/config"
)

// BuildRouter assembles the full middleware stack and route table.
func BuildRouter(cfg config.Config, srv *httpserver.Server, ready *Readiness) *chi.Mux {
	r := chi.NewRouter()

	r.Use(httpserver.RequestID)
	r.Use(httpserver.Recoverer)
	r.Use(httpserver.SecurityHeaders)
	r.Use(httpserver.TraceMiddleware)
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(httpserver.AccessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   parseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", srv.Root)
	r.Get("/healthz", srv.Healthz)
	r.Get("/readyz", ready.Handler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/interviews", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			// Rate-limit the mutating endpoints only; status polling from the
			// frontend stays unthrottled.
			if cfg.RateLimitPerMin > 0 {
				r.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			}
			r.Post("/start", srv.StartInterview)
			r.Post("/chat/message", srv.ChatMessage)
			r.Post("/evaluate", srv.EvaluateAnswer)
		})
		r.Get("/status/{session_id}", srv.InterviewStatus)
		r.Get("/report/{session_id}", srv.InterviewReport)
	})

	return r
}

func parseOrigins(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{"*"}
	}
	return out
}
