// Package app wires the HTTP surface together: router construction,
// middleware order, and readiness probes.
package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Probe is a named readiness check. Check returns nil when the dependency is
// usable.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Readiness aggregates probes behind a /readyz handler. Liveness (/healthz)
// stays separate and unconditional.
type Readiness struct {
	probes  []Probe
	timeout time.Duration
}

// NewReadiness builds a Readiness over the given probes.
func NewReadiness(probes ...Probe) *Readiness {
	return &Readiness{probes: probes, timeout: 2 * time.Second}
}

type probeResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

// Handler runs every probe with a short per-probe timeout and reports 503
// when any of them fails.
func (r *Readiness) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		results := make([]probeResult, 0, len(r.probes))
		allOK := true
		for _, p := range r.probes {
			ctx, cancel := context.WithTimeout(req.Context(), r.timeout)
			err := p.Check(ctx)
			cancel()
			res := probeResult{Name: p.Name, OK: err == nil}
			if err != nil {
				allOK = false
				res.Details = err.Error()
				slog.Warn("readiness probe failed",
					slog.String("probe", p.Name),
					slog.Any("error", err))
			}
			results = append(results, res)
		}
		status := http.StatusOK
		if !allOK {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"checks": results})
	}
}
