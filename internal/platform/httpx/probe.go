package httpx

import (
	"context"
	"net/http"
	"time"
)

// Probe is one dependency checked by the readiness endpoint.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Readiness answers 200 when every probe passes within timeout and 503 with
// the failing checks otherwise.
func Readiness(timeout time.Duration, probes ...Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		checks := make(map[string]string, len(probes))
		failed := false
		for _, p := range probes {
			if err := p.Check(ctx); err != nil {
				checks[p.Name] = err.Error()
				failed = true
				continue
			}
			checks[p.Name] = "ok"
		}
		if failed {
			JSON(w, http.StatusServiceUnavailable, ProblemDetail{
				Title:  "Not Ready",
				Status: http.StatusServiceUnavailable,
				Checks: checks,
			})
			return
		}
		JSON(w, http.StatusOK, map[string]any{"status": "ready", "checks": checks})
	}
}
