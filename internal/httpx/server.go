package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chronoshop/storefront/internal/metrics"
)

// NewRouter builds the base router. Extra middleware must come in here:
// chi rejects Use calls once the first route is mounted.
func NewRouter(mw ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(mw...)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Instrument records request counts and latency per route pattern.
func Instrument(m *metrics.ServerMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			m.Requests.WithLabelValues(pattern, strconv.Itoa(ww.Status())).Inc()
			m.LatencyMS.WithLabelValues(pattern).Observe(float64(time.Since(start).Milliseconds()))
		})
	}
}
