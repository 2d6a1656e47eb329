package server

import (
	"net/http"
	"time"

	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/common/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger logs one line per request and records its latency.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route, http.StatusText(status)).Observe(elapsed.Seconds())

			fields := map[string]interface{}{
				"method":     r.Method,
				"route":      route,
				"status":     status,
				"durationMs": elapsed.Milliseconds(),
				"requestId":  middleware.GetReqID(r.Context()),
			}
			if status >= http.StatusInternalServerError {
				log.Error("request failed", fields)
				return
			}
			log.Debug("request served", fields)
		})
	}
}
