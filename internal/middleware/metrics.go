package middleware

import (
	"net/http"
	"strconv"

	"github.com/fieldforce/backend/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Metrics counts requests by method, route pattern and status code.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		routePath := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				routePath = pattern
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, routePath, strconv.Itoa(status)).Inc()
	})
}
