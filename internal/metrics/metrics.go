// Package metrics exposes Prometheus collectors for domain writes and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Writes counts committed domain writes by entity and action.
	Writes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "churchdesk_writes_total",
		Help: "Committed domain writes",
	}, []string{"entity", "action"})

	// Rejections counts writes refused by validation, conflicts or storage failures.
	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "churchdesk_write_rejections_total",
		Help: "Writes rejected before commit",
	}, []string{"entity", "kind"})

	// DueItems is the most recent due-status breakdown seen by the dashboard.
	DueItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "churchdesk_due_items",
		Help: "Items by due status at the last dashboard load",
	}, []string{"kind", "status"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "churchdesk_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "churchdesk_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency keyed by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
