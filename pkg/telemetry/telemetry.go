package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"convosync/pkg/logger"
)

// Request telemetry: Prometheus metrics for every request plus a log line
// for requests slower than slowThreshold.

var slowThreshold = 200 * time.Millisecond

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convosync_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "convosync_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts, latency and slow-request logs. The
// route label is the request path; mux route templates collapse ids so the
// cardinality stays bounded.
func Middleware(routeName func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if routeName != nil {
				if n := routeName(r); n != "" {
					route = n
				}
			}
			elapsed := time.Since(start)
			requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
			if elapsed > slowThreshold {
				logger.Warn("slow_request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration_ms", elapsed.Milliseconds())
			}
		})
	}
}
