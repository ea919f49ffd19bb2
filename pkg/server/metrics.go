package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cost_reporting",
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests handled by the API, by status code, method and route.",
		},
		[]string{"code", "method", "route"},
	)

	httpRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cost_reporting",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests handled by the API.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"code", "method", "route"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsCounter)
	prometheus.MustRegister(httpRequestDurationHistogram)
}

// prometheusMiddleware records every request against the route pattern it
// matched, so path parameters do not create new series.
func prometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := prometheus.Labels{
			"code":   strconv.Itoa(status),
			"method": r.Method,
			"route":  routePattern(r),
		}
		httpRequestsCounter.With(labels).Inc()
		httpRequestDurationHistogram.With(labels).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || len(rctx.RoutePatterns) == 0 {
		return "unmatched"
	}
	return strings.Replace(strings.Join(rctx.RoutePatterns, ""), "/*/", "/", -1)
}
