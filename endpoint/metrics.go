package endpoint

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uno_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "uno_http_request_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func observeRequest(method, path string, status int, elapsed time.Duration) {
	route := routeLabel(path)
	requestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// routeLabel collapses ids so the label set stays bounded: /api/user/42
// becomes /api/user/{id}.
func routeLabel(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) == 4 && parts[1] == "api" {
		parts[3] = "{id}"
	}
	return strings.Join(parts, "/")
}
