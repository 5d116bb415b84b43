// Package telemetry defines the service's prometheus metrics and the
// HTTP middleware that feeds the request metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// EventsTotal counts processed build events by outcome
	// (tagged, dry_run, no_match, retrieval_failed, parse_failed,
	// dispatch_failed, skipped).
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mts_events_total",
			Help: "Build events processed, by outcome",
		},
		[]string{"outcome"},
	)

	// RuleMatchesTotal counts rule matches by rule id.
	RuleMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mts_rule_matches_total",
			Help: "Rule matches, by rule id",
		},
		[]string{"rule"},
	)

	// TagsAppliedTotal counts tagBuild calls by status.
	TagsAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mts_tags_applied_total",
			Help: "Tag assignment calls, by status",
		},
		[]string{"status"},
	)

	// EvalDuration observes rule-set evaluation latency.
	EvalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mts_ruleset_eval_duration_seconds",
		Help:    "Rule set evaluation duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// Init registers all metrics with the default registry.
func Init() {
	prometheus.MustRegister(EventsTotal, RuleMatchesTotal, TagsAppliedTotal,
		EvalDuration, httpReqs, httpDur)
}

// Middleware records request counts and latency for the HTTP surface.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
