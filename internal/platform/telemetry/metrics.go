package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkroute_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "code"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkroute_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	RedirectDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkroute_redirect_decisions_total",
			Help: "Redirect resolutions by terminal state",
		},
		[]string{"status"},
	)
	RuleEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkroute_rule_evaluations_total",
			Help: "Multiple-destination rule evaluations by outcome (matched, default)",
		},
		[]string{"outcome"},
	)
	GeoLookupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linkroute_geo_lookup_failures_total",
		Help: "Geolocation lookups that failed or timed out",
	})
	ClicksRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linkroute_clicks_recorded_total",
		Help: "Clicks persisted",
	})
	ClicksDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linkroute_clicks_dropped_total",
		Help: "Clicks dropped because the queue was full or the write failed",
	})
	ClickQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "linkroute_click_queue_depth",
		Help: "Clicks waiting to be persisted",
	})
)

var initOnce sync.Once

// Init registers all collectors with the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpReqs, httpDur,
			RedirectDecisions, RuleEvaluations, GeoLookupFailures,
			ClicksRecorded, ClicksDropped, ClickQueueDepth,
		)
	})
}

// Middleware records request count and latency, labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return Instrument("other", next)
}

// Instrument is Middleware with a fixed route label for handlers outside chi.
func Instrument(fallbackRoute string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := fallbackRoute
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		httpReqs.WithLabelValues(route, r.Method, strconv.Itoa(ww.status)).Inc()
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

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
