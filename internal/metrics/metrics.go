package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Relay outcome labels.
const (
	ResultSent         = "sent"
	ResultFetchFailed  = "fetch_failed"
	ResultMissingShop  = "missing_shop"
	ResultUpsertFailed = "upsert_failed"
	ResultPanic        = "panic"
)

// Set groups every collector the app exposes. A nil *Set is valid and records nothing.
type Set struct {
	registry *prometheus.Registry

	relayRuns     *prometheus.CounterVec
	relayDuration prometheus.Histogram
	webhooks      *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func New() (*Set, error) {
	s := &Set{
		registry: prometheus.NewRegistry(),
		relayRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_runs_total",
			Help: "Post-auth shop relays by result",
		}, []string{"result"}),
		relayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_duration_seconds",
			Help:    "Wall time of a post-auth shop relay",
			Buckets: prometheus.DefBuckets,
		}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhooks_received_total",
			Help: "Verified webhook deliveries by topic and outcome",
		}, []string{"topic", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	cs := []prometheus.Collector{
		s.relayRuns, s.relayDuration, s.webhooks, s.httpRequests, s.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range cs {
		if err := s.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *Set) ObserveRelay(result string, took time.Duration) {
	if s == nil {
		return
	}
	s.relayRuns.WithLabelValues(result).Inc()
	s.relayDuration.Observe(took.Seconds())
}

// RelayCounter exposes the relay_runs_total child for result. A nil Set yields
// an unregistered counter.
func (s *Set) RelayCounter(result string) prometheus.Counter {
	if s == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: "relay_runs_total"})
	}
	return s.relayRuns.WithLabelValues(result)
}

func (s *Set) ObserveWebhook(topic, outcome string) {
	if s == nil {
		return
	}
	s.webhooks.WithLabelValues(topic, outcome).Inc()
}

// Middleware records request counts and latency labeled by chi route pattern,
// so path params do not blow up label cardinality.
func (s *Set) Middleware(next http.Handler) http.Handler {
	if s == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				path = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		s.httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
