package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "promo_http_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "promo_http_in_flight",
		Help: "In-flight HTTP requests",
	})
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_decisions_total",
			Help: "Visibility decisions by reason",
		}, []string{"reason"},
	)
	SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_session_transitions_total",
			Help: "Modal session transitions by target state",
		}, []string{"state"},
	)
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "promo_sessions_active",
		Help: "Modal sessions currently tracked",
	})
	MediaFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promo_media_failures_total",
		Help: "Renders that fell back to text because media was unusable",
	})
	SnapshotRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_snapshot_refreshes_total",
			Help: "Campaign snapshot rebuilds by trigger",
		}, []string{"trigger"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight, Decisions, SessionTransitions,
		ActiveSessions, MediaFailures, SnapshotRefreshes)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}
