package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Outcome string

const (
	Success Outcome = "success"
	Error   Outcome = "error"
)

func (o Outcome) String() string {
	return string(o)
}

var (
	once sync.Once

	defaultHistogramBucketsSeconds = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

	refreshCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oceanbot_refresh_total",
			Help: "Ocean refresh cycles split by outcome.",
		},
		[]string{"outcome"},
	)

	refreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oceanbot_refresh_duration_seconds",
			Help:    "Histogram of ocean refresh cycle durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"outcome"},
	)

	stuckOverrideCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oceanbot_stuck_overrides_total",
			Help: "Number of times a stale in-flight refresh flag was reclaimed.",
		},
	)

	priceSourceCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oceanbot_price_source_total",
			Help: "Token price resolutions split by the source that answered.",
		},
		[]string{"source"},
	)

	netcacheCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oceanbot_netcache_requests_total",
			Help: "Network response cache lookups split by hit or miss.",
		},
		[]string{"result"},
	)

	updateCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oceanbot_updates_total",
			Help: "Inbound chat updates split by handler outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

// Init registers the collectors with the default registry.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			refreshCounter,
			refreshDuration,
			stuckOverrideCounter,
			priceSourceCounter,
			netcacheCounter,
			updateCounter,
		)
	})
}

// Mount exposes /metrics on the given router.
func Mount(r chi.Router) {
	Init()
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		promhttp.Handler().ServeHTTP(w, req)
	})
}

func RecordRefresh(d time.Duration, failure bool) {
	status := Success
	if failure {
		status = Error
	}
	refreshCounter.WithLabelValues(status.String()).Inc()
	refreshDuration.WithLabelValues(status.String()).Observe(d.Seconds())
}

func IncStuckOverride() {
	stuckOverrideCounter.Inc()
}

func IncPriceSource(source string) {
	priceSourceCounter.WithLabelValues(source).Inc()
}

func IncNetcache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	netcacheCounter.WithLabelValues(result).Inc()
}

func IncUpdate(kind string, failure bool) {
	status := Success
	if failure {
		status = Error
	}
	updateCounter.WithLabelValues(kind, status.String()).Inc()
}
