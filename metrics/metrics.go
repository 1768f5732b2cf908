package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProbesTotal counts stream probes by outcome
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_probes_total",
		Help: "Total number of stream probes by outcome",
	}, []string{"outcome"})

	// ProbeDuration tracks how long stream probes take
	ProbeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "iptv_probe_duration_seconds",
		Help:    "Duration of stream probes in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ProbesInFlight tracks the number of probes currently running
	ProbesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_probes_in_flight",
		Help: "Number of stream probes currently running",
	})

	// SourcesFetched counts playlist source downloads by result
	SourcesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_sources_fetched_total",
		Help: "Total number of playlist source fetches by result",
	}, []string{"result"})

	// CircuitBreakerState tracks the current state of circuit breakers
	// 0=closed, 1=open, 2=half-open
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iptv_source_breaker_state",
		Help: "Current state of source circuit breaker (0=closed, 1=open, 2=half-open)",
	}, []string{"host"})

	// CircuitBreakerTrips tracks how many times a circuit breaker transitioned to OPEN
	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_source_breaker_trips_total",
		Help: "Total number of times a source circuit breaker transitioned to OPEN state",
	}, []string{"host"})
)

// RecordProbe records one finished probe with its outcome and duration
func RecordProbe(ok bool, elapsed time.Duration) {
	outcome := "playable"
	if !ok {
		outcome = "dead"
	}
	ProbesTotal.WithLabelValues(outcome).Inc()
	ProbeDuration.Observe(elapsed.Seconds())
}

// RecordSourceFetch counts one source download attempt
// result should be one of: "ok", "error", "cache"
func RecordSourceFetch(result string) {
	SourcesFetched.WithLabelValues(result).Inc()
}

// SetBreakerState updates the circuit breaker state metric
// state should be one of: "CLOSED" (0), "OPEN" (1), "HALF-OPEN" (2)
func SetBreakerState(host, state string) {
	var value float64
	switch state {
	case "CLOSED":
		value = 0
	case "OPEN":
		value = 1
	case "HALF-OPEN":
		value = 2
	}
	CircuitBreakerState.WithLabelValues(host).Set(value)
}

// RecordBreakerTrip increments the circuit breaker trip counter
func RecordBreakerTrip(host string) {
	CircuitBreakerTrips.WithLabelValues(host).Inc()
}
