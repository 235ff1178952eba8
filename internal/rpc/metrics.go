package rpc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Klingon-tech/starnotary/internal/chain"
)

// metrics holds the collectors of one server. Each server owns its
// registry so several servers can run in one process.
type metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rateLimited prometheus.Counter
}

func newMetrics(ch *chain.Chain) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "starnotary_rpc_requests_total",
			Help: "Total JSON-RPC requests by method and result code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "starnotary_rpc_request_duration_seconds",
			Help:    "JSON-RPC request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "starnotary_rpc_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if ch != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "starnotary_chain_height",
			Help: "Height of the newest block.",
		}, func() float64 { return float64(ch.Height()) }))

		outcomes := map[string]func(chain.Stats) uint64{
			"accepted":      func(s chain.Stats) uint64 { return s.Accepted },
			"timeout":       func(s chain.Stats) uint64 { return s.Timeouts },
			"bad_signature": func(s chain.Stats) uint64 { return s.BadSignatures },
			"bad_message":   func(s chain.Stats) uint64 { return s.BadMessages },
			"bad_payload":   func(s chain.Stats) uint64 { return s.BadPayloads },
		}
		for outcome, get := range outcomes {
			get := get
			m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name:        "starnotary_star_submissions_total",
				Help:        "Star submissions by outcome.",
				ConstLabels: prometheus.Labels{"outcome": outcome},
			}, func() float64 { return float64(get(ch.Stats())) }))
		}

		m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "starnotary_chain_integrity_failures_total",
			Help: "Integrity findings logged during owner lookups.",
		}, func() float64 { return float64(ch.Stats().IntegrityFailure) }))
	}
	return m
}

// observe records one dispatched request.
func (m *metrics) observe(method string, rpcErr *Error, start time.Time) {
	code := 0
	if rpcErr != nil {
		code = rpcErr.Code
	}
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
