package transport

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartaccess",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Outbound API requests by method, route and outcome (HTTP status or transport error kind).",
	}, []string{"method", "route", "outcome"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "smartaccess",
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Outbound API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	return &metrics{
		requests: registerOrReuse(reg, requests).(*prometheus.CounterVec),
		duration: registerOrReuse(reg, duration).(*prometheus.HistogramVec),
	}
}

func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

func (m *metrics) observe(d RequestDescriptor, status int, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := strconv.Itoa(status)
	if kind, ok := KindOf(err); ok {
		outcome = string(kind)
	} else if err != nil {
		outcome = "ERROR"
	}
	m.requests.WithLabelValues(d.Method, d.route(), outcome).Inc()
	m.duration.WithLabelValues(d.Method, d.route()).Observe(elapsed.Seconds())
}
