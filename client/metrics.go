package client

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the request pipeline.
type Metrics struct {
	duration     *prometheus.HistogramVec
	retries      prometheus.Counter
	unauthorized prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "propauth",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Duration of each API request attempt that received a response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "propauth",
			Subsystem: "client",
			Name:      "request_retries_total",
			Help:      "Requests re-issued after a transport failure.",
		}),
		unauthorized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "propauth",
			Subsystem: "client",
			Name:      "unauthorized_total",
			Help:      "Responses with status 401 that cleared the session.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.duration, m.retries, m.unauthorized)
	}
	return m
}

func (m *Metrics) observe(method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(method, strconv.Itoa(status)).Observe(seconds)
}

func (m *Metrics) retried() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) sessionCleared() {
	if m == nil {
		return
	}
	m.unauthorized.Inc()
}
