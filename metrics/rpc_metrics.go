package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const RPCClientSubsystem = "rpc_client"

// RPCMetrics tracks client-side RPC metrics for the harness connection.
type RPCMetrics struct {
	requestsTotal          *prometheus.CounterVec
	requestDurationSeconds *prometheus.HistogramVec
	responsesTotal         *prometheus.CounterVec
}

// MakeRPCMetrics creates a new RPCMetrics with the given namespace,
// registered on the given registry.
func MakeRPCMetrics(ns string, registry prometheus.Registerer) *RPCMetrics {
	m := &RPCMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: RPCClientSubsystem,
			Name:      "requests_total",
			Help:      "Total RPC requests initiated",
		}, []string{
			"method",
		}),
		requestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: RPCClientSubsystem,
			Name:      "request_duration_seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			Help:      "Histogram of RPC client request durations",
		}, []string{
			"method",
		}),
		responsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: RPCClientSubsystem,
			Name:      "responses_total",
			Help:      "Total RPC request responses received",
		}, []string{
			"method",
			"error",
		}),
	}
	registry.MustRegister(m.requestsTotal, m.requestDurationSeconds, m.responsesTotal)
	return m
}

// RecordRequest records the start of an RPC request, and returns a function
// to record the response with.
func (m *RPCMetrics) RecordRequest(method string) func(err error) {
	m.requestsTotal.WithLabelValues(method).Inc()
	timer := prometheus.NewTimer(m.requestDurationSeconds.WithLabelValues(method))
	return func(err error) {
		_ = timer.ObserveDuration()
		m.responsesTotal.WithLabelValues(method, errLabel(err)).Inc()
	}
}

func errLabel(err error) string {
	if err != nil {
		return "true"
	}
	return "false"
}
