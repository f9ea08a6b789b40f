package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mms_sparql_requests_total",
		Help: "Total number of requests sent to the graph store",
	}, []string{"kind", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mms_sparql_request_duration_seconds",
		Help:    "Graph store round-trip latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)
