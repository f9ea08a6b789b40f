package txn

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/conditions"
)

var (
	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mms_transactions_total",
		Help: "Guarded writes and reads by outcome",
	}, []string{"kind", "outcome"})

	transactionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mms_transaction_duration_seconds",
		Help:    "Lifetime of transactions that wrote to the store",
		Buckets: prometheus.DefBuckets,
	})
)

func observe(kind string, err error) {
	var unmet *conditions.RequirementNotMetError
	outcome := "committed"
	switch {
	case err == nil:
	case errors.As(err, &unmet):
		outcome = "rejected"
	default:
		outcome = "failed"
	}
	transactionsTotal.WithLabelValues(kind, outcome).Inc()
}
