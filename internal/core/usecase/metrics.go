package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	walletOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletcore",
		Subsystem: "wallet",
		Name:      "operations_total",
		Help:      "Wallet balance operations by type and outcome.",
	}, []string{"operation", "outcome"})

	ledgerInconsistencies = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "walletcore",
		Subsystem: "ledger",
		Name:      "inconsistencies_total",
		Help:      "Reconciliation mismatches between ledger history and stored balances.",
	})
)

func observeOperation(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	walletOperations.WithLabelValues(operation, outcome).Inc()
	if IsInconsistency(err) {
		ledgerInconsistencies.Inc()
	}
}
