// internal/service/groupbuy/interfaces/metrics.go
package interfaces

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	payNotifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pinhub_pay_notify_total",
		Help: "Payment gateway notifications processed, by reconciliation outcome.",
	}, []string{"outcome"})

	groupCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pinhub_group_created_total",
		Help: "Groups created and awaiting payment.",
	})

	proofSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pinhub_proof_submitted_total",
		Help: "Join proofs submitted or resubmitted.",
	})
)
