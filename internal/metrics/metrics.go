// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsTotal counts channel send attempts by channel and outcome.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geowarn_notifications_total",
		Help: "Channel send attempts, labelled by channel type and status (delivered, failed, rate_limited).",
	}, []string{"channel", "status"})

	// EscalationsAdvanced counts timeout-driven level advances.
	EscalationsAdvanced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geowarn_escalations_advanced_total",
		Help: "Escalations advanced to a higher level by the scheduler.",
	})

	// ActiveEscalations tracks the number of unresolved escalations.
	ActiveEscalations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "geowarn_active_escalations",
		Help: "Currently unresolved escalations.",
	})
)
