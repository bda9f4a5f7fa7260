package fraud

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scoreHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fraud_score",
		Help:    "Fraud scores computed for claims and live lookups",
		Buckets: []float64{0, 20, 30, 50, 70, 100, 150},
	})

	degradedScoresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fraud_score_degraded_total",
		Help: "Scores defaulted to 0 because the graph store was unavailable",
	})

	alertsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_alerts_created_total",
		Help: "Fraud alerts created by severity",
	}, []string{"severity"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_alert_notifications_total",
		Help: "Fraud alert notifications by outcome",
	}, []string{"status"})

	syncOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_graph_sync_total",
		Help: "Graph mirror operations by kind and outcome",
	}, []string{"op", "status"})

	resyncLastFailed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fraud_graph_resync_last_failed",
		Help: "Insured parties that failed to sync in the last full resync",
	})

	alertsReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_alerts_received_total",
		Help: "Fraud alert notifications consumed by the listener, by severity",
	}, []string{"severity"})
)
