package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bevops-backend/internal/models"
	"bevops-backend/internal/validation"
)

var (
	// ValidationsTotal counts validator outcomes by operation and result
	ValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bevops_validations_total",
		Help: "Validator outcomes by operation and result (valid, warned, rejected)",
	}, []string{"operation", "result"})

	// ValidationErrors counts blocking issues by kind
	ValidationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bevops_validation_errors_total",
		Help: "Blocking validation issues by kind",
	}, []string{"kind"})

	// TransitionsTotal counts committed container status changes
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bevops_container_transitions_total",
		Help: "Committed container status changes",
	}, []string{"from", "to"})

	// ActiveAlerts is the latest alert count per severity
	ActiveAlerts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bevops_active_alerts",
		Help: "Alerts in the most recent recomputation by severity",
	}, []string{"severity"})

	// CleaningQueueDepth is the number of queue items per status
	CleaningQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bevops_cleaning_queue_items",
		Help: "Cleaning queue items by status",
	}, []string{"status"})

	// CleaningCycleMinutes tracks wash duration for completed items
	CleaningCycleMinutes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bevops_cleaning_cycle_minutes",
		Help:    "Minutes from start to completion of a cleaning item",
		Buckets: []float64{5, 10, 15, 20, 30, 45, 60, 90, 120},
	})

	// LockWaitSeconds tracks time spent waiting on per-entity locks
	LockWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bevops_lock_wait_seconds",
		Help:    "Time spent acquiring per-entity locks",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveValidation records one validator result
func ObserveValidation(operation string, r validation.Result) {
	result := "valid"
	switch {
	case !r.Valid:
		result = "rejected"
	case len(r.Warnings) > 0:
		result = "warned"
	}
	ValidationsTotal.WithLabelValues(operation, result).Inc()
	for _, e := range r.Errors {
		ValidationErrors.WithLabelValues(string(e.Kind)).Inc()
	}
}

// ObserveAlerts replaces the active alert gauges
func ObserveAlerts(alerts []models.Alert) {
	counts := map[models.AlertSeverity]float64{
		models.AlertCritical: 0,
		models.AlertError:    0,
		models.AlertWarning:  0,
		models.AlertInfo:     0,
	}
	for _, a := range alerts {
		counts[a.Severity]++
	}
	for sev, n := range counts {
		ActiveAlerts.WithLabelValues(string(sev)).Set(n)
	}
}

// ObserveQueue replaces the cleaning queue gauges
func ObserveQueue(queue []models.CleaningQueueItem) {
	counts := map[models.CleaningStatus]float64{
		models.CleaningQueued:     0,
		models.CleaningInProgress: 0,
		models.CleaningCompleted:  0,
		models.CleaningFailed:     0,
	}
	for _, it := range queue {
		counts[it.Status]++
	}
	for st, n := range counts {
		CleaningQueueDepth.WithLabelValues(string(st)).Set(n)
	}
}
