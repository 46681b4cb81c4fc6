package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"bevops-backend/internal/models"
	"bevops-backend/internal/validation"
)

func TestObserveValidation(t *testing.T) {
	before := testutil.ToFloat64(ValidationsTotal.WithLabelValues("move", "rejected"))
	beforeKind := testutil.ToFloat64(ValidationErrors.WithLabelValues(string(validation.CapacityExceeded)))

	ObserveValidation("move", validation.ValidateTruckCapacity(320, 160, 400))

	assert.Equal(t, before+1, testutil.ToFloat64(ValidationsTotal.WithLabelValues("move", "rejected")))
	assert.Equal(t, beforeKind+1, testutil.ToFloat64(ValidationErrors.WithLabelValues(string(validation.CapacityExceeded))))
}

func TestObserveAlerts(t *testing.T) {
	ObserveAlerts([]models.Alert{
		{Severity: models.AlertCritical},
		{Severity: models.AlertWarning},
		{Severity: models.AlertWarning},
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(ActiveAlerts.WithLabelValues("critical")))
	assert.Equal(t, 2.0, testutil.ToFloat64(ActiveAlerts.WithLabelValues("warning")))
	assert.Equal(t, 0.0, testutil.ToFloat64(ActiveAlerts.WithLabelValues("info")))

	ObserveAlerts(nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(ActiveAlerts.WithLabelValues("critical")))
}

func TestObserveQueue(t *testing.T) {
	ObserveQueue([]models.CleaningQueueItem{
		{Status: models.CleaningQueued},
		{Status: models.CleaningQueued},
		{Status: models.CleaningFailed},
	})
	assert.Equal(t, 2.0, testutil.ToFloat64(CleaningQueueDepth.WithLabelValues("queued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(CleaningQueueDepth.WithLabelValues("failed")))
}
