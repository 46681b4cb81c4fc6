package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bevops-backend/internal/cleaning"
	"bevops-backend/internal/database"
	"bevops-backend/internal/locking"
	"bevops-backend/internal/models"
	"bevops-backend/internal/tracking"
	"bevops-backend/internal/validation"
)

var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func testEnv() *Env {
	return &Env{NominalStock: 100, Now: func() time.Time { return fixedNow }}
}

func post(t *testing.T, h http.HandlerFunc, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw)))

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func intPtr(n int) *int { return &n }

func TestValidateMove(t *testing.T) {
	keg := models.Container{ID: "KEG-0001", Type: models.ContainerKeg, Status: models.StatusFilled}
	pallet := models.Container{ID: "PLT-0001", Type: models.ContainerPallet, Status: models.StatusStaging}
	warehouse := models.Location{ID: "warehouse", Name: "Main Warehouse", Type: models.LocationWarehouse}
	cleaningZone := models.Location{ID: "cleaning", Name: "Cleaning Station", Type: models.LocationCleaning}
	customer := models.Location{ID: "LOC-RIVERSIDE-PUB", Name: "Riverside Pub", Type: models.LocationCustomer}
	fullTruck := models.Location{ID: "TRUCK-01", Type: models.LocationTruck, Capacity: intPtr(2), ContainerIDs: []string{"A", "B"}}

	tests := []struct {
		name     string
		req      moveCheckRequest
		valid    bool
		warnings int
	}{
		{"plain move", moveCheckRequest{Container: keg, From: warehouse, To: customer}, true, 0},
		{"full keg to cleaning warns", moveCheckRequest{Container: keg, From: warehouse, To: cleaningZone}, true, 1},
		{"from customer warns", moveCheckRequest{Container: keg, From: customer, To: warehouse}, true, 1},
		{"pallet cannot enter cleaning", moveCheckRequest{Container: pallet, From: warehouse, To: cleaningZone}, false, 0},
		{"full truck zone", moveCheckRequest{Container: keg, From: warehouse, To: fullTruck}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := post(t, ValidateMove(testEnv()), tt.req)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.valid, out["valid"])
			assert.Len(t, out["warnings"], tt.warnings)
		})
	}
}

func TestValidateMoveRequiresDestination(t *testing.T) {
	rec, _ := post(t, ValidateMove(testEnv()), map[string]interface{}{"container": map[string]string{"id": "KEG-0001"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateAllocationUsesNominalStock(t *testing.T) {
	_, out := post(t, ValidateAllocation(testEnv()), map[string]int{"requested": 5, "available": 12})
	assert.Equal(t, true, out["valid"])
	assert.Len(t, out["warnings"], 1)

	_, out = post(t, ValidateAllocation(testEnv()), map[string]int{"requested": 5, "available": 12, "nominal": 20})
	assert.Empty(t, out["warnings"])

	_, out = post(t, ValidateAllocation(testEnv()), map[string]int{"requested": 13, "available": 12})
	assert.Equal(t, false, out["valid"])
}

func TestValidatePallet(t *testing.T) {
	_, out := post(t, ValidatePallet(testEnv()), map[string]int{"current": 40, "adding": 8, "capacity": 40})
	assert.Equal(t, true, out["valid"])
	assert.Len(t, out["warnings"], 1)

	_, out = post(t, ValidatePallet(testEnv()), map[string]int{"current": 40, "adding": 30, "capacity": 40})
	assert.Equal(t, false, out["valid"])
}

func TestValidateSchedule(t *testing.T) {
	_, out := post(t, ValidateSchedule(testEnv()), map[string]interface{}{
		"delivery_date":        fixedNow.Add(48 * time.Hour),
		"expected_return_date": fixedNow.Add(24 * time.Hour),
	})
	assert.Equal(t, false, out["valid"])

	_, out = post(t, ValidateSchedule(testEnv()), map[string]interface{}{
		"delivery_date": fixedNow.Add(45 * 24 * time.Hour),
	})
	assert.Equal(t, true, out["valid"])
	assert.Len(t, out["warnings"], 1)

	rec, _ := post(t, ValidateSchedule(testEnv()), map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteErrorMapsStatus(t *testing.T) {
	rejected := check("test", failed(validation.CapacityExceeded, "too heavy"))
	require.Error(t, rejected)

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"rejection", rejected, http.StatusUnprocessableEntity},
		{"confirmation", &confirmationRequired{result: validation.OK()}, http.StatusConflict},
		{"not found", fmt.Errorf("container KEG-9: %w", database.ErrNotFound), http.StatusNotFound},
		{"lifecycle", fmt.Errorf("%w: filled -> delivered", tracking.ErrInvalidTransition), http.StatusConflict},
		{"queue", cleaning.ErrNotQueued, http.StatusConflict},
		{"maintenance open", cleaning.ErrMaintenanceOpen, http.StatusConflict},
		{"no members", tracking.ErrNoMembers, http.StatusBadRequest},
		{"busy", locking.ErrNotAcquired, http.StatusServiceUnavailable},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, "TEST", tt.err)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestRejectionBodyCarriesResult(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, "TEST", check("test", failed(validation.TemporalViolation, "Fill date cannot be in the future")))

	var body struct {
		Valid  bool               `json:"valid"`
		Errors []validation.Issue `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Valid)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, validation.TemporalViolation, body.Errors[0].Kind)
}

func TestAtCustomerDefaultsReturnDateForKegs(t *testing.T) {
	loc := models.Location{ID: "LOC-RIVERSIDE-PUB", Name: "Riverside Pub", Type: models.LocationCustomer}
	truck := "TRUCK-01"

	keg := atCustomer(models.Container{ID: "KEG-0001", Type: models.ContainerKeg, TruckID: &truck}, loc, fixedNow)
	require.NotNil(t, keg.ExpectedReturnDate)
	assert.Equal(t, fixedNow.Add(defaultReturnWindow), *keg.ExpectedReturnDate)
	assert.Nil(t, keg.TruckID)
	assert.Equal(t, "LOC-RIVERSIDE-PUB", *keg.CustomerID)
	assert.Equal(t, models.LocationCustomer, keg.LocationType)

	bottle := atCustomer(models.Container{ID: "BTL-0001", Type: models.ContainerBottle}, loc, fixedNow)
	assert.Nil(t, bottle.ExpectedReturnDate)
}

func TestPickedUpClearsCustomer(t *testing.T) {
	customer := "LOC-RIVERSIDE-PUB"
	c := pickedUp(models.Container{ID: "KEG-0001", CustomerID: &customer}, fixedNow)
	assert.Nil(t, c.CustomerID)
	require.NotNil(t, c.ReturnedAt)
	assert.Equal(t, fixedNow, *c.ReturnedAt)
	assert.Equal(t, models.LocationWarehouse, c.LocationType)
}

func TestAnalyticsRejectsUnknownGrouping(t *testing.T) {
	rec := httptest.NewRecorder()
	GetInventoryBreakdown(testEnv())(rec, httptest.NewRequest(http.MethodGet, "/?group_by=qr_code", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	GetTopCustomers(testEnv())(rec, httptest.NewRequest(http.MethodGet, "/?metric=volume", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiveDiagnosticLog(t *testing.T) {
	rec, out := post(t, ReceiveDiagnosticLog(testEnv()), DiagnosticLog{Level: "ERROR", Message: "QR scan failed", ContainerID: "KEG-0001"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "received", out["status"])

	rec, _ = post(t, ReceiveDiagnosticLog(testEnv()), DiagnosticLog{Level: "INFO"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
