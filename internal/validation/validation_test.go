package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bevops-backend/internal/models"
	"bevops-backend/internal/tracking"
)

var now = time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func TestCombine(t *testing.T) {
	a := OK()
	a.warn("first")
	b := OK()
	b.fail(CapacityExceeded, "too full")

	got := Combine(a, b)
	assert.False(t, got.Valid)
	assert.Equal(t, []string{"first"}, got.Warnings)
	assert.Equal(t, []string{"too full"}, got.Messages())
	assert.True(t, got.Has(CapacityExceeded))

	assert.True(t, Combine().Valid)
	assert.True(t, Combine(a, a).Valid)
}

func TestValidateInventoryAllocation(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		available int
		valid     bool
		warnings  int
	}{
		{"plenty left", 10, 100, true, 0},
		{"over requested", 120, 100, false, 1},
		{"negative", -5, 100, false, 0},
		{"leaves under ten percent", 95, 100, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ValidateInventoryAllocation(tt.requested, tt.available, 0)
			assert.Equal(t, tt.valid, r.Valid)
			assert.Len(t, r.Warnings, tt.warnings)
		})
	}

	r := ValidateInventoryAllocation(120, 100, 0)
	assert.Equal(t, "Cannot allocate 120 units. Only 100 available.", r.Errors[0].Message)
}

func TestValidatePalletCapacity(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		adding   int
		valid    bool
		warnings int
	}{
		{"half full", 4, 1, true, 0},
		{"approaching", 9, 1, true, 1},
		{"140 percent overfill warns", 13, 1, true, 1},
		{"160 percent blocks", 15, 1, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ValidatePalletCapacity(tt.current, tt.adding, 10)
			assert.Equal(t, tt.valid, r.Valid)
			assert.Len(t, r.Warnings, tt.warnings)
		})
	}

	assert.False(t, ValidatePalletCapacity(1, 1, 0).Valid)
}

func TestValidateTruckCapacity(t *testing.T) {
	t.Run("keg over capacity", func(t *testing.T) {
		r := ValidateTruckCapacity(320, 160, 400)
		require.False(t, r.Valid)
		assert.True(t, r.Has(CapacityExceeded))
		assert.Contains(t, r.Errors[0].Message, "capacity")
		assert.Contains(t, r.Errors[0].Message, "second delivery")
	})

	t.Run("small case at 82 percent", func(t *testing.T) {
		r := ValidateTruckCapacity(320, 8, 400)
		assert.True(t, r.Valid)
		assert.Empty(t, r.Warnings)
		assert.Empty(t, r.Errors)
	})

	t.Run("92 percent warns", func(t *testing.T) {
		r := ValidateTruckCapacity(360, 8, 400)
		assert.True(t, r.Valid)
		require.Len(t, r.Warnings, 1)
		assert.Contains(t, r.Warnings[0], "92%")
	})
}

func TestTruckLoadScenario(t *testing.T) {
	truck := tracking.NewTruck("TRUCK-1", "North", "Route A", 400)
	kegs := []models.Container{
		{ID: "KEG-0001", Type: models.ContainerKeg, Status: models.StatusStaging},
		{ID: "KEG-0002", Type: models.ContainerKeg, Status: models.StatusStaging},
		{ID: "KEG-0003", Type: models.ContainerKeg, Status: models.StatusStaging},
	}

	for i, keg := range kegs {
		r := ValidateTruckLoad(truck, keg)
		if i < 2 {
			require.True(t, r.Valid, "keg %d should fit", i+1)
			truck = tracking.LoadTruck(truck, keg)
			continue
		}
		assert.False(t, r.Valid)
		assert.True(t, r.Has(CapacityExceeded))
	}
	assert.InDelta(t, 320.0, truck.CurrentLoad, 1e-9)
	assert.Equal(t, 80, tracking.CapacityPercent(truck))
}

func TestValidateTruckLoad_State(t *testing.T) {
	truck := tracking.NewTruck("TRUCK-1", "North", "Route A", 400)
	truck.Status = models.TruckOnRoad

	r := ValidateTruckLoad(truck, models.Container{ID: "KEG-0001", Type: models.ContainerKeg, Status: models.StatusStaging})
	assert.False(t, r.Valid)
	assert.True(t, r.Has(InvalidStatusTransition))

	parent := "CASE-0001"
	r = ValidateTruckLoad(tracking.NewTruck("TRUCK-2", "n", "r", 400), models.Container{
		ID: "BTL-0001", Type: models.ContainerBottle, Status: models.StatusStaging, ParentID: &parent,
	})
	assert.False(t, r.Valid)
}

func TestDates(t *testing.T) {
	tests := []struct {
		name  string
		r     Result
		valid bool
		warns int
	}{
		{"delivery earlier today is fine", ValidateDeliveryDate(now.Add(-2*time.Hour), now), true, 0},
		{"delivery yesterday", ValidateDeliveryDate(now.AddDate(0, 0, -1), now), false, 0},
		{"delivery in 45 days", ValidateDeliveryDate(now.AddDate(0, 0, 45), now), true, 1},
		{"fill later today", ValidateFillDate(now.Add(6*time.Hour), now), true, 0},
		{"fill tomorrow", ValidateFillDate(now.AddDate(0, 0, 1), now), false, 0},
		{"return after delivery", ValidateReturnDate(now, now.AddDate(0, 0, 14)), true, 0},
		{"return same as delivery", ValidateReturnDate(now, now), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.r.Valid)
			assert.Len(t, tt.r.Warnings, tt.warns)
			if !tt.valid {
				assert.True(t, tt.r.Has(TemporalViolation))
			}
		})
	}
}

func TestRelationships(t *testing.T) {
	assert.True(t, ValidateCustomerExists("C1", []string{"C1", "C2"}).Valid)
	assert.False(t, ValidateCustomerExists("C9", []string{"C1"}).Valid)
	assert.True(t, ValidateProductExists("IPA", []string{"IPA"}).Valid)

	r := ValidateLocationExists("LOC-X", []models.Location{{ID: "LOC-Y"}})
	assert.False(t, r.Valid)
	assert.True(t, r.Has(MissingRelationship))
	assert.Equal(t, "Location must exist", r.Errors[0].Message)
}

func TestBusinessRules(t *testing.T) {
	tests := []struct {
		name  string
		r     Result
		valid bool
	}{
		{"deliver without product", ValidateDelivery(models.Container{ProductName: "  "}), false},
		{"deliver with product", ValidateDelivery(models.Container{ProductName: "IPA"}), true},
		{"delete in transit", ValidateDeletion(models.Container{Status: models.StatusInTransit}), false},
		{"delete at customer", ValidateDeletion(models.Container{Status: models.StatusDelivered}), false},
		{"delete in warehouse", ValidateDeletion(models.Container{Status: models.StatusEmpty}), true},
		{"fill filled", ValidateFill(models.Container{Status: models.StatusFilled}), false},
		{"fill empty", ValidateFill(models.Container{Status: models.StatusEmpty}), true},
		{"clean returned", ValidateCleaning(models.Container{Status: models.StatusReturned}), true},
		{"clean filled", ValidateCleaning(models.Container{Status: models.StatusFilled}), false},
		{"status skip", ValidateStatusTransition(models.Container{Status: models.StatusStaging}, models.StatusDelivered), false},
		{"status edge", ValidateStatusTransition(models.Container{Status: models.StatusStaging}, models.StatusLoaded), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.r.Valid)
		})
	}
}

func TestValidateContainerMove(t *testing.T) {
	warehouse := models.Location{ID: "LOC-WH", Type: models.LocationWarehouse}
	customer := models.Location{ID: "LOC-BAR", Type: models.LocationCustomer}
	cleaning := models.Location{ID: "LOC-CLEAN", Type: models.LocationCleaning}

	t.Run("in transit never moves", func(t *testing.T) {
		for _, to := range []models.Location{warehouse, customer, cleaning} {
			r := ValidateContainerMove(models.Container{Status: models.StatusInTransit}, warehouse, to)
			assert.False(t, r.Valid)
			assert.True(t, r.Has(InvalidStatusTransition))
		}
	})

	t.Run("leaving customer warns", func(t *testing.T) {
		r := ValidateContainerMove(models.Container{Status: models.StatusReturned}, customer, warehouse)
		assert.True(t, r.Valid)
		require.Len(t, r.Warnings, 1)
		assert.Contains(t, r.Warnings[0], "return process")
	})

	t.Run("filled into cleaning warns", func(t *testing.T) {
		r := ValidateContainerMove(models.Container{Status: models.StatusFilled}, warehouse, cleaning)
		assert.True(t, r.Valid)
		assert.Len(t, r.Warnings, 1)
	})

	t.Run("full truck zone blocks", func(t *testing.T) {
		truckZone := models.Location{
			ID: "TRUCK-1", Type: models.LocationTruck, Capacity: intPtr(2),
			ContainerIDs: []string{"KEG-0001", "KEG-0002"},
		}
		r := ValidateContainerMove(models.Container{Status: models.StatusStaging}, warehouse, truckZone)
		assert.False(t, r.Valid)
		assert.True(t, r.Has(CapacityExceeded))
	})
}

func TestCanDrop(t *testing.T) {
	keg := models.Container{Type: models.ContainerKeg}
	pallet := models.Container{Type: models.ContainerPallet}

	assert.True(t, CanDrop(keg, models.LocationCleaning))
	assert.False(t, CanDrop(pallet, models.LocationCleaning))
	assert.True(t, CanDrop(pallet, models.LocationTruck))
	assert.True(t, CanDrop(pallet, models.LocationWarehouse))
	assert.False(t, CanDrop(keg, models.LocationType("moon")))
}

func TestFormat(t *testing.T) {
	r := OK()
	r.fail(CapacityExceeded, "full")
	r.warn("careful")
	assert.Equal(t, "Errors:\n  • full\nWarnings:\n  ⚠ careful", Format(r))
	assert.Empty(t, Format(OK()))
}
