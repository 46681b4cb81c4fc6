package validation

import (
	"fmt"
	"strconv"

	"bevops-backend/internal/models"
	"bevops-backend/internal/tracking"
)

const (
	// DefaultNominalStock is the baseline the low stock warning is measured against
	DefaultNominalStock = 100
	lowStockFraction    = 0.1

	nearCapacityPct = 90.0
	fullCapacityPct = 100.0
	palletHardLimit = 150.0
)

// ValidateInventoryAllocation checks that requested units can be taken from available.
// nominal <= 0 uses DefaultNominalStock.
func ValidateInventoryAllocation(requested, available, nominal int) Result {
	r := OK()
	if nominal <= 0 {
		nominal = DefaultNominalStock
	}

	if requested > available {
		r.fail(InvalidQuantity, fmt.Sprintf("Cannot allocate %d units. Only %d available.", requested, available))
	}
	if requested < 0 {
		r.fail(InvalidQuantity, "Cannot create negative inventory")
	}

	remaining := available - requested
	if float64(remaining) < float64(nominal)*lowStockFraction {
		r.warn(fmt.Sprintf("Low stock warning: Only %d units will remain", remaining))
	}
	return r
}

// ValidatePalletCapacity allows overfill up to 150% with a warning and blocks past that
func ValidatePalletCapacity(current, adding, capacity int) Result {
	r := OK()
	if capacity <= 0 {
		r.fail(InvalidQuantity, "Pallet capacity must be greater than zero")
		return r
	}

	total := current + adding
	pct := float64(total) / float64(capacity) * 100

	switch {
	case pct > palletHardLimit:
		r.fail(CapacityExceeded, fmt.Sprintf("Cannot exceed 150%% capacity. Current: %d/%d (%.0f%%)", total, capacity, pct))
	case pct > fullCapacityPct:
		r.warn(fmt.Sprintf("Pallet over capacity: %d/%d (%.0f%%)", total, capacity, pct))
	case pct > nearCapacityPct:
		r.warn(fmt.Sprintf("Pallet approaching capacity: %d/%d (%.0f%%)", total, capacity, pct))
	}
	return r
}

// ValidateTruckCapacity blocks any load past capacity. Units are whatever the
// caller measures the truck in: weight for trucks, container count for truck zones.
func ValidateTruckCapacity(current, adding, capacity float64) Result {
	r := OK()
	if capacity <= 0 {
		r.fail(InvalidQuantity, "Truck capacity must be greater than zero")
		return r
	}

	total := current + adding
	if total > capacity {
		r.fail(CapacityExceeded, fmt.Sprintf(
			"Truck at capacity. Cannot add %s more units. Current: %s/%s. Consider scheduling a second delivery for remaining items",
			num(adding), num(current), num(capacity)))
		return r
	}

	pct := total / capacity * 100
	if pct > nearCapacityPct {
		r.warn(fmt.Sprintf("Truck approaching capacity: %s/%s (%.0f%%)", num(total), num(capacity), pct))
	}
	return r
}

// ValidateTruckLoad checks a container against a truck by weight, plus the
// lifecycle and truck state needed to load it.
func ValidateTruckLoad(truck models.Truck, c models.Container) Result {
	r := OK()
	if truck.Status == models.TruckOnRoad || truck.Status == models.TruckDelivered {
		r.fail(InvalidStatusTransition, fmt.Sprintf("Truck %s is %s and cannot take more containers", truck.ID, truck.Status))
	}
	if c.ParentID != nil && *c.ParentID != "" {
		r.fail(InvalidStatusTransition, fmt.Sprintf("Container %s is packed in %s; load the parent instead", c.ID, *c.ParentID))
	}
	if !tracking.CanTransition(c.Status, models.StatusLoaded) {
		r.fail(InvalidStatusTransition, fmt.Sprintf("Cannot load container with status: %s", c.Status))
	}
	return Combine(r, ValidateTruckCapacity(truck.CurrentLoad, tracking.Weight(c), truck.Capacity))
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
