package validation

import (
	"strings"

	"bevops-backend/internal/models"
)

// ValidateContainerMove checks a drag of c from one location to another
func ValidateContainerMove(c models.Container, from, to models.Location) Result {
	r := OK()

	if c.Status == models.StatusInTransit {
		r.fail(InvalidStatusTransition, "Cannot move container that is in-transit")
	}

	if from.Type == models.LocationCustomer {
		r.warn("Moving container from customer location - ensure proper return process")
	}

	if to.Type == models.LocationCleaning && c.Status != models.StatusEmpty && c.Status != models.StatusReturned {
		r.warn("Container should be empty before moving to cleaning")
	}

	if to.Type == models.LocationTruck && to.Capacity != nil && *to.Capacity > 0 {
		return Combine(r, ValidateTruckCapacity(float64(len(to.ContainerIDs)), 1, float64(*to.Capacity)))
	}
	return r
}

// CanDrop reports whether a zone of the given type accepts c at all.
// Pallets only go to open floor, trucks and customers.
func CanDrop(c models.Container, zone models.LocationType) bool {
	pallet := c.Type == models.ContainerPallet
	switch zone {
	case models.LocationWarehouse, models.LocationTruckBay, models.LocationTruck, models.LocationCustomer:
		return true
	case models.LocationProduction, models.LocationCleaning:
		return !pallet
	}
	return false
}

// Format renders a result for display
func Format(r Result) string {
	var lines []string
	if len(r.Errors) > 0 {
		lines = append(lines, "Errors:")
		for _, e := range r.Errors {
			lines = append(lines, "  • "+e.Message)
		}
	}
	if len(r.Warnings) > 0 {
		lines = append(lines, "Warnings:")
		for _, w := range r.Warnings {
			lines = append(lines, "  ⚠ "+w)
		}
	}
	return strings.Join(lines, "\n")
}
