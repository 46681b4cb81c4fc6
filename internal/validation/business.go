package validation

import (
	"fmt"
	"strings"

	"bevops-backend/internal/models"
	"bevops-backend/internal/tracking"
)

// atCustomer is true once a container has been dropped at a customer and not yet returned
func atCustomer(c models.Container) bool {
	return c.Status == models.StatusDelivered
}

// ValidateDelivery requires a product on the container
func ValidateDelivery(c models.Container) Result {
	r := OK()
	if strings.TrimSpace(c.ProductName) == "" {
		r.fail(EmptyRequiredField, "Cannot deliver empty containers")
	}
	return r
}

// ValidateDeletion blocks deleting containers that are out of the building
func ValidateDeletion(c models.Container) Result {
	r := OK()
	if c.Status == models.StatusInTransit || atCustomer(c) {
		r.fail(InvalidStatusTransition, fmt.Sprintf("Cannot delete container with status: %s", c.Status))
	}
	return r
}

// ValidateFill blocks refilling full containers
func ValidateFill(c models.Container) Result {
	r := OK()
	if c.Status == models.StatusFilled || atCustomer(c) {
		r.fail(InvalidStatusTransition, "Container is already filled")
	}
	return r
}

// ValidateCleaning requires the container to be empty or just returned
func ValidateCleaning(c models.Container) Result {
	r := OK()
	if c.Status != models.StatusEmpty && c.Status != models.StatusReturned {
		r.fail(InvalidStatusTransition, "Container must be empty before cleaning")
	}
	return r
}

// ValidateStatusTransition checks a status change against the lifecycle
func ValidateStatusTransition(c models.Container, to models.ContainerStatus) Result {
	r := OK()
	if !to.Valid() {
		r.fail(InvalidStatusTransition, fmt.Sprintf("Unknown status: %s", to))
		return r
	}
	if !tracking.CanTransition(c.Status, to) {
		r.fail(InvalidStatusTransition, fmt.Sprintf("Cannot change status from %s to %s", c.Status, to))
	}
	return r
}
