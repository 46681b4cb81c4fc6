package validation

import (
	"slices"

	"bevops-backend/internal/models"
)

func ValidateCustomerExists(customerID string, customerIDs []string) Result {
	r := OK()
	if !slices.Contains(customerIDs, customerID) {
		r.fail(MissingRelationship, "Customer must exist before creating order")
	}
	return r
}

func ValidateProductExists(productName string, products []string) Result {
	r := OK()
	if !slices.Contains(products, productName) {
		r.fail(MissingRelationship, "Product must exist before adding to order")
	}
	return r
}

func ValidateLocationExists(locationID string, locations []models.Location) Result {
	r := OK()
	found := slices.ContainsFunc(locations, func(l models.Location) bool {
		return l.ID == locationID
	})
	if !found {
		r.fail(MissingRelationship, "Location must exist")
	}
	return r
}
