package models

import "time"

// LocationType classifies where containers can sit
type LocationType string

const (
	LocationWarehouse  LocationType = "warehouse"
	LocationTruckBay   LocationType = "truck-bay"
	LocationTruck      LocationType = "truck"
	LocationCustomer   LocationType = "customer"
	LocationProduction LocationType = "production"
	LocationCleaning   LocationType = "cleaning"
)

func (t LocationType) Valid() bool {
	switch t {
	case LocationWarehouse, LocationTruckBay, LocationTruck, LocationCustomer, LocationProduction, LocationCleaning:
		return true
	}
	return false
}

// Location is a warehouse, bay, customer site, production floor or cleaning station
type Location struct {
	ID              string           `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	Type            LocationType     `json:"type" db:"type"`
	Address         string           `json:"address,omitempty" db:"address"`
	Capacity        *int             `json:"capacity,omitempty" db:"capacity"` // unit count
	ContainerIDs    []string         `json:"container_ids" db:"-"`
	PendingReturns  []string         `json:"pending_returns,omitempty" db:"-"` // customer locations only
	DeliveryHistory []DeliveryRecord `json:"delivery_history,omitempty" db:"-"`
}

// DeliveryRecord is a drop of containers at a location
type DeliveryRecord struct {
	Date         time.Time `json:"date" db:"delivered_at"`
	TruckID      string    `json:"truck_id" db:"truck_id"`
	ContainerIDs []string  `json:"container_ids" db:"-"`
	SignedBy     *string   `json:"signed_by,omitempty" db:"signed_by"`
}

// DepositLedger tracks deposits collected against a customer location
type DepositLedger struct {
	LocationID string  `json:"location_id" db:"location_id"`
	Paid       float64 `json:"paid" db:"paid"`
	Owed       float64 `json:"owed" db:"owed"`
}

// ReturnRequest is the request body for POST /api/returns
type ReturnRequest struct {
	LocationID   string   `json:"location_id"`
	ContainerIDs []string `json:"container_ids"`
	Notes        string   `json:"notes,omitempty"`
}
