package models

import "time"

// TruckStatus is the delivery state of a truck
type TruckStatus string

const (
	TruckIdle      TruckStatus = "idle"
	TruckLoading   TruckStatus = "loading"
	TruckOnRoad    TruckStatus = "on-road"
	TruckDelivered TruckStatus = "delivered"
)

func (s TruckStatus) Valid() bool {
	switch s {
	case TruckIdle, TruckLoading, TruckOnRoad, TruckDelivered:
		return true
	}
	return false
}

// Truck carries containers from staging to customers.
// CurrentLoad is derived from the weights of ContainerIDs.
type Truck struct {
	ID            string      `json:"id" db:"id"`
	Name          string      `json:"name" db:"name"`
	Route         string      `json:"route" db:"route"`
	Driver        *string     `json:"driver,omitempty" db:"driver"`
	Capacity      float64     `json:"capacity" db:"capacity"` // max weight in lbs
	CurrentLoad   float64     `json:"current_load" db:"current_load"`
	Status        TruckStatus `json:"status" db:"status"`
	DepartureTime *time.Time  `json:"departure_time,omitempty" db:"departure_time"`
	ContainerIDs  []string    `json:"container_ids" db:"-"`
	QRCode        string      `json:"qr_code" db:"qr_code"`
}

// LoadTruckRequest is the request body for POST /api/trucks/{id}/load
type LoadTruckRequest struct {
	ContainerID string `json:"container_id"`
}

// DeliverRequest is the request body for POST /api/trucks/{id}/deliver
type DeliverRequest struct {
	LocationID   string   `json:"location_id"`
	ContainerIDs []string `json:"container_ids"`
	SignedBy     *string  `json:"signed_by,omitempty"`
}
