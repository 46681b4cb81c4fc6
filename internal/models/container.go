package models

import "time"

// ContainerType is the physical kind of a trackable unit
type ContainerType string

const (
	ContainerKeg    ContainerType = "keg"
	ContainerBottle ContainerType = "bottle"
	ContainerCan    ContainerType = "can"
	ContainerCase   ContainerType = "case"
	ContainerPallet ContainerType = "pallet"
)

// ContainerTypes lists every container type in issue order
var ContainerTypes = []ContainerType{ContainerKeg, ContainerBottle, ContainerCan, ContainerCase, ContainerPallet}

func (t ContainerType) Valid() bool {
	switch t {
	case ContainerKeg, ContainerBottle, ContainerCan, ContainerCase, ContainerPallet:
		return true
	}
	return false
}

// IsAggregate reports whether the type can hold child containers (cases and pallets)
func (t ContainerType) IsAggregate() bool {
	switch t {
	case ContainerCase, ContainerPallet:
		return true
	case ContainerKeg, ContainerBottle, ContainerCan:
		return false
	}
	return false
}

// ContainerStatus is a state in the container lifecycle
type ContainerStatus string

const (
	StatusProduction  ContainerStatus = "production"
	StatusFilled      ContainerStatus = "filled"
	StatusPackaging   ContainerStatus = "packaging"
	StatusStaging     ContainerStatus = "staging"
	StatusLoaded      ContainerStatus = "loaded"
	StatusInTransit   ContainerStatus = "in-transit"
	StatusDelivered   ContainerStatus = "delivered"
	StatusReturned    ContainerStatus = "returned"
	StatusCleaning    ContainerStatus = "cleaning"
	StatusEmpty       ContainerStatus = "empty"
	StatusMaintenance ContainerStatus = "maintenance"
	StatusScrapped    ContainerStatus = "scrapped"
)

func (s ContainerStatus) Valid() bool {
	switch s {
	case StatusProduction, StatusFilled, StatusPackaging, StatusStaging, StatusLoaded,
		StatusInTransit, StatusDelivered, StatusReturned, StatusCleaning, StatusEmpty,
		StatusMaintenance, StatusScrapped:
		return true
	}
	return false
}

// Container is a keg, bottle, can, case or pallet tracked through the lifecycle.
// Values are treated as immutable: transforms return a new Container.
type Container struct {
	ID          string          `json:"id" db:"id"`
	Type        ContainerType   `json:"type" db:"type"`
	ProductName string          `json:"product_name" db:"product_name"`
	BatchNumber string          `json:"batch_number" db:"batch_number"`
	QRCode      string          `json:"qr_code" db:"qr_code"`
	Status      ContainerStatus `json:"status" db:"status"`

	// Tracking
	LocationID   string       `json:"location_id" db:"location_id"`
	LocationType LocationType `json:"location_type" db:"location_type"`
	TruckID      *string      `json:"truck_id,omitempty" db:"truck_id"`
	OrderID      *string      `json:"order_id,omitempty" db:"order_id"`
	CustomerID   *string      `json:"customer_id,omitempty" db:"customer_id"`

	// Hierarchy
	ParentID *string  `json:"parent_id,omitempty" db:"parent_id"`
	ChildIDs []string `json:"child_ids,omitempty" db:"-"`

	// Physical
	Volume   string   `json:"volume,omitempty" db:"volume"` // e.g. "15.5 gal", "12 oz"
	Quantity *int     `json:"quantity,omitempty" db:"quantity"`
	Weight   *float64 `json:"weight,omitempty" db:"weight"` // lbs

	// Lifecycle dates
	FillDate           *time.Time `json:"fill_date,omitempty" db:"fill_date"`
	ExpectedReturnDate *time.Time `json:"expected_return_date,omitempty" db:"expected_return_date"`
	ReturnedAt         *time.Time `json:"returned_at,omitempty" db:"returned_at"`
	LastCleanedAt      *time.Time `json:"last_cleaned_at,omitempty" db:"last_cleaned_at"`

	// Condition flags
	Damaged             bool `json:"damaged" db:"damaged"`
	MaintenanceRequired bool `json:"maintenance_required" db:"maintenance_required"`

	History []HistoryEntry `json:"history" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HistoryEntry is one append-only record in a container's history
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Action    string    `json:"action" db:"action"`
	Location  string    `json:"location" db:"location"`
	UserID    *string   `json:"user_id,omitempty" db:"user_id"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
}

// CreateContainerRequest is the request body for POST /api/containers
type CreateContainerRequest struct {
	Type               ContainerType `json:"type"`
	ProductName        string        `json:"product_name"`
	BatchNumber        string        `json:"batch_number"`
	Volume             string        `json:"volume,omitempty"`
	Weight             *float64      `json:"weight,omitempty"`
	LocationID         string        `json:"location_id,omitempty"`
	FillDate           *string       `json:"fill_date,omitempty"` // RFC3339
	ExpectedReturnDate *string       `json:"expected_return_date,omitempty"`
	OrderID            string        `json:"order_id,omitempty"`
	CustomerID         string        `json:"customer_id,omitempty"`
}

// CreateCaseRequest is the request body for POST /api/containers/cases
type CreateCaseRequest struct {
	MemberIDs   []string `json:"member_ids"`
	ProductName string   `json:"product_name"`
	BatchNumber string   `json:"batch_number"`
}

// CreatePalletRequest is the request body for POST /api/containers/pallets
type CreatePalletRequest struct {
	MemberIDs []string `json:"member_ids"`
	Notes     string   `json:"notes,omitempty"`
	Capacity  *int     `json:"capacity,omitempty"` // member slots, used for the pallet capacity rule
}

// UpdateStatusRequest is the request body for PATCH /api/containers/{id}/status
type UpdateStatusRequest struct {
	Status   ContainerStatus `json:"status"`
	Location string          `json:"location"`
	Notes    string          `json:"notes,omitempty"`
}

// MoveContainerRequest is the request body for POST /api/containers/{id}/move
type MoveContainerRequest struct {
	ToLocationID string `json:"to_location_id"`
	Notes        string `json:"notes,omitempty"`
	Confirmed    bool   `json:"confirmed"` // caller acknowledged the warnings
}
