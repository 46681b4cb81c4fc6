package models

import "time"

// MaintenanceSeverity grades a reported container issue
type MaintenanceSeverity string

const (
	SeverityMinor    MaintenanceSeverity = "minor"
	SeverityModerate MaintenanceSeverity = "moderate"
	SeverityMajor    MaintenanceSeverity = "major"
	SeverityCritical MaintenanceSeverity = "critical"
)

func (s MaintenanceSeverity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// MaintenanceStatus is the repair workflow state
type MaintenanceStatus string

const (
	MaintenanceReported  MaintenanceStatus = "reported"
	MaintenanceDiagnosed MaintenanceStatus = "diagnosed"
	MaintenanceInRepair  MaintenanceStatus = "in_repair"
	MaintenanceCompleted MaintenanceStatus = "completed"
	MaintenanceScrapped  MaintenanceStatus = "scrapped"
)

func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenanceReported, MaintenanceDiagnosed, MaintenanceInRepair, MaintenanceCompleted, MaintenanceScrapped:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed
func (s MaintenanceStatus) Terminal() bool {
	return s == MaintenanceCompleted || s == MaintenanceScrapped
}

// MaintenanceItem is a repair ticket for a container
type MaintenanceItem struct {
	ID            string              `json:"id" db:"id"`
	ContainerID   string              `json:"container_id" db:"container_id"`
	ContainerType ContainerType       `json:"container_type" db:"container_type"`
	Issue         string              `json:"issue" db:"issue"`
	Severity      MaintenanceSeverity `json:"severity" db:"severity"`
	Status        MaintenanceStatus   `json:"status" db:"status"`
	ReportedAt    time.Time           `json:"reported_at" db:"reported_at"`
	ReportedBy    string              `json:"reported_by" db:"reported_by"`
	AssignedTo    *string             `json:"assigned_to,omitempty" db:"assigned_to"`
	EstimatedCost *float64            `json:"estimated_cost,omitempty" db:"estimated_cost"`
	ActualCost    *float64            `json:"actual_cost,omitempty" db:"actual_cost"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty" db:"completed_at"`
	Notes         *string             `json:"notes,omitempty" db:"notes"`
}

// MaintenanceStats summarises open and closed repair work
type MaintenanceStats struct {
	TotalOpen          int     `json:"total_open"`
	InRepair           int     `json:"in_repair"`
	CompletedThisMonth int     `json:"completed_this_month"`
	TotalCost          float64 `json:"total_cost"`
	CriticalIssues     int     `json:"critical_issues"`
}

// ReportMaintenanceRequest is the request body for POST /api/maintenance
type ReportMaintenanceRequest struct {
	ContainerID string              `json:"container_id"`
	Issue       string              `json:"issue"`
	Severity    MaintenanceSeverity `json:"severity"`
}

// UpdateMaintenanceRequest is the request body for PATCH /api/maintenance/{id}
type UpdateMaintenanceRequest struct {
	Status        MaintenanceStatus `json:"status"`
	AssignedTo    *string           `json:"assigned_to,omitempty"`
	EstimatedCost *float64          `json:"estimated_cost,omitempty"`
	ActualCost    *float64          `json:"actual_cost,omitempty"`
	Notes         *string           `json:"notes,omitempty"`
}
