package models

import "time"

// CleaningCondition is the inspected state of a returned keg
type CleaningCondition string

const (
	ConditionClean   CleaningCondition = "clean"
	ConditionDirty   CleaningCondition = "dirty"
	ConditionDamaged CleaningCondition = "damaged"
)

func (c CleaningCondition) Valid() bool {
	switch c {
	case ConditionClean, ConditionDirty, ConditionDamaged:
		return true
	}
	return false
}

// CleaningPriority orders work in the cleaning queue
type CleaningPriority string

const (
	PriorityLow    CleaningPriority = "low"
	PriorityNormal CleaningPriority = "normal"
	PriorityHigh   CleaningPriority = "high"
	PriorityUrgent CleaningPriority = "urgent"
)

// Rank returns 0 for the most urgent priority
func (p CleaningPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

func (p CleaningPriority) Valid() bool { return p.Rank() < 4 }

// CleaningStatus is the workflow state of a cleaning ticket
type CleaningStatus string

const (
	CleaningQueued     CleaningStatus = "queued"
	CleaningInProgress CleaningStatus = "in_progress"
	CleaningCompleted  CleaningStatus = "completed"
	CleaningFailed     CleaningStatus = "failed"
)

func (s CleaningStatus) Valid() bool {
	switch s {
	case CleaningQueued, CleaningInProgress, CleaningCompleted, CleaningFailed:
		return true
	}
	return false
}

// Closed reports whether the ticket is finished
func (s CleaningStatus) Closed() bool {
	switch s {
	case CleaningCompleted, CleaningFailed:
		return true
	case CleaningQueued, CleaningInProgress:
	}
	return false
}

// InventoryLevel is the stock signal for a product used when prioritising cleaning
type InventoryLevel string

const (
	InventoryNormal   InventoryLevel = "normal"
	InventoryLow      InventoryLevel = "low"
	InventoryCritical InventoryLevel = "critical"
)

// CleaningQueueItem is a wash/inspect ticket for a returned keg.
// Terminal items are retained as history.
type CleaningQueueItem struct {
	ID            string            `json:"id" db:"id"`
	ContainerID   string            `json:"container_id" db:"container_id"`
	ContainerType ContainerType     `json:"container_type" db:"container_type"`
	ProductName   string            `json:"product_name" db:"product_name"`
	ReturnedFrom  string            `json:"returned_from" db:"returned_from"`
	ReturnedAt    time.Time         `json:"returned_at" db:"returned_at"`
	Condition     CleaningCondition `json:"condition" db:"condition"`
	Priority      CleaningPriority  `json:"priority" db:"priority"`
	Status        CleaningStatus    `json:"status" db:"status"`
	AssignedTo    *string           `json:"assigned_to,omitempty" db:"assigned_to"`
	StartedAt     *time.Time        `json:"started_at,omitempty" db:"started_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	Notes         *string           `json:"notes,omitempty" db:"notes"`
}

// CleaningStats summarises the cleaning queue
type CleaningStats struct {
	TotalQueued    int `json:"total_queued"`
	InProgress     int `json:"in_progress"`
	CompletedToday int `json:"completed_today"`
	AverageMinutes int `json:"average_minutes"`
	Backlog        int `json:"backlog"`
}

// StartCleaningRequest is the request body for POST /api/cleaning/{id}/start
type StartCleaningRequest struct {
	AssignedTo string `json:"assigned_to"`
}

// CompleteCleaningRequest is the request body for POST /api/cleaning/{id}/complete
type CompleteCleaningRequest struct {
	Passed        bool                `json:"passed"`
	Notes         string              `json:"notes,omitempty"`
	Issue         string              `json:"issue,omitempty"` // used for the maintenance ticket on failure
	IssueSeverity MaintenanceSeverity `json:"issue_severity,omitempty"`
}
