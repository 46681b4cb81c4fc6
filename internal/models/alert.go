package models

import "time"

// AlertType names the detector that raised an alert
type AlertType string

const (
	AlertOverdueReturn    AlertType = "overdue_return"
	AlertLowInventory     AlertType = "low_inventory"
	AlertOverCapacity     AlertType = "over_capacity"
	AlertDepositImbalance AlertType = "deposit_imbalance"
	AlertExpiringProduct  AlertType = "expiring_product"
)

// AlertSeverity ranks alerts; critical sorts first
type AlertSeverity string

const (
	AlertCritical AlertSeverity = "critical"
	AlertError    AlertSeverity = "error"
	AlertWarning  AlertSeverity = "warning"
	AlertInfo     AlertSeverity = "info"
)

// Rank returns 0 for critical through 3 for info
func (s AlertSeverity) Rank() int {
	switch s {
	case AlertCritical:
		return 0
	case AlertError:
		return 1
	case AlertWarning:
		return 2
	case AlertInfo:
		return 3
	}
	return 4
}

// Alert is a derived notification. It is recomputed from the snapshot on
// every query and never stored.
type Alert struct {
	ID           string        `json:"id"`
	Type         AlertType     `json:"type"`
	Severity     AlertSeverity `json:"severity"`
	Title        string        `json:"title"`
	Message      string        `json:"message"`
	LocationID   string        `json:"location_id,omitempty"`
	ContainerID  string        `json:"container_id,omitempty"`
	ProductName  string        `json:"product_name,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
	Acknowledged bool          `json:"acknowledged"`
}
