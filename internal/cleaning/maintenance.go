package cleaning

import (
	"fmt"
	"time"

	"bevops-backend/internal/models"
	"bevops-backend/internal/tracking"
)

var maintenanceFlow = map[models.MaintenanceStatus][]models.MaintenanceStatus{
	models.MaintenanceReported:  {models.MaintenanceDiagnosed},
	models.MaintenanceDiagnosed: {models.MaintenanceInRepair},
	models.MaintenanceInRepair:  {models.MaintenanceCompleted, models.MaintenanceScrapped},
}

// NewMaintenanceItem opens a repair ticket for c
func (d *Dispatcher) NewMaintenanceItem(c models.Container, issue string, severity models.MaintenanceSeverity, reportedBy string) models.MaintenanceItem {
	if !severity.Valid() {
		severity = models.SeverityModerate
	}
	return models.MaintenanceItem{
		ID:            "MNT-" + d.newID(),
		ContainerID:   c.ID,
		ContainerType: c.Type,
		Issue:         issue,
		Severity:      severity,
		Status:        models.MaintenanceReported,
		ReportedAt:    d.now(),
		ReportedBy:    reportedBy,
	}
}

// AdvanceMaintenance moves a ticket one step along the repair flow
func (d *Dispatcher) AdvanceMaintenance(item models.MaintenanceItem, to models.MaintenanceStatus) (models.MaintenanceItem, error) {
	allowed := false
	for _, s := range maintenanceFlow[item.Status] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return item, fmt.Errorf("%w: %s -> %s", ErrInvalidMaintenanceTransition, item.Status, to)
	}
	item.Status = to
	if to.Terminal() {
		now := d.now()
		item.CompletedAt = &now
	}
	return item, nil
}

// ResolveMaintenance applies a closed ticket to its container: a repair returns
// it to empty stock, a scrap retires it. The container must be in maintenance.
func (d *Dispatcher) ResolveMaintenance(item models.MaintenanceItem, c models.Container) (models.Container, error) {
	if item.ContainerID != c.ID {
		return c, fmt.Errorf("%w: %s is for %s", ErrContainerMismatch, item.ID, item.ContainerID)
	}
	now := d.now()
	switch item.Status {
	case models.MaintenanceCompleted:
		next, err := tracking.Transition(c, models.StatusEmpty, warehouseLocID, "Repaired: "+item.Issue, now)
		if err != nil {
			return c, err
		}
		next.LocationType = models.LocationWarehouse
		next.MaintenanceRequired = false
		next.Damaged = false
		return next, nil
	case models.MaintenanceScrapped:
		return tracking.Transition(c, models.StatusScrapped, c.LocationID, "Scrapped: "+item.Issue, now)
	case models.MaintenanceReported, models.MaintenanceDiagnosed, models.MaintenanceInRepair:
	}
	return c, fmt.Errorf("%w: %s is %s", ErrMaintenanceOpen, item.ID, item.Status)
}

// Intake moves a container into maintenance when a ticket is reported for it.
// Only containers in the wash bay, or already in maintenance, can take a ticket.
func (d *Dispatcher) Intake(item models.MaintenanceItem, c models.Container) (models.Container, error) {
	if item.ContainerID != c.ID {
		return c, fmt.Errorf("%w: %s is for %s", ErrContainerMismatch, item.ID, item.ContainerID)
	}
	notes := fmt.Sprintf("%s (%s)", item.Issue, item.Severity)
	if c.Status == models.StatusMaintenance {
		next := tracking.WithHistory(c, models.HistoryEntry{
			Timestamp: item.ReportedAt,
			Action:    "Maintenance reported",
			Location:  c.LocationID,
			Notes:     notes,
		})
		next.MaintenanceRequired = true
		return next, nil
	}
	next, err := tracking.Transition(c, models.StatusMaintenance, c.LocationID, notes, item.ReportedAt)
	if err != nil {
		return c, err
	}
	next.MaintenanceRequired = true
	return next, nil
}

// MaintenanceStats summarises repair work as of now
func (d *Dispatcher) MaintenanceStats(items []models.MaintenanceItem) models.MaintenanceStats {
	now := d.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var s models.MaintenanceStats
	for _, it := range items {
		switch it.Status {
		case models.MaintenanceReported, models.MaintenanceDiagnosed:
			s.TotalOpen++
		case models.MaintenanceInRepair:
			s.InRepair++
		case models.MaintenanceCompleted:
			if it.CompletedAt != nil && !it.CompletedAt.Before(monthStart) {
				s.CompletedThisMonth++
			}
		case models.MaintenanceScrapped:
		}
		if it.ActualCost != nil {
			s.TotalCost += *it.ActualCost
		}
		if it.Severity == models.SeverityCritical && it.Status != models.MaintenanceCompleted {
			s.CriticalIssues++
		}
	}
	return s
}
