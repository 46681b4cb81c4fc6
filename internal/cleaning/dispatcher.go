// Package cleaning routes returned kegs into the wash queue, hands out work in
// priority order, and branches failed inspections into maintenance.
package cleaning

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"bevops-backend/internal/models"
	"bevops-backend/internal/tracking"
)

const (
	day            = 24 * time.Hour
	neverCleaned   = 999 * day
	cleaningLocID  = "cleaning"
	warehouseLocID = "warehouse"
)

// FailedInspection is the note recorded when a failed wash gives no reason
const FailedInspection = "Failed cleaning inspection"

// Policy holds the classification windows
type Policy struct {
	CleanWindowDays int `mapstructure:"clean_window_days"`
	BacklogHours    int `mapstructure:"backlog_hours"`
	DwellNormalDays int `mapstructure:"dwell_normal_days"`
	DwellHighDays   int `mapstructure:"dwell_high_days"`
}

func DefaultPolicy() Policy {
	return Policy{
		CleanWindowDays: 7,
		BacklogHours:    24,
		DwellNormalDays: 3,
		DwellHighDays:   7,
	}
}

// Dispatcher applies the policy with an injected clock
type Dispatcher struct {
	policy Policy
	now    func() time.Time
	newID  func() string
}

type Option func(*Dispatcher)

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithIDs overrides uuid generation for queue and maintenance ids
func WithIDs(gen func() string) Option {
	return func(d *Dispatcher) { d.newID = gen }
}

func New(p Policy, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		policy: p,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Condition classifies a returned container
func (d *Dispatcher) Condition(c models.Container) models.CleaningCondition {
	if c.MaintenanceRequired || c.Damaged {
		return models.ConditionDamaged
	}
	since := neverCleaned
	if c.LastCleanedAt != nil {
		since = d.now().Sub(*c.LastCleanedAt)
	}
	if int(since/day) < d.policy.CleanWindowDays {
		return models.ConditionClean
	}
	return models.ConditionDirty
}

// Priority ranks a returned container. Stock pressure beats dwell time.
func (d *Dispatcher) Priority(c models.Container, cond models.CleaningCondition, level models.InventoryLevel) models.CleaningPriority {
	if cond == models.ConditionDamaged {
		return models.PriorityUrgent
	}
	switch level {
	case models.InventoryCritical:
		return models.PriorityUrgent
	case models.InventoryLow:
		return models.PriorityHigh
	case models.InventoryNormal:
	}

	dwell := 0
	if c.ReturnedAt != nil {
		dwell = int(d.now().Sub(*c.ReturnedAt) / day)
	}
	switch {
	case dwell > d.policy.DwellHighDays:
		return models.PriorityHigh
	case dwell > d.policy.DwellNormalDays:
		return models.PriorityNormal
	}
	return models.PriorityLow
}

// Route turns returned kegs into queued items and moves them to cleaning.
// Other container types are skipped and come back unchanged.
func (d *Dispatcher) Route(containers []models.Container, returnedFrom string, levels map[string]models.InventoryLevel) ([]models.CleaningQueueItem, []models.Container) {
	now := d.now()
	items := make([]models.CleaningQueueItem, 0, len(containers))
	updated := make([]models.Container, 0, len(containers))

	for _, c := range containers {
		if c.Type != models.ContainerKeg {
			updated = append(updated, c)
			continue
		}

		cond := d.Condition(c)
		level := levels[c.ProductName]
		if level == "" {
			level = models.InventoryNormal
		}

		returnedAt := now
		if c.ReturnedAt != nil {
			returnedAt = *c.ReturnedAt
		}

		items = append(items, models.CleaningQueueItem{
			ID:            "CLN-" + d.newID(),
			ContainerID:   c.ID,
			ContainerType: c.Type,
			ProductName:   c.ProductName,
			ReturnedFrom:  returnedFrom,
			ReturnedAt:    returnedAt,
			Condition:     cond,
			Priority:      d.Priority(c, cond, level),
			Status:        models.CleaningQueued,
		})

		next := tracking.UpdateStatus(c, models.StatusCleaning, cleaningLocID, fmt.Sprintf("Returned from %s", returnedFrom), now)
		next.LocationType = models.LocationCleaning
		updated = append(updated, next)
	}
	return items, updated
}

// Next picks the queued item to work on: highest priority, then longest waiting
func Next(queue []models.CleaningQueueItem) (models.CleaningQueueItem, bool) {
	var queued []models.CleaningQueueItem
	for _, it := range queue {
		if it.Status == models.CleaningQueued {
			queued = append(queued, it)
		}
	}
	if len(queued) == 0 {
		return models.CleaningQueueItem{}, false
	}
	sort.SliceStable(queued, func(i, j int) bool {
		pi, pj := queued[i].Priority.Rank(), queued[j].Priority.Rank()
		if pi != pj {
			return pi < pj
		}
		return queued[i].ReturnedAt.Before(queued[j].ReturnedAt)
	})
	return queued[0], true
}

// Start assigns a queued item
func (d *Dispatcher) Start(item models.CleaningQueueItem, assignee string) (models.CleaningQueueItem, error) {
	if item.Status != models.CleaningQueued {
		return item, ErrNotQueued
	}
	now := d.now()
	item.Status = models.CleaningInProgress
	item.StartedAt = &now
	item.AssignedTo = &assignee
	return item, nil
}

// Complete closes an in-progress item. A pass restocks the container; a fail
// sends it to maintenance and the caller opens a MaintenanceItem.
func (d *Dispatcher) Complete(item models.CleaningQueueItem, c models.Container, passed bool, notes string) (models.CleaningQueueItem, models.Container, error) {
	if item.Status != models.CleaningInProgress {
		return item, c, ErrNotInProgress
	}
	if item.ContainerID != c.ID {
		return item, c, fmt.Errorf("%w: %s is for %s", ErrContainerMismatch, item.ID, item.ContainerID)
	}
	if c.Status != models.StatusCleaning {
		return item, c, fmt.Errorf("%w: %s is %s, not in the wash bay", tracking.ErrInvalidTransition, c.ID, c.Status)
	}
	now := d.now()

	if passed {
		next, err := tracking.Transition(c, models.StatusEmpty, warehouseLocID, "Passed cleaning inspection", now)
		if err != nil {
			return item, c, err
		}
		next.LocationType = models.LocationWarehouse
		next.LastCleanedAt = &now
		item.Status = models.CleaningCompleted
		item.CompletedAt = &now
		if notes != "" {
			item.Notes = &notes
		}
		return item, next, nil
	}

	if notes == "" {
		notes = FailedInspection
	}
	next, err := tracking.Transition(c, models.StatusMaintenance, c.LocationID, notes, now)
	if err != nil {
		return item, c, err
	}
	next.MaintenanceRequired = true
	item.Status = models.CleaningFailed
	item.CompletedAt = &now
	item.Notes = &notes
	return item, next, nil
}

// Withdraw takes an open item off the queue because its container left the
// wash bay another way, such as a maintenance report.
func (d *Dispatcher) Withdraw(item models.CleaningQueueItem, reason string) (models.CleaningQueueItem, error) {
	if item.Status.Closed() {
		return item, fmt.Errorf("%w: %s is %s", ErrNotInProgress, item.ID, item.Status)
	}
	now := d.now()
	item.Status = models.CleaningFailed
	item.CompletedAt = &now
	item.Notes = &reason
	return item, nil
}

// Stats summarises the queue as of now
func (d *Dispatcher) Stats(queue []models.CleaningQueueItem) models.CleaningStats {
	now := d.now()
	y, m, dd := now.Date()
	todayStart := time.Date(y, m, dd, 0, 0, 0, 0, now.Location())
	backlogAfter := time.Duration(d.policy.BacklogHours) * time.Hour

	var s models.CleaningStats
	var totalMinutes float64
	var timed int

	for _, it := range queue {
		switch it.Status {
		case models.CleaningQueued:
			s.TotalQueued++
			if now.Sub(it.ReturnedAt) > backlogAfter {
				s.Backlog++
			}
		case models.CleaningInProgress:
			s.InProgress++
		case models.CleaningCompleted:
			if it.CompletedAt != nil && !it.CompletedAt.Before(todayStart) {
				s.CompletedToday++
			}
			if it.StartedAt != nil && it.CompletedAt != nil {
				totalMinutes += it.CompletedAt.Sub(*it.StartedAt).Minutes()
				timed++
			}
		case models.CleaningFailed:
		}
	}
	if timed > 0 {
		s.AverageMinutes = int(totalMinutes/float64(timed) + 0.5)
	}
	return s
}
