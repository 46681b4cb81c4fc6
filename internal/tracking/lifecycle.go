package tracking

import (
	"fmt"
	"time"

	"bevops-backend/internal/models"
)

var transitions = map[models.ContainerStatus][]models.ContainerStatus{
	models.StatusProduction:  {models.StatusPackaging, models.StatusFilled},
	models.StatusFilled:      {models.StatusPackaging, models.StatusStaging},
	models.StatusPackaging:   {models.StatusStaging},
	models.StatusStaging:     {models.StatusLoaded},
	models.StatusLoaded:      {models.StatusInTransit, models.StatusStaging},
	models.StatusInTransit:   {models.StatusDelivered},
	models.StatusDelivered:   {models.StatusReturned},
	models.StatusReturned:    {models.StatusCleaning},
	models.StatusCleaning:    {models.StatusEmpty, models.StatusMaintenance},
	models.StatusEmpty:       {models.StatusStaging, models.StatusFilled, models.StatusCleaning},
	models.StatusMaintenance: {models.StatusEmpty, models.StatusScrapped},
	models.StatusScrapped:    nil,
}

// NextStatuses lists the statuses reachable in one step
func NextStatuses(from models.ContainerStatus) []models.ContainerStatus {
	out := make([]models.ContainerStatus, len(transitions[from]))
	copy(out, transitions[from])
	return out
}

// CanTransition reports whether from -> to is an edge of the lifecycle
func CanTransition(from, to models.ContainerStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers never share history or child slices
func Clone(c models.Container) models.Container {
	out := c
	if c.History != nil {
		out.History = make([]models.HistoryEntry, len(c.History))
		copy(out.History, c.History)
	}
	if c.ChildIDs != nil {
		out.ChildIDs = make([]string, len(c.ChildIDs))
		copy(out.ChildIDs, c.ChildIDs)
	}
	return out
}

// WithHistory returns a copy of c with one entry appended
func WithHistory(c models.Container, e models.HistoryEntry) models.Container {
	out := Clone(c)
	out.History = append(out.History, e)
	out.UpdatedAt = e.Timestamp
	return out
}

// UpdateStatus sets status and location and records the change. It does not
// check the lifecycle; use Transition for that.
func UpdateStatus(c models.Container, status models.ContainerStatus, location, notes string, now time.Time) models.Container {
	out := WithHistory(c, models.HistoryEntry{
		Timestamp: now,
		Action:    fmt.Sprintf("Status changed to %s", status),
		Location:  location,
		Notes:     notes,
	})
	out.Status = status
	out.LocationID = location
	return out
}

// Transition is UpdateStatus guarded by the lifecycle
func Transition(c models.Container, status models.ContainerStatus, location, notes string, now time.Time) (models.Container, error) {
	if !CanTransition(c.Status, status) {
		return c, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, status)
	}
	return UpdateStatus(c, status, location, notes, now), nil
}

// MoveTo records a location change without touching status
func MoveTo(c models.Container, loc models.Location, notes string, now time.Time) models.Container {
	out := WithHistory(c, models.HistoryEntry{
		Timestamp: now,
		Action:    fmt.Sprintf("Moved to %s", loc.Name),
		Location:  loc.Name,
		Notes:     notes,
	})
	out.LocationID = loc.ID
	out.LocationType = loc.Type
	return out
}

// LoadOnTruck marks the container loaded onto the truck
func LoadOnTruck(c models.Container, truckID string, now time.Time) models.Container {
	out := WithHistory(c, models.HistoryEntry{
		Timestamp: now,
		Action:    "Loaded onto truck",
		Location:  "Staging Area",
		Notes:     "Truck: " + truckID,
	})
	out.Status = models.StatusLoaded
	out.TruckID = &truckID
	out.LocationID = truckID
	out.LocationType = models.LocationTruck
	return out
}

// UnloadFromTruck takes a loaded container off its truck and back to the bay
func UnloadFromTruck(c models.Container, bay models.Location, now time.Time) (models.Container, error) {
	notes := "Unloaded from truck"
	if c.TruckID != nil {
		notes += " " + *c.TruckID
	}
	out, err := Transition(c, models.StatusStaging, bay.ID, notes, now)
	if err != nil {
		return c, err
	}
	out.TruckID = nil
	out.LocationType = bay.Type
	return out, nil
}

// Attach sets parent on each member. Members already owned by another container are rejected.
func Attach(parent models.Container, members []models.Container, now time.Time) ([]models.Container, error) {
	if !parent.Type.IsAggregate() {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotAggregate, parent.ID, parent.Type)
	}
	out := make([]models.Container, 0, len(members))
	for _, m := range members {
		if m.ParentID != nil && *m.ParentID != "" && *m.ParentID != parent.ID {
			return nil, fmt.Errorf("%w: %s is in %s", ErrAlreadyParented, m.ID, *m.ParentID)
		}
		pid := parent.ID
		next := WithHistory(m, models.HistoryEntry{
			Timestamp: now,
			Action:    fmt.Sprintf("Packed into %s", parent.ID),
			Location:  locPackaging,
		})
		next.ParentID = &pid
		out = append(out, next)
	}
	return out, nil
}

// ResolveChildren looks up parent.ChildIDs in index, preserving order
func ResolveChildren(parent models.Container, index map[string]models.Container) ([]models.Container, error) {
	out := make([]models.Container, 0, len(parent.ChildIDs))
	for _, id := range parent.ChildIDs {
		child, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("child %s of %s not found", id, parent.ID)
		}
		out = append(out, child)
	}
	return out, nil
}

// Index keys containers by id
func Index(cs []models.Container) map[string]models.Container {
	m := make(map[string]models.Container, len(cs))
	for _, c := range cs {
		m[c.ID] = c
	}
	return m
}
