package tracking

import (
	"math"
	"regexp"
	"strings"
	"time"

	"bevops-backend/internal/models"
)

// DefaultTruckCapacity is the weight limit in lbs when none is given
const DefaultTruckCapacity = 10000.0

// NewTruck returns an idle, empty truck
func NewTruck(id, name, route string, capacity float64) models.Truck {
	if capacity <= 0 {
		capacity = DefaultTruckCapacity
	}
	return models.Truck{
		ID:           id,
		Name:         name,
		Route:        route,
		Capacity:     capacity,
		Status:       models.TruckIdle,
		ContainerIDs: []string{},
		QRCode:       QRCode(id),
	}
}

func cloneTruck(t models.Truck) models.Truck {
	out := t
	out.ContainerIDs = append([]string(nil), t.ContainerIDs...)
	return out
}

// LoadTruck adds the container's weight to the truck and puts it in loading
func LoadTruck(t models.Truck, c models.Container) models.Truck {
	out := cloneTruck(t)
	out.CurrentLoad += Weight(c)
	out.ContainerIDs = append(out.ContainerIDs, c.ID)
	out.Status = models.TruckLoading
	return out
}

// UnloadTruck removes delivered containers and their weight
func UnloadTruck(t models.Truck, delivered []models.Container) models.Truck {
	out := cloneTruck(t)
	gone := make(map[string]struct{}, len(delivered))
	for _, c := range delivered {
		gone[c.ID] = struct{}{}
		out.CurrentLoad -= Weight(c)
	}
	if out.CurrentLoad < 0 {
		out.CurrentLoad = 0
	}
	out.ContainerIDs = without(out.ContainerIDs, gone)
	if len(out.ContainerIDs) == 0 {
		out.Status = models.TruckDelivered
	}
	return out
}

// TakeOffTruck removes a container unloaded before departure. A truck left
// empty goes back to idle.
func TakeOffTruck(t models.Truck, c models.Container) models.Truck {
	out := cloneTruck(t)
	out.CurrentLoad -= Weight(c)
	if out.CurrentLoad < 0 {
		out.CurrentLoad = 0
	}
	out.ContainerIDs = without(out.ContainerIDs, map[string]struct{}{c.ID: {}})
	if len(out.ContainerIDs) == 0 {
		out.Status = models.TruckIdle
	}
	return out
}

// StartRoute sends the truck out
func StartRoute(t models.Truck, now time.Time) models.Truck {
	out := cloneTruck(t)
	out.Status = models.TruckOnRoad
	out.DepartureTime = &now
	return out
}

// ReturnToDepot puts an emptied truck back in service
func ReturnToDepot(t models.Truck) models.Truck {
	out := cloneTruck(t)
	out.Status = models.TruckIdle
	out.DepartureTime = nil
	out.CurrentLoad = 0
	out.ContainerIDs = []string{}
	return out
}

// CapacityPercent is the load as a rounded percentage of capacity
func CapacityPercent(t models.Truck) int {
	if t.Capacity <= 0 {
		return 0
	}
	return int(math.Round(t.CurrentLoad / t.Capacity * 100))
}

// CanAddToTruck reports whether c fits under the weight limit
func CanAddToTruck(t models.Truck, c models.Container) bool {
	return t.CurrentLoad+Weight(c) <= t.Capacity
}

var whitespace = regexp.MustCompile(`\s+`)

// LocationID derives LOC-<NAME> from a display name
func LocationID(name string) string {
	return "LOC-" + strings.ToUpper(whitespace.ReplaceAllString(name, "-"))
}

// NewLocation returns an empty location
func NewLocation(name string, lt models.LocationType, address string, capacity *int) models.Location {
	return models.Location{
		ID:              LocationID(name),
		Name:            name,
		Type:            lt,
		Address:         address,
		Capacity:        capacity,
		ContainerIDs:    []string{},
		PendingReturns:  []string{},
		DeliveryHistory: []models.DeliveryRecord{},
	}
}

func cloneLocation(l models.Location) models.Location {
	out := l
	out.ContainerIDs = append([]string(nil), l.ContainerIDs...)
	out.PendingReturns = append([]string(nil), l.PendingReturns...)
	out.DeliveryHistory = append([]models.DeliveryRecord(nil), l.DeliveryHistory...)
	return out
}

// DeliverToLocation drops containers at the location and records the delivery
func DeliverToLocation(l models.Location, truckID string, containerIDs []string, signedBy *string, now time.Time) models.Location {
	out := cloneLocation(l)
	ids := append([]string(nil), containerIDs...)
	out.ContainerIDs = append(out.ContainerIDs, ids...)
	out.DeliveryHistory = append(out.DeliveryHistory, models.DeliveryRecord{
		Date:         now,
		TruckID:      truckID,
		ContainerIDs: ids,
		SignedBy:     signedBy,
	})
	return out
}

// MarkPendingReturn flags empties at a customer as ready for pickup
func MarkPendingReturn(l models.Location, containerIDs []string) models.Location {
	out := cloneLocation(l)
	have := make(map[string]struct{}, len(out.PendingReturns))
	for _, id := range out.PendingReturns {
		have[id] = struct{}{}
	}
	for _, id := range containerIDs {
		if _, ok := have[id]; !ok {
			out.PendingReturns = append(out.PendingReturns, id)
			have[id] = struct{}{}
		}
	}
	return out
}

// RecordReturn removes picked-up containers from the location
func RecordReturn(l models.Location, containerIDs []string) models.Location {
	out := cloneLocation(l)
	gone := make(map[string]struct{}, len(containerIDs))
	for _, id := range containerIDs {
		gone[id] = struct{}{}
	}
	out.ContainerIDs = without(out.ContainerIDs, gone)
	out.PendingReturns = without(out.PendingReturns, gone)
	return out
}

func without(ids []string, drop map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
