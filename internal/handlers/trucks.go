package handlers

import (
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"bevops-backend/internal/database"
	"bevops-backend/internal/metrics"
	"bevops-backend/internal/models"
	"bevops-backend/internal/tracking"
	"bevops-backend/internal/validation"
	"bevops-backend/internal/websocket"
	"bevops-backend/pkg/utils"
)

// defaultReturnWindow is the expected return date given to deliveries that have none
const defaultReturnWindow = 30 * 24 * time.Hour

// stagingLocID is the truck bay unloaded containers go back to
const stagingLocID = "staging"

// TruckResponse is a truck with its load as a percentage
type TruckResponse struct {
	models.Truck
	CapacityPercent int `json:"capacity_percent"`
}

func toTruckResponse(t models.Truck) TruckResponse {
	return TruckResponse{Truck: t, CapacityPercent: tracking.CapacityPercent(t)}
}

func ListTrucks(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trucks, err := database.ListTrucks(r.Context(), env.DB)
		if err != nil {
			writeError(w, "TRUCKS", err)
			return
		}
		out := make([]TruckResponse, len(trucks))
		for i, t := range trucks {
			out[i] = toTruckResponse(t)
		}
		utils.Success(w, out)
	}
}

func GetTruck(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := database.GetTruck(r.Context(), env.DB, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, "TRUCKS", err)
			return
		}
		utils.Success(w, toTruckResponse(t))
	}
}

// LoadTruck puts a staged container, and anything packed in it, on a truck
func LoadTruck(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		truckID := chi.URLParam(r, "id")
		var req models.LoadTruckRequest
		if err := utils.Decode(r, &req); err != nil || req.ContainerID == "" {
			utils.Error(w, http.StatusBadRequest, "container_id is required")
			return
		}

		ctx := r.Context()
		var truck models.Truck
		var loaded models.Container
		var result validation.Result
		err := env.mutate(ctx, []string{truckID, req.ContainerID}, func(tx *sqlx.Tx) error {
			var err error
			truck, err = database.GetTruckForUpdate(ctx, tx, truckID)
			if err != nil {
				return err
			}
			c, err := database.GetContainerForUpdate(ctx, tx, req.ContainerID)
			if err != nil {
				return err
			}

			if c.ParentID != nil && *c.ParentID != "" {
				return check("load", failed(validation.MissingRelationship,
					fmt.Sprintf("Container %s is packed in %s; load %s instead", c.ID, *c.ParentID, *c.ParentID)))
			}

			staged, err := database.ListContainers(ctx, tx, database.ContainerFilter{
				Status:  models.StatusStaging,
				Product: c.ProductName,
			})
			if err != nil {
				return err
			}
			result = validation.Combine(
				validation.ValidateTruckLoad(truck, c),
				validation.ValidateDelivery(c),
				validation.ValidateInventoryAllocation(1, len(staged), env.NominalStock),
			)
			if err := check("load", result); err != nil {
				return err
			}

			now := env.now()
			loaded = tracking.LoadOnTruck(c, truck.ID, now)
			if err := saveContainer(ctx, tx, c, loaded, actor(r)); err != nil {
				return err
			}

			children, err := descendants(ctx, tx, c)
			if err != nil {
				return err
			}
			carried := make([]models.Container, len(children))
			for i, child := range children {
				carried[i] = tracking.LoadOnTruck(child, truck.ID, now)
			}
			if err := saveContainers(ctx, tx, children, carried, actor(r)); err != nil {
				return err
			}

			truck = tracking.LoadTruck(truck, c)
			metrics.TransitionsTotal.WithLabelValues(string(c.Status), string(loaded.Status)).Inc()
			return database.SaveTruck(ctx, tx, truck)
		})
		if err != nil {
			writeError(w, "LOAD", err)
			return
		}

		log.Printf("🚚 [LOAD] %s -> %s (%d%%)", loaded.ID, truck.ID, tracking.CapacityPercent(truck))
		env.publish(websocket.EventContainerUpdated, loaded)
		env.publish(websocket.EventTruckUpdated, toTruckResponse(truck))
		env.refreshAlerts()
		utils.Success(w, map[string]interface{}{
			"truck":     toTruckResponse(truck),
			"container": loaded,
			"warnings":  result.Warnings,
		})
	}
}

// UnloadTruck takes a container, and anything packed in it, off a truck that
// has not left yet and puts it back in the truck bay
func UnloadTruck(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		truckID := chi.URLParam(r, "id")
		var req models.LoadTruckRequest
		if err := utils.Decode(r, &req); err != nil || req.ContainerID == "" {
			utils.Error(w, http.StatusBadRequest, "container_id is required")
			return
		}

		ctx := r.Context()
		var truck models.Truck
		var unloaded models.Container
		err := env.mutate(ctx, []string{truckID, req.ContainerID, stagingLocID}, func(tx *sqlx.Tx) error {
			var err error
			truck, err = database.GetTruckForUpdate(ctx, tx, truckID)
			if err != nil {
				return err
			}
			c, err := database.GetContainerForUpdate(ctx, tx, req.ContainerID)
			if err != nil {
				return err
			}
			if c.TruckID == nil || *c.TruckID != truck.ID || !slices.Contains(truck.ContainerIDs, c.ID) {
				return check("unload", failed(validation.MissingRelationship,
					fmt.Sprintf("Container %s is not cargo on truck %s", c.ID, truck.ID)))
			}
			bay, err := database.GetLocationForUpdate(ctx, tx, stagingLocID)
			if err != nil {
				return err
			}

			now := env.now()
			unloaded, err = tracking.UnloadFromTruck(c, bay, now)
			if err != nil {
				return err
			}
			if err := saveContainer(ctx, tx, c, unloaded, actor(r)); err != nil {
				return err
			}

			children, err := descendants(ctx, tx, c)
			if err != nil {
				return err
			}
			carried := make([]models.Container, len(children))
			for i, child := range children {
				carried[i], err = tracking.UnloadFromTruck(child, bay, now)
				if err != nil {
					return err
				}
			}
			if err := saveContainers(ctx, tx, children, carried, actor(r)); err != nil {
				return err
			}

			truck = tracking.TakeOffTruck(truck, c)
			metrics.TransitionsTotal.WithLabelValues(string(c.Status), string(unloaded.Status)).Inc()
			return database.SaveTruck(ctx, tx, truck)
		})
		if err != nil {
			writeError(w, "UNLOAD", err)
			return
		}

		log.Printf("🚚 [UNLOAD] %s <- %s (%d%%)", unloaded.ID, truck.ID, tracking.CapacityPercent(truck))
		env.publish(websocket.EventContainerUpdated, unloaded)
		env.publish(websocket.EventTruckUpdated, toTruckResponse(truck))
		env.refreshAlerts()
		utils.Success(w, map[string]interface{}{
			"truck":     toTruckResponse(truck),
			"container": unloaded,
		})
	}
}

// DepartTruck sends a loaded truck on its route
func DepartTruck(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		truckID := chi.URLParam(r, "id")
		var req struct {
			Driver *string `json:"driver,omitempty"`
		}
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		ctx := r.Context()
		var truck models.Truck
		err := env.mutate(ctx, []string{truckID}, func(tx *sqlx.Tx) error {
			var err error
			truck, err = database.GetTruckForUpdate(ctx, tx, truckID)
			if err != nil {
				return err
			}
			if truck.Status != models.TruckLoading || len(truck.ContainerIDs) == 0 {
				return check("depart", failed(validation.InvalidStatusTransition,
					fmt.Sprintf("Truck %s is %s with %d containers and cannot depart", truck.ID, truck.Status, len(truck.ContainerIDs))))
			}

			cargo, err := database.GetContainersForUpdate(ctx, tx, truck.ContainerIDs)
			if err != nil {
				return err
			}
			now := env.now()
			for _, c := range cargo {
				moving, err := tracking.Transition(c, models.StatusInTransit, truck.ID, "Departed on "+truck.Route, now)
				if err != nil {
					return err
				}
				if err := saveContainer(ctx, tx, c, moving, actor(r)); err != nil {
					return err
				}
				metrics.TransitionsTotal.WithLabelValues(string(c.Status), string(moving.Status)).Inc()

				children, err := descendants(ctx, tx, c)
				if err != nil {
					return err
				}
				carried := make([]models.Container, len(children))
				for i, child := range children {
					carried[i] = tracking.UpdateStatus(child, models.StatusInTransit, truck.ID, "Departed with "+c.ID, now)
				}
				if err := saveContainers(ctx, tx, children, carried, actor(r)); err != nil {
					return err
				}
			}

			truck = tracking.StartRoute(truck, now)
			if req.Driver != nil {
				truck.Driver = req.Driver
			}
			return database.SaveTruck(ctx, tx, truck)
		})
		if err != nil {
			writeError(w, "DEPART", err)
			return
		}

		log.Printf("🚚 [DEPART] %s left with %d containers", truck.ID, len(truck.ContainerIDs))
		env.publish(websocket.EventTruckUpdated, toTruckResponse(truck))
		utils.Success(w, toTruckResponse(truck))
	}
}

// DeliverTruck drops containers from an on-road truck at a customer
func DeliverTruck(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		truckID := chi.URLParam(r, "id")
		var req models.DeliverRequest
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.LocationID == "" || len(req.ContainerIDs) == 0 {
			utils.Error(w, http.StatusBadRequest, "location_id and container_ids are required")
			return
		}

		ctx := r.Context()
		customers, err := customerIDs(r, env)
		if err != nil {
			writeError(w, "DELIVER", err)
			return
		}
		if err := check("deliver", validation.ValidateCustomerExists(req.LocationID, customers)); err != nil {
			writeError(w, "DELIVER", err)
			return
		}

		keys := append([]string{truckID, req.LocationID}, req.ContainerIDs...)
		var truck models.Truck
		var delivered []models.Container
		err = env.mutate(ctx, keys, func(tx *sqlx.Tx) error {
			var err error
			truck, err = database.GetTruckForUpdate(ctx, tx, truckID)
			if err != nil {
				return err
			}
			if truck.Status != models.TruckOnRoad {
				return check("deliver", failed(validation.InvalidStatusTransition,
					fmt.Sprintf("Truck %s is %s, not on the road", truck.ID, truck.Status)))
			}
			loc, err := database.GetLocationForUpdate(ctx, tx, req.LocationID)
			if err != nil {
				return err
			}

			roots, err := lockMembers(ctx, tx, req.ContainerIDs)
			if err != nil {
				return err
			}
			var problems []validation.Result
			for _, c := range roots {
				if !slices.Contains(truck.ContainerIDs, c.ID) {
					problems = append(problems, failed(validation.MissingRelationship,
						fmt.Sprintf("Container %s is not on truck %s", c.ID, truck.ID)))
				}
				problems = append(problems, validation.ValidateStatusTransition(c, models.StatusDelivered))
			}
			if err := check("deliver", validation.Combine(problems...)); err != nil {
				return err
			}

			now := env.now()
			kegs := 0
			for _, c := range roots {
				dropped, err := tracking.Transition(c, models.StatusDelivered, loc.ID, "Delivered to "+loc.Name, now)
				if err != nil {
					return err
				}
				dropped = atCustomer(dropped, loc, now)
				if err := saveContainer(ctx, tx, c, dropped, actor(r)); err != nil {
					return err
				}
				metrics.TransitionsTotal.WithLabelValues(string(c.Status), string(dropped.Status)).Inc()
				delivered = append(delivered, dropped)
				if c.Type == models.ContainerKeg {
					kegs++
				}

				children, err := descendants(ctx, tx, c)
				if err != nil {
					return err
				}
				carried := make([]models.Container, len(children))
				for i, child := range children {
					next := tracking.UpdateStatus(child, models.StatusDelivered, loc.ID, "Delivered with "+c.ID, now)
					carried[i] = atCustomer(next, loc, now)
					if child.Type == models.ContainerKeg {
						kegs++
					}
				}
				if err := saveContainers(ctx, tx, children, carried, actor(r)); err != nil {
					return err
				}
			}

			if kegs > 0 {
				owed := float64(kegs) * env.Alerts.Policy().DepositPerUnit
				if err := database.AddDepositOwed(ctx, tx, loc.ID, owed); err != nil {
					return err
				}
			}

			after := tracking.DeliverToLocation(loc, truck.ID, req.ContainerIDs, req.SignedBy, now)
			if err := database.SaveLocation(ctx, tx, loc, after); err != nil {
				return err
			}

			truck = tracking.UnloadTruck(truck, roots)
			return database.SaveTruck(ctx, tx, truck)
		})
		if err != nil {
			writeError(w, "DELIVER", err)
			return
		}

		log.Printf("✅ [DELIVER] %s dropped %d containers at %s", truck.ID, len(delivered), req.LocationID)
		for _, c := range delivered {
			env.publish(websocket.EventContainerUpdated, c)
		}
		env.publish(websocket.EventTruckUpdated, toTruckResponse(truck))
		env.refreshAlerts()
		utils.Success(w, map[string]interface{}{
			"truck":      toTruckResponse(truck),
			"containers": delivered,
		})
	}
}

// ReturnTruck puts an emptied truck back in service
func ReturnTruck(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		truckID := chi.URLParam(r, "id")
		ctx := r.Context()

		var truck models.Truck
		err := env.mutate(ctx, []string{truckID}, func(tx *sqlx.Tx) error {
			var err error
			truck, err = database.GetTruckForUpdate(ctx, tx, truckID)
			if err != nil {
				return err
			}
			if len(truck.ContainerIDs) > 0 {
				return check("truck_return", failed(validation.InvalidStatusTransition,
					fmt.Sprintf("Truck %s still carries %d containers", truck.ID, len(truck.ContainerIDs))))
			}
			truck = tracking.ReturnToDepot(truck)
			return database.SaveTruck(ctx, tx, truck)
		})
		if err != nil {
			writeError(w, "TRUCK", err)
			return
		}

		log.Printf("✅ [TRUCK] %s back at depot", truck.ID)
		env.publish(websocket.EventTruckUpdated, toTruckResponse(truck))
		utils.Success(w, toTruckResponse(truck))
	}
}

// atCustomer marks a delivered container as held by the customer at loc
func atCustomer(c models.Container, loc models.Location, now time.Time) models.Container {
	customer := loc.ID
	c.CustomerID = &customer
	c.LocationType = models.LocationCustomer
	c.TruckID = nil
	if c.ExpectedReturnDate == nil && c.Type == models.ContainerKeg {
		due := now.Add(defaultReturnWindow)
		c.ExpectedReturnDate = &due
	}
	return c
}

func customerIDs(r *http.Request, env *Env) ([]string, error) {
	locations, err := database.ListLocations(r.Context(), env.DB)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, l := range locations {
		if l.Type == models.LocationCustomer {
			out = append(out, l.ID)
		}
	}
	return out, nil
}
