package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"bevops-backend/internal/database"
	"bevops-backend/internal/helpers"
	"bevops-backend/internal/metrics"
	"bevops-backend/internal/models"
	"bevops-backend/internal/tracking"
	"bevops-backend/internal/validation"
	"bevops-backend/internal/websocket"
	"bevops-backend/pkg/utils"
)

func parseTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// saveContainer writes after and the history it gained over before
func saveContainer(ctx context.Context, tx *sqlx.Tx, before, after models.Container, actorID string) error {
	if err := database.SaveContainer(ctx, tx, after); err != nil {
		return err
	}
	return helpers.LogContainerHistory(ctx, tx, before, after, actorID)
}

func saveContainers(ctx context.Context, tx *sqlx.Tx, before, after []models.Container, actorID string) error {
	for _, c := range after {
		if err := database.SaveContainer(ctx, tx, c); err != nil {
			return err
		}
	}
	return helpers.LogContainersHistory(ctx, tx, before, after, actorID)
}

// descendants locks and returns every container nested under root
func descendants(ctx context.Context, tx *sqlx.Tx, root models.Container) ([]models.Container, error) {
	var out []models.Container
	frontier := root.ChildIDs
	for len(frontier) > 0 {
		kids, err := database.GetContainersForUpdate(ctx, tx, frontier)
		if err != nil {
			return nil, err
		}
		frontier = nil
		for _, k := range kids {
			out = append(out, k)
			frontier = append(frontier, k.ChildIDs...)
		}
	}
	return out, nil
}

// lockMembers loads every id or fails with ErrNotFound naming the first missing one
func lockMembers(ctx context.Context, tx *sqlx.Tx, ids []string) ([]models.Container, error) {
	found, err := database.GetContainersForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	index := tracking.Index(found)
	out := make([]models.Container, 0, len(ids))
	for _, id := range ids {
		c, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("container %s: %w", id, database.ErrNotFound)
		}
		out = append(out, c)
	}
	return out, nil
}

func ListContainers(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := database.ContainerFilter{
			Status:     models.ContainerStatus(q.Get("status")),
			Type:       models.ContainerType(q.Get("type")),
			LocationID: q.Get("location_id"),
			TruckID:    q.Get("truck_id"),
			Product:    q.Get("product"),
		}
		if filter.Status != "" && !filter.Status.Valid() {
			utils.Error(w, http.StatusBadRequest, "Unknown status")
			return
		}
		if filter.Type != "" && !filter.Type.Valid() {
			utils.Error(w, http.StatusBadRequest, "Unknown container type")
			return
		}

		containers, err := database.ListContainers(r.Context(), env.DB, filter)
		if err != nil {
			writeError(w, "CONTAINERS", err)
			return
		}
		utils.Success(w, containers)
	}
}

func GetContainer(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		c, err := database.GetContainer(ctx, env.DB, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, "CONTAINERS", err)
			return
		}

		children := []models.Container{}
		if len(c.ChildIDs) > 0 {
			found, err := database.GetContainers(ctx, env.DB, c.ChildIDs)
			if err != nil {
				writeError(w, "CONTAINERS", err)
				return
			}
			if children, err = tracking.ResolveChildren(c, tracking.Index(found)); err != nil {
				writeError(w, "CONTAINERS", err)
				return
			}
		}

		utils.Success(w, map[string]interface{}{
			"container":     c,
			"children":      children,
			"next_statuses": tracking.NextStatuses(c.Status),
		})
	}
}

func GetContainerHistory(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := database.GetContainer(r.Context(), env.DB, id); err != nil {
			writeError(w, "CONTAINERS", err)
			return
		}
		history, err := database.GetHistory(r.Context(), env.DB, id)
		if err != nil {
			writeError(w, "CONTAINERS", err)
			return
		}
		utils.Success(w, history)
	}
}

func CreateContainer(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateContainerRequest
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !req.Type.Valid() {
			utils.Error(w, http.StatusBadRequest, "Unknown container type")
			return
		}
		fill, err := parseTime(req.FillDate)
		if err != nil {
			utils.Error(w, http.StatusBadRequest, "fill_date must be RFC3339")
			return
		}
		expected, err := parseTime(req.ExpectedReturnDate)
		if err != nil {
			utils.Error(w, http.StatusBadRequest, "expected_return_date must be RFC3339")
			return
		}

		ctx := r.Context()
		now := env.now()

		products, err := database.ProductNames(ctx, env.DB)
		if err != nil {
			writeError(w, "CREATE", err)
			return
		}
		results := []validation.Result{validation.ValidateProductExists(req.ProductName, products)}
		if fill != nil {
			results = append(results, validation.ValidateFillDate(*fill, now))
		}
		if expected != nil {
			results = append(results, validation.ValidateReturnDate(now, *expected))
		}

		var opts []tracking.ContainerOption
		if req.LocationID != "" {
			locations, err := database.ListLocations(ctx, env.DB)
			if err != nil {
				writeError(w, "CREATE", err)
				return
			}
			results = append(results, validation.ValidateLocationExists(req.LocationID, locations))
			for _, l := range locations {
				if l.ID == req.LocationID {
					opts = append(opts, tracking.WithLocation(l.ID, l.Type))
				}
			}
		}
		if err := check("create", validation.Combine(results...)); err != nil {
			writeError(w, "CREATE", err)
			return
		}

		if req.Volume != "" {
			opts = append(opts, tracking.WithVolume(req.Volume))
		}
		if req.Weight != nil {
			opts = append(opts, tracking.WithWeight(*req.Weight))
		}
		if fill != nil {
			opts = append(opts, tracking.WithFillDate(*fill), tracking.WithStatus(models.StatusFilled))
		}
		if expected != nil {
			opts = append(opts, tracking.WithExpectedReturn(*expected))
		}
		if req.OrderID != "" || req.CustomerID != "" {
			opts = append(opts, tracking.WithOrder(req.OrderID, req.CustomerID))
		}

		c, err := env.Tracker.CreateContainer(ctx, req.Type, req.ProductName, req.BatchNumber, opts...)
		if err != nil {
			writeError(w, "CREATE", err)
			return
		}

		err = env.mutate(ctx, []string{c.ID}, func(tx *sqlx.Tx) error {
			if err := database.InsertContainer(ctx, tx, c); err != nil {
				return err
			}
			return helpers.LogContainerHistory(ctx, tx, models.Container{}, c, actor(r))
		})
		if err != nil {
			writeError(w, "CREATE", err)
			return
		}

		log.Printf("✅ [CREATE] %s %s (%s)", c.Type, c.ID, c.ProductName)
		env.publish(websocket.EventContainerUpdated, c)
		env.refreshAlerts()
		utils.Created(w, c)
	}
}

func CreateCase(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateCaseRequest
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		createAggregate(env, w, r, "CASE", req.MemberIDs, nil, func(ctx context.Context, members []models.Container) (models.Container, error) {
			return env.Tracker.CreateCase(ctx, members, req.ProductName, req.BatchNumber)
		})
	}
}

func CreatePallet(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreatePalletRequest
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		var capacityCheck validation.Result
		if req.Capacity != nil {
			capacityCheck = validation.ValidatePalletCapacity(0, len(req.MemberIDs), *req.Capacity)
		} else {
			capacityCheck = validation.OK()
		}
		createAggregate(env, w, r, "PALLET", req.MemberIDs, &capacityCheck, func(ctx context.Context, members []models.Container) (models.Container, error) {
			return env.Tracker.CreatePallet(ctx, members, req.Notes)
		})
	}
}

// createAggregate locks the members, builds the parent and attaches them in one transaction
func createAggregate(env *Env, w http.ResponseWriter, r *http.Request, tag string, memberIDs []string, pre *validation.Result,
	build func(ctx context.Context, members []models.Container) (models.Container, error)) {
	ctx := r.Context()
	if len(memberIDs) == 0 {
		writeError(w, tag, tracking.ErrNoMembers)
		return
	}
	if pre != nil {
		if err := check(tag, *pre); err != nil {
			writeError(w, tag, err)
			return
		}
	}

	var parent models.Container
	err := env.mutate(ctx, memberIDs, func(tx *sqlx.Tx) error {
		members, err := lockMembers(ctx, tx, memberIDs)
		if err != nil {
			return err
		}
		parent, err = build(ctx, members)
		if err != nil {
			return err
		}
		attached, err := tracking.Attach(parent, members, env.now())
		if err != nil {
			return err
		}
		if err := database.InsertContainer(ctx, tx, parent); err != nil {
			return err
		}
		if err := helpers.LogContainerHistory(ctx, tx, models.Container{}, parent, actor(r)); err != nil {
			return err
		}
		return saveContainers(ctx, tx, members, attached, actor(r))
	})
	if err != nil {
		writeError(w, tag, err)
		return
	}

	log.Printf("✅ [%s] %s created with %d members", tag, parent.ID, len(parent.ChildIDs))
	env.publish(websocket.EventContainerUpdated, parent)
	env.refreshAlerts()
	resp := map[string]interface{}{"container": parent}
	if pre != nil {
		resp["warnings"] = pre.Warnings
	}
	utils.Created(w, resp)
}

// statusOwner names the endpoint that makes a status change the generic
// status update must not, because it also moves trucks, tickets or deposits.
func statusOwner(from, to models.ContainerStatus) string {
	switch {
	case from == models.StatusCleaning:
		return "POST /api/cleaning/{id}/complete"
	case from == models.StatusMaintenance, to == models.StatusMaintenance:
		return "/api/maintenance"
	case to == models.StatusLoaded:
		return "POST /api/trucks/{id}/load"
	case from == models.StatusLoaded:
		return "POST /api/trucks/{id}/unload"
	case to == models.StatusInTransit:
		return "POST /api/trucks/{id}/depart"
	case to == models.StatusDelivered:
		return "POST /api/trucks/{id}/deliver"
	case to == models.StatusReturned:
		return "POST /api/returns"
	}
	return ""
}

// UpdateContainerStatus moves a container through the yard part of its
// lifecycle. Sending a keg to cleaning queues it like a return does.
func UpdateContainerStatus(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req models.UpdateStatusRequest
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		ctx := r.Context()
		var levels map[string]models.InventoryLevel
		if req.Status == models.StatusCleaning {
			var err error
			levels, err = database.InventoryLevels(ctx, env.DB, env.Alerts.Policy().DefaultInventoryThreshold)
			if err != nil {
				writeError(w, "STATUS", err)
				return
			}
		}

		var before, after models.Container
		var queued []models.CleaningQueueItem
		err := env.mutate(ctx, []string{id}, func(tx *sqlx.Tx) error {
			var err error
			before, err = database.GetContainerForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}

			if err := check("status", validation.ValidateStatusTransition(before, req.Status)); err != nil {
				return err
			}
			if owner := statusOwner(before.Status, req.Status); owner != "" {
				return check("status", failed(validation.InvalidStatusTransition,
					fmt.Sprintf("%s -> %s for %s goes through %s", before.Status, req.Status, before.ID, owner)))
			}

			switch req.Status {
			case models.StatusFilled:
				if err := check("status", validation.ValidateFill(before)); err != nil {
					return err
				}
			case models.StatusCleaning:
				if err := check("status", validation.ValidateCleaning(before)); err != nil {
					return err
				}
				if before.Type != models.ContainerKeg {
					return check("status", failed(validation.InvalidStatusTransition,
						fmt.Sprintf("Only kegs go through the wash bay, %s is a %s", before.ID, before.Type)))
				}
				var routed []models.Container
				queued, routed = env.Cleaning.Route([]models.Container{before}, before.LocationID, levels)
				after = routed[0]
				for _, it := range queued {
					if err := database.InsertCleaningItem(ctx, tx, it); err != nil {
						return err
					}
				}
				return saveContainer(ctx, tx, before, after, actor(r))
			}

			location := req.Location
			if location == "" {
				location = before.LocationID
			}
			after, err = tracking.Transition(before, req.Status, location, req.Notes, env.now())
			if err != nil {
				return err
			}
			if req.Status == models.StatusFilled && after.FillDate == nil {
				now := env.now()
				after.FillDate = &now
			}
			return saveContainer(ctx, tx, before, after, actor(r))
		})
		if err != nil {
			writeError(w, "STATUS", err)
			return
		}

		metrics.TransitionsTotal.WithLabelValues(string(before.Status), string(after.Status)).Inc()
		log.Printf("✅ [STATUS] %s %s -> %s", id, before.Status, after.Status)
		env.publish(websocket.EventContainerUpdated, after)
		for _, it := range queued {
			env.publish(websocket.EventCleaningQueued, it)
		}
		if len(queued) > 0 {
			env.observeQueue()
			env.notifyUrgent(queued)
		}
		env.refreshAlerts()
		utils.Success(w, after)
	}
}

func MoveContainer(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req models.MoveContainerRequest
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.ToLocationID == "" {
			utils.Error(w, http.StatusBadRequest, "to_location_id is required")
			return
		}

		ctx := r.Context()
		var moved models.Container
		var result validation.Result
		err := env.mutate(ctx, []string{id, req.ToLocationID}, func(tx *sqlx.Tx) error {
			c, err := database.GetContainerForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			to, err := database.GetLocationForUpdate(ctx, tx, req.ToLocationID)
			if err != nil {
				return err
			}
			if err := check("move", movable(c, to)); err != nil {
				return err
			}
			from, err := currentLocation(ctx, tx, c)
			if err != nil {
				return err
			}

			result, err = moveCheck(c, from, to)
			if err != nil {
				return err
			}
			if len(result.Warnings) > 0 && !req.Confirmed {
				return &confirmationRequired{result: result}
			}

			now := env.now()
			moved = tracking.MoveTo(c, to, req.Notes, now)
			if err := saveContainer(ctx, tx, c, moved, actor(r)); err != nil {
				return err
			}

			children, err := descendants(ctx, tx, c)
			if err != nil {
				return err
			}
			carried := make([]models.Container, len(children))
			for i, child := range children {
				carried[i] = tracking.MoveTo(child, to, "Moved with "+c.ID, now)
			}
			return saveContainers(ctx, tx, children, carried, actor(r))
		})
		if err != nil {
			writeError(w, "MOVE", err)
			return
		}

		log.Printf("✅ [MOVE] %s -> %s", id, req.ToLocationID)
		env.publish(websocket.EventContainerUpdated, moved)
		env.refreshAlerts()
		utils.Success(w, map[string]interface{}{
			"container": moved,
			"warnings":  result.Warnings,
		})
	}
}

// movable refuses moves that would leave truck cargo or a parent's contents
// out of step with where the container says it is
func movable(c models.Container, to models.Location) validation.Result {
	switch {
	case c.ParentID != nil && *c.ParentID != "":
		return failed(validation.MissingRelationship,
			fmt.Sprintf("Container %s is packed in %s; move %s instead", c.ID, *c.ParentID, *c.ParentID))
	case c.Status == models.StatusLoaded:
		return failed(validation.InvalidStatusTransition,
			fmt.Sprintf("Container %s is loaded on a truck; unload it first", c.ID))
	case to.Type == models.LocationTruck:
		return failed(validation.InvalidStatusTransition,
			fmt.Sprintf("Containers go onto trucks by loading, not by moving %s", c.ID))
	}
	return validation.OK()
}

// currentLocation resolves where c sits now. Trucks and unknown ids become a bare location.
func currentLocation(ctx context.Context, q sqlx.QueryerContext, c models.Container) (models.Location, error) {
	if c.LocationID == "" {
		return models.Location{Type: c.LocationType}, nil
	}
	loc, err := database.GetLocation(ctx, q, c.LocationID)
	if err == nil {
		return loc, nil
	}
	if !isNotFound(err) {
		return models.Location{}, err
	}
	return models.Location{ID: c.LocationID, Name: c.LocationID, Type: c.LocationType}, nil
}

// moveCheck applies the drop-zone rule and the move validator, recording the result
func moveCheck(c models.Container, from, to models.Location) (validation.Result, error) {
	if !validation.CanDrop(c, to.Type) {
		r := failed(validation.InvalidStatusTransition, fmt.Sprintf("A %s cannot be placed in a %s zone", c.Type, to.Type))
		return r, check("move", r)
	}
	r := validation.ValidateContainerMove(c, from, to)
	return r, check("move", r)
}

func DeleteContainer(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ctx := r.Context()

		err := env.mutate(ctx, []string{id}, func(tx *sqlx.Tx) error {
			c, err := database.GetContainerForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := check("delete", validation.ValidateDeletion(c)); err != nil {
				return err
			}
			now := env.now()

			// Children are released, not deleted
			if len(c.ChildIDs) > 0 {
				kids, err := database.GetContainersForUpdate(ctx, tx, c.ChildIDs)
				if err != nil {
					return err
				}
				released := make([]models.Container, len(kids))
				for i, k := range kids {
					next := tracking.WithHistory(k, models.HistoryEntry{
						Timestamp: now,
						Action:    "Unpacked from " + c.ID,
						Location:  k.LocationID,
					})
					next.ParentID = nil
					released[i] = next
				}
				if err := saveContainers(ctx, tx, kids, released, actor(r)); err != nil {
					return err
				}
			}

			if c.ParentID != nil && *c.ParentID != "" {
				parent, err := database.GetContainerForUpdate(ctx, tx, *c.ParentID)
				if err != nil && !isNotFound(err) {
					return err
				}
				if err == nil {
					next := tracking.WithHistory(parent, models.HistoryEntry{
						Timestamp: now,
						Action:    "Removed " + c.ID,
						Location:  parent.LocationID,
					})
					next.ChildIDs = slices.DeleteFunc(next.ChildIDs, func(cid string) bool { return cid == c.ID })
					if err := saveContainer(ctx, tx, parent, next, actor(r)); err != nil {
						return err
					}
				}
			}

			return database.DeleteContainer(ctx, tx, id)
		})
		if err != nil {
			writeError(w, "DELETE", err)
			return
		}

		log.Printf("🗑️ [DELETE] %s", id)
		env.publish(websocket.EventContainerUpdated, map[string]interface{}{"id": id, "deleted": true})
		env.refreshAlerts()
		utils.Success(w, map[string]interface{}{"success": true, "id": id})
	}
}
