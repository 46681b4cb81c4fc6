package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"bevops-backend/internal/database"
	"bevops-backend/internal/metrics"
	"bevops-backend/internal/models"
	"bevops-backend/internal/tracking"
	"bevops-backend/internal/validation"
	"bevops-backend/internal/websocket"
	"bevops-backend/pkg/utils"
)

// RecordReturn picks up containers from a customer and routes kegs into the cleaning queue
func RecordReturn(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ReturnRequest
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
			writeError(w, "RETURN", err)
			return
		}
		if err := check("return", validation.ValidateCustomerExists(req.LocationID, customers)); err != nil {
			writeError(w, "RETURN", err)
			return
		}

		levels, err := database.InventoryLevels(ctx, env.DB, env.Alerts.Policy().DefaultInventoryThreshold)
		if err != nil {
			writeError(w, "RETURN", err)
			return
		}

		keys := append([]string{req.LocationID}, req.ContainerIDs...)
		var returned []models.Container
		var queued []models.CleaningQueueItem
		err = env.mutate(ctx, keys, func(tx *sqlx.Tx) error {
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
				if c.LocationID != loc.ID {
					problems = append(problems, failed(validation.MissingRelationship,
						fmt.Sprintf("Container %s is not at %s", c.ID, loc.Name)))
				}
				problems = append(problems, validation.ValidateStatusTransition(c, models.StatusReturned))
			}
			if err := check("return", validation.Combine(problems...)); err != nil {
				return err
			}

			now := env.now()
			var before, picked []models.Container
			for _, c := range roots {
				next, err := tracking.Transition(c, models.StatusReturned, "warehouse", "Picked up from "+loc.Name+notesSuffix(req.Notes), now)
				if err != nil {
					return err
				}
				metrics.TransitionsTotal.WithLabelValues(string(c.Status), string(next.Status)).Inc()
				before = append(before, c)
				picked = append(picked, pickedUp(next, now))

				children, err := descendants(ctx, tx, c)
				if err != nil {
					return err
				}
				for _, child := range children {
					next := tracking.UpdateStatus(child, models.StatusReturned, "warehouse", "Returned with "+c.ID, now)
					before = append(before, child)
					picked = append(picked, pickedUp(next, now))
				}
			}

			queued, returned = env.Cleaning.Route(picked, loc.Name, levels)
			if err := saveContainers(ctx, tx, before, returned, actor(r)); err != nil {
				return err
			}
			for _, it := range queued {
				if err := database.InsertCleaningItem(ctx, tx, it); err != nil {
					return err
				}
			}

			kegs := 0
			ids := make([]string, len(before))
			for i, c := range before {
				ids[i] = c.ID
				if c.Type == models.ContainerKeg {
					kegs++
				}
			}
			if kegs > 0 {
				credit := float64(kegs) * env.Alerts.Policy().DepositPerUnit
				if err := database.AddDepositOwed(ctx, tx, loc.ID, -credit); err != nil {
					return err
				}
			}
			return database.SaveLocation(ctx, tx, loc, tracking.RecordReturn(loc, ids))
		})
		if err != nil {
			writeError(w, "RETURN", err)
			return
		}

		log.Printf("✅ [RETURN] %d containers from %s, %d queued for cleaning", len(returned), req.LocationID, len(queued))
		for _, c := range returned {
			env.publish(websocket.EventContainerUpdated, c)
		}
		for _, it := range queued {
			env.publish(websocket.EventCleaningQueued, it)
		}
		env.observeQueue()
		env.notifyUrgent(queued)
		env.refreshAlerts()
		utils.Created(w, map[string]interface{}{
			"containers": returned,
			"queued":     queued,
		})
	}
}

func pickedUp(c models.Container, now time.Time) models.Container {
	c.ReturnedAt = &now
	c.CustomerID = nil
	c.LocationType = models.LocationWarehouse
	return c
}

func notesSuffix(notes string) string {
	if notes == "" {
		return ""
	}
	return ": " + notes
}

// observeQueue refreshes the queue depth gauge
func (e *Env) observeQueue() {
	queue, err := database.ListCleaningQueue(context.Background(), e.DB, "")
	if err != nil {
		log.Printf("⚠️  [CLEANING] Failed to read queue for metrics: %v", err)
		return
	}
	metrics.ObserveQueue(queue)
}

// notifyUrgent pushes urgent cleaning work without holding up the response
func (e *Env) notifyUrgent(items []models.CleaningQueueItem) {
	if len(items) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		e.Notifier.UrgentCleaning(ctx, items)
	}()
}
