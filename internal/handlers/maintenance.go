package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"bevops-backend/internal/cleaning"
	"bevops-backend/internal/database"
	"bevops-backend/internal/metrics"
	"bevops-backend/internal/models"
	"bevops-backend/internal/validation"
	"bevops-backend/internal/websocket"
	"bevops-backend/pkg/utils"
)

func ListMaintenance(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := models.MaintenanceStatus(r.URL.Query().Get("status"))
		if status != "" && !status.Valid() {
			utils.Error(w, http.StatusBadRequest, "Unknown maintenance status")
			return
		}
		items, err := database.ListMaintenance(r.Context(), env.DB, status)
		if err != nil {
			writeError(w, "MAINTENANCE", err)
			return
		}
		utils.Success(w, items)
	}
}

func GetMaintenanceStats(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := database.ListMaintenance(r.Context(), env.DB, "")
		if err != nil {
			writeError(w, "MAINTENANCE", err)
			return
		}
		utils.Success(w, env.Cleaning.MaintenanceStats(items))
	}
}

// ReportMaintenance opens a repair ticket and moves the container into maintenance.
// Containers outside the wash bay are refused by the lifecycle.
func ReportMaintenance(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ReportMaintenanceRequest
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.ContainerID == "" || strings.TrimSpace(req.Issue) == "" {
			utils.Error(w, http.StatusBadRequest, "container_id and issue are required")
			return
		}

		ctx := r.Context()
		var ticket models.MaintenanceItem
		var container models.Container
		var withdrawn []models.CleaningQueueItem
		err := env.mutate(ctx, []string{req.ContainerID}, func(tx *sqlx.Tx) error {
			c, err := database.GetContainerForUpdate(ctx, tx, req.ContainerID)
			if err != nil {
				return err
			}
			if c.Status == models.StatusScrapped {
				return check("maintenance", failed(validation.InvalidStatusTransition,
					fmt.Sprintf("Container %s is scrapped", c.ID)))
			}

			open, err := database.OpenMaintenanceFor(ctx, tx, c.ID)
			if err != nil {
				return err
			}
			if open {
				return fmt.Errorf("%w: %s already has an open ticket", cleaning.ErrMaintenanceOpen, c.ID)
			}

			ticket = env.Cleaning.NewMaintenanceItem(c, req.Issue, req.Severity, actor(r))
			flagged, err := env.Cleaning.Intake(ticket, c)
			if err != nil {
				return err
			}
			if err := database.InsertMaintenanceItem(ctx, tx, ticket); err != nil {
				return err
			}

			// the keg leaves the wash bay, so its queue items close with it
			queued, err := database.OpenCleaningItemsFor(ctx, tx, c.ID)
			if err != nil {
				return err
			}
			for _, it := range queued {
				closed, err := env.Cleaning.Withdraw(it, "Reported for maintenance: "+ticket.Issue)
				if err != nil {
					return err
				}
				if err := database.SaveCleaningItem(ctx, tx, closed); err != nil {
					return err
				}
				withdrawn = append(withdrawn, closed)
			}

			if flagged.Status != c.Status {
				metrics.TransitionsTotal.WithLabelValues(string(c.Status), string(flagged.Status)).Inc()
			}
			container = flagged
			return saveContainer(ctx, tx, c, flagged, actor(r))
		})
		if err != nil {
			writeError(w, "MAINTENANCE", err)
			return
		}

		log.Printf("🔧 [MAINTENANCE] %s opened for %s (%s)", ticket.ID, ticket.ContainerID, ticket.Severity)
		env.publish(websocket.EventMaintenanceUpdated, ticket)
		env.publish(websocket.EventContainerUpdated, container)
		for _, it := range withdrawn {
			env.publish(websocket.EventCleaningUpdated, it)
		}
		if len(withdrawn) > 0 {
			env.observeQueue()
		}
		env.refreshAlerts()
		utils.Created(w, ticket)
	}
}

// UpdateMaintenance advances a ticket and edits its details. Closing it
// repairs or scraps the container in the same transaction.
func UpdateMaintenance(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req models.UpdateMaintenanceRequest
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Status != "" && !req.Status.Valid() {
			utils.Error(w, http.StatusBadRequest, "Unknown maintenance status")
			return
		}

		ctx := r.Context()
		peek, err := database.GetMaintenanceItem(ctx, env.DB, id)
		if err != nil {
			writeError(w, "MAINTENANCE", err)
			return
		}

		var ticket models.MaintenanceItem
		var resolved *models.Container
		err = env.mutate(ctx, []string{id, peek.ContainerID}, func(tx *sqlx.Tx) error {
			current, err := database.GetMaintenanceItemForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			ticket = current
			if req.Status != "" && req.Status != current.Status {
				ticket, err = env.Cleaning.AdvanceMaintenance(current, req.Status)
				if err != nil {
					return err
				}
			}
			if req.AssignedTo != nil {
				ticket.AssignedTo = req.AssignedTo
			}
			if req.EstimatedCost != nil {
				ticket.EstimatedCost = req.EstimatedCost
			}
			if req.ActualCost != nil {
				ticket.ActualCost = req.ActualCost
			}
			if req.Notes != nil {
				ticket.Notes = req.Notes
			}
			if err := database.SaveMaintenanceItem(ctx, tx, ticket); err != nil {
				return err
			}

			if current.Status.Terminal() || !ticket.Status.Terminal() {
				return nil
			}
			before, err := database.GetContainerForUpdate(ctx, tx, ticket.ContainerID)
			if err != nil {
				return err
			}
			after, err := env.Cleaning.ResolveMaintenance(ticket, before)
			if err != nil {
				return err
			}
			if err := saveContainer(ctx, tx, before, after, actor(r)); err != nil {
				return err
			}
			metrics.TransitionsTotal.WithLabelValues(string(before.Status), string(after.Status)).Inc()
			resolved = &after
			return nil
		})
		if err != nil {
			writeError(w, "MAINTENANCE", err)
			return
		}

		log.Printf("🔧 [MAINTENANCE] %s is %s", ticket.ID, ticket.Status)
		env.publish(websocket.EventMaintenanceUpdated, ticket)
		if resolved != nil {
			env.publish(websocket.EventContainerUpdated, resolved)
			env.refreshAlerts()
		}
		utils.Success(w, map[string]interface{}{
			"item":      ticket,
			"container": resolved,
		})
	}
}
