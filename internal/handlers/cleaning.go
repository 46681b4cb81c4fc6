package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"bevops-backend/internal/cleaning"
	"bevops-backend/internal/database"
	"bevops-backend/internal/metrics"
	"bevops-backend/internal/models"
	"bevops-backend/internal/tracking"
	"bevops-backend/internal/websocket"
	"bevops-backend/pkg/utils"
)

func GetCleaningQueue(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := models.CleaningStatus(r.URL.Query().Get("status"))
		if status != "" && !status.Valid() {
			utils.Error(w, http.StatusBadRequest, "Unknown cleaning status")
			return
		}
		queue, err := database.ListCleaningQueue(r.Context(), env.DB, status)
		if err != nil {
			writeError(w, "CLEANING", err)
			return
		}
		if status == "" {
			metrics.ObserveQueue(queue)
		}
		utils.Success(w, queue)
	}
}

// GetNextCleaning returns the item a washer should pick up next
func GetNextCleaning(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queue, err := database.ListCleaningQueue(r.Context(), env.DB, models.CleaningQueued)
		if err != nil {
			writeError(w, "CLEANING", err)
			return
		}
		next, ok := cleaning.Next(queue)
		if !ok {
			utils.Error(w, http.StatusNotFound, "Cleaning queue is empty")
			return
		}
		utils.Success(w, next)
	}
}

func GetCleaningStats(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queue, err := database.ListCleaningQueue(r.Context(), env.DB, "")
		if err != nil {
			writeError(w, "CLEANING", err)
			return
		}
		utils.Success(w, env.Cleaning.Stats(queue))
	}
}

func StartCleaning(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req models.StartCleaningRequest
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		assignee := req.AssignedTo
		if assignee == "" {
			assignee = actor(r)
		}

		ctx := r.Context()
		peek, err := database.GetCleaningItem(ctx, env.DB, id)
		if err != nil {
			writeError(w, "CLEANING", err)
			return
		}

		var item models.CleaningQueueItem
		err = env.mutate(ctx, []string{id, peek.ContainerID}, func(tx *sqlx.Tx) error {
			current, err := database.GetCleaningItemForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			item, err = env.Cleaning.Start(current, assignee)
			if err != nil {
				return err
			}
			if err := database.SaveCleaningItem(ctx, tx, item); err != nil {
				return err
			}

			c, err := database.GetContainerForUpdate(ctx, tx, item.ContainerID)
			if err != nil {
				return err
			}
			if c.Status != models.StatusCleaning {
				return fmt.Errorf("%w: %s is %s, not in the wash bay", tracking.ErrInvalidTransition, c.ID, c.Status)
			}
			started := tracking.WithHistory(c, models.HistoryEntry{
				Timestamp: *item.StartedAt,
				Action:    "Cleaning started",
				Location:  c.LocationID,
				Notes:     "Assigned to " + assignee,
			})
			return saveContainer(ctx, tx, c, started, actor(r))
		})
		if err != nil {
			writeError(w, "CLEANING", err)
			return
		}

		log.Printf("🧽 [CLEANING] %s started by %s", item.ContainerID, assignee)
		env.publish(websocket.EventCleaningUpdated, item)
		if env.Hub != nil && assignee != actor(r) {
			env.Hub.BroadcastToUser(assignee, websocket.EventCleaningAssigned, item)
		}
		env.observeQueue()
		utils.Success(w, item)
	}
}

// CompleteCleaning closes an in-progress item. A failed inspection opens a maintenance ticket.
func CompleteCleaning(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req models.CompleteCleaningRequest
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		ctx := r.Context()
		peek, err := database.GetCleaningItem(ctx, env.DB, id)
		if err != nil {
			writeError(w, "CLEANING", err)
			return
		}

		var item models.CleaningQueueItem
		var container models.Container
		var ticket *models.MaintenanceItem
		err = env.mutate(ctx, []string{id, peek.ContainerID}, func(tx *sqlx.Tx) error {
			current, err := database.GetCleaningItemForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			before, err := database.GetContainerForUpdate(ctx, tx, current.ContainerID)
			if err != nil {
				return err
			}

			item, container, err = env.Cleaning.Complete(current, before, req.Passed, req.Notes)
			if err != nil {
				return err
			}
			if err := database.SaveCleaningItem(ctx, tx, item); err != nil {
				return err
			}
			if err := saveContainer(ctx, tx, before, container, actor(r)); err != nil {
				return err
			}
			metrics.TransitionsTotal.WithLabelValues(string(before.Status), string(container.Status)).Inc()

			if req.Passed {
				return nil
			}
			issue := req.Issue
			if issue == "" {
				issue = cleaning.FailedInspection
			}
			t := env.Cleaning.NewMaintenanceItem(container, issue, req.IssueSeverity, actor(r))
			ticket = &t
			return database.InsertMaintenanceItem(ctx, tx, t)
		})
		if err != nil {
			writeError(w, "CLEANING", err)
			return
		}

		if item.StartedAt != nil && item.CompletedAt != nil && item.Status == models.CleaningCompleted {
			metrics.CleaningCycleMinutes.Observe(item.CompletedAt.Sub(*item.StartedAt).Minutes())
		}
		if ticket != nil {
			log.Printf("⚠️  [CLEANING] %s failed inspection, opened %s", container.ID, ticket.ID)
			env.publish(websocket.EventMaintenanceUpdated, ticket)
		} else {
			log.Printf("✅ [CLEANING] %s passed and returned to stock", container.ID)
		}
		env.publish(websocket.EventCleaningUpdated, item)
		env.publish(websocket.EventContainerUpdated, container)
		env.observeQueue()
		env.refreshAlerts()
		utils.Success(w, map[string]interface{}{
			"item":        item,
			"container":   container,
			"maintenance": ticket,
		})
	}
}
