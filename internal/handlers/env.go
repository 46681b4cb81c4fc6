package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"bevops-backend/internal/alerts"
	"bevops-backend/internal/cleaning"
	"bevops-backend/internal/database"
	"bevops-backend/internal/locking"
	"bevops-backend/internal/metrics"
	"bevops-backend/internal/middleware"
	"bevops-backend/internal/models"
	"bevops-backend/internal/services"
	"bevops-backend/internal/tracking"
	"bevops-backend/internal/validation"
	"bevops-backend/internal/websocket"
	"bevops-backend/pkg/utils"
)

// Env carries what the handlers share
type Env struct {
	DB        *sqlx.DB
	Locker    locking.Locker
	Hub       *websocket.Hub
	Tracker   *tracking.Tracker
	Cleaning  *cleaning.Dispatcher
	Alerts    *alerts.Engine
	Notifier  *services.Notifier
	JWTSecret string

	// NominalStock is the baseline for allocation warnings
	NominalStock int

	Now func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// rejection is a validation result that blocked an operation
type rejection struct {
	op     string
	result validation.Result
}

func (r *rejection) Error() string {
	return fmt.Sprintf("%s rejected: %s", r.op, validation.Format(r.result))
}

// confirmationRequired is returned when warnings need an explicit go-ahead
type confirmationRequired struct {
	result validation.Result
}

func (c *confirmationRequired) Error() string { return "confirmation required" }

// failed builds a one-issue blocking result
func failed(kind validation.Kind, msg string) validation.Result {
	r := validation.OK()
	r.Valid = false
	r.Errors = append(r.Errors, validation.Issue{Kind: kind, Message: msg})
	return r
}

// check records r and turns an invalid result into a rejection
func check(op string, r validation.Result) error {
	metrics.ObserveValidation(op, r)
	if !r.Valid {
		return &rejection{op: op, result: r}
	}
	return nil
}

// mutate serializes on keys, then runs fn in one transaction
func (e *Env) mutate(ctx context.Context, keys []string, fn func(tx *sqlx.Tx) error) error {
	start := time.Now()
	unlock, err := locking.LockAll(ctx, e.Locker, keys...)
	metrics.LockWaitSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := e.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// refreshAlerts recomputes alerts after a commit and fans them out
func (e *Env) refreshAlerts() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		list, err := e.currentAlerts(ctx)
		if err != nil {
			log.Printf("⚠️  [ALERTS] Recompute failed: %v", err)
			return
		}
		if e.Hub != nil {
			e.Hub.Publish(websocket.EventAlertsUpdated, map[string]interface{}{
				"alerts":  list,
				"summary": alerts.Summarize(list),
			})
		}
		e.Notifier.CriticalAlerts(ctx, list)
	}()
}

func (e *Env) currentAlerts(ctx context.Context) ([]models.Alert, error) {
	snap, err := database.LoadSnapshot(ctx, e.DB)
	if err != nil {
		return nil, err
	}
	list := e.Alerts.All(snap, e.now())
	metrics.ObserveAlerts(list)
	return list, nil
}

func (e *Env) publish(eventType string, data interface{}) {
	if e.Hub != nil {
		e.Hub.Publish(eventType, data)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

// actor returns the authenticated user id, or "system"
func actor(r *http.Request) string {
	if u, ok := middleware.GetUserFromContext(r); ok && u.UserID != "" {
		return u.UserID
	}
	return "system"
}

// writeError maps domain and repository errors onto HTTP responses
func writeError(w http.ResponseWriter, tag string, err error) {
	var rej *rejection
	if errors.As(err, &rej) {
		log.Printf("⚠️  [%s] %v", tag, err)
		utils.JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":    "Validation failed",
			"valid":    false,
			"errors":   rej.result.Errors,
			"warnings": rej.result.Warnings,
		})
		return
	}
	var conf *confirmationRequired
	if errors.As(err, &conf) {
		utils.JSON(w, http.StatusConflict, map[string]interface{}{
			"error":                 "Confirmation required",
			"requires_confirmation": true,
			"valid":                 true,
			"errors":                conf.result.Errors,
			"warnings":              conf.result.Warnings,
		})
		return
	}

	switch {
	case errors.Is(err, database.ErrNotFound):
		utils.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tracking.ErrInvalidTransition),
		errors.Is(err, tracking.ErrAlreadyParented),
		errors.Is(err, cleaning.ErrNotQueued),
		errors.Is(err, cleaning.ErrNotInProgress),
		errors.Is(err, cleaning.ErrInvalidMaintenanceTransition),
		errors.Is(err, cleaning.ErrMaintenanceOpen):
		log.Printf("⚠️  [%s] %v", tag, err)
		utils.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, tracking.ErrNoMembers),
		errors.Is(err, tracking.ErrUnknownType),
		errors.Is(err, tracking.ErrNotAggregate),
		errors.Is(err, cleaning.ErrContainerMismatch):
		utils.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, locking.ErrNotAcquired), errors.Is(err, context.DeadlineExceeded):
		log.Printf("⚠️  [%s] %v", tag, err)
		utils.Error(w, http.StatusServiceUnavailable, "Resource busy, retry")
	default:
		log.Printf("❌ [%s] %v", tag, err)
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
