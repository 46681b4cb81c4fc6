package handlers

import (
	"fmt"
	"log"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"bevops-backend/internal/database"
	"bevops-backend/internal/models"
	"bevops-backend/internal/tracking"
	"bevops-backend/internal/validation"
	"bevops-backend/pkg/utils"
)

func ListLocations(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locations, err := database.ListLocations(r.Context(), env.DB)
		if err != nil {
			writeError(w, "LOCATIONS", err)
			return
		}
		utils.Success(w, locations)
	}
}

func GetLocation(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loc, err := database.GetLocation(r.Context(), env.DB, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, "LOCATIONS", err)
			return
		}
		utils.Success(w, loc)
	}
}

// CreateLocation registers a zone or customer site
func CreateLocation(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string              `json:"name"`
			Type     models.LocationType `json:"type"`
			Address  string              `json:"address,omitempty"`
			Capacity *int                `json:"capacity,omitempty"`
		}
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Name == "" || !req.Type.Valid() {
			utils.Error(w, http.StatusBadRequest, "name and a valid type are required")
			return
		}

		loc := tracking.NewLocation(req.Name, req.Type, req.Address, req.Capacity)
		if _, err := database.GetLocation(r.Context(), env.DB, loc.ID); err == nil {
			utils.Error(w, http.StatusConflict, fmt.Sprintf("Location %s already exists", loc.ID))
			return
		}
		if err := database.InsertLocation(r.Context(), env.DB, loc); err != nil {
			writeError(w, "LOCATIONS", err)
			return
		}

		log.Printf("✅ [LOCATIONS] Created %s (%s)", loc.ID, loc.Type)
		utils.Created(w, loc)
	}
}

// MarkPendingReturns flags empties at a customer as ready for pickup
func MarkPendingReturns(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req struct {
			ContainerIDs []string `json:"container_ids"`
		}
		if err := utils.Decode(r, &req); err != nil || len(req.ContainerIDs) == 0 {
			utils.Error(w, http.StatusBadRequest, "container_ids is required")
			return
		}

		ctx := r.Context()
		var after models.Location
		err := env.mutate(ctx, []string{id}, func(tx *sqlx.Tx) error {
			loc, err := database.GetLocationForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if loc.Type != models.LocationCustomer {
				return check("pending_return", failed(validation.MissingRelationship,
					fmt.Sprintf("%s is not a customer location", loc.Name)))
			}
			var problems []validation.Result
			for _, cid := range req.ContainerIDs {
				if !slices.Contains(loc.ContainerIDs, cid) {
					problems = append(problems, failed(validation.MissingRelationship,
						fmt.Sprintf("Container %s is not at %s", cid, loc.Name)))
				}
			}
			if err := check("pending_return", validation.Combine(problems...)); err != nil {
				return err
			}
			after = tracking.MarkPendingReturn(loc, req.ContainerIDs)
			return database.SaveLocation(ctx, tx, loc, after)
		})
		if err != nil {
			writeError(w, "LOCATIONS", err)
			return
		}

		log.Printf("📦 [LOCATIONS] %d pending returns at %s", len(after.PendingReturns), id)
		env.refreshAlerts()
		utils.Success(w, after)
	}
}

func ListDeposits(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deposits, err := database.ListDeposits(r.Context(), env.DB)
		if err != nil {
			writeError(w, "DEPOSITS", err)
			return
		}
		utils.Success(w, deposits)
	}
}

// RecordDepositPayment books money received from a customer
func RecordDepositPayment(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req struct {
			Amount float64 `json:"amount"`
		}
		if err := utils.Decode(r, &req); err != nil || req.Amount <= 0 {
			utils.Error(w, http.StatusBadRequest, "amount must be greater than zero")
			return
		}

		ctx := r.Context()
		err := env.mutate(ctx, []string{id}, func(tx *sqlx.Tx) error {
			loc, err := database.GetLocationForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if loc.Type != models.LocationCustomer {
				return check("deposit", failed(validation.MissingRelationship,
					fmt.Sprintf("%s is not a customer location", loc.Name)))
			}
			return database.RecordDepositPayment(ctx, tx, id, req.Amount)
		})
		if err != nil {
			writeError(w, "DEPOSITS", err)
			return
		}

		log.Printf("💵 [DEPOSITS] %.2f received from %s", req.Amount, id)
		env.refreshAlerts()
		utils.Success(w, map[string]interface{}{"success": true, "location_id": id, "amount": req.Amount})
	}
}
