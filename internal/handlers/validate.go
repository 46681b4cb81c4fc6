package handlers

import (
	"net/http"
	"time"

	"bevops-backend/internal/metrics"
	"bevops-backend/internal/models"
	"bevops-backend/internal/validation"
	"bevops-backend/pkg/utils"
)

// These endpoints answer "would this be allowed" without touching state.
// They always reply 200 with the Result.

type moveCheckRequest struct {
	Container models.Container `json:"container"`
	From      models.Location  `json:"from"`
	To        models.Location  `json:"to"`
}

// ValidateMove checks a proposed drag of a container between zones
func ValidateMove(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveCheckRequest
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !req.To.Type.Valid() {
			utils.Error(w, http.StatusBadRequest, "to.type is required")
			return
		}

		result, _ := moveCheck(req.Container, req.From, req.To)
		utils.Success(w, result)
	}
}

// ValidateAllocation checks taking units out of stock
func ValidateAllocation(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Requested int  `json:"requested"`
			Available int  `json:"available"`
			Nominal   *int `json:"nominal,omitempty"`
		}
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		nominal := env.NominalStock
		if req.Nominal != nil {
			nominal = *req.Nominal
		}

		result := validation.ValidateInventoryAllocation(req.Requested, req.Available, nominal)
		metrics.ObserveValidation("allocation", result)
		utils.Success(w, result)
	}
}

// ValidatePallet checks adding units to a pallet
func ValidatePallet(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Current  int `json:"current"`
			Adding   int `json:"adding"`
			Capacity int `json:"capacity"`
		}
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		result := validation.ValidatePalletCapacity(req.Current, req.Adding, req.Capacity)
		metrics.ObserveValidation("pallet", result)
		utils.Success(w, result)
	}
}

// ValidateSchedule checks a delivery date and, if given, the expected return
func ValidateSchedule(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DeliveryDate       time.Time  `json:"delivery_date"`
			ExpectedReturnDate *time.Time `json:"expected_return_date,omitempty"`
		}
		if err := utils.Decode(r, &req); err != nil || req.DeliveryDate.IsZero() {
			utils.Error(w, http.StatusBadRequest, "delivery_date is required (RFC3339)")
			return
		}

		results := []validation.Result{validation.ValidateDeliveryDate(req.DeliveryDate, env.now())}
		if req.ExpectedReturnDate != nil {
			results = append(results, validation.ValidateReturnDate(req.DeliveryDate, *req.ExpectedReturnDate))
		}
		result := validation.Combine(results...)
		metrics.ObserveValidation("schedule", result)
		utils.Success(w, result)
	}
}
