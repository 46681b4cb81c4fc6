package handlers

import (
	"net/http"
	"strconv"

	"bevops-backend/internal/database"
	"bevops-backend/pkg/utils"
)

// GetInventoryBreakdown counts live containers by status, type, product or location
func GetInventoryBreakdown(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupBy := r.URL.Query().Get("group_by")
		if groupBy == "" {
			groupBy = "status"
		}
		if !database.ValidBreakdown(groupBy) {
			utils.Error(w, http.StatusBadRequest, "Invalid group_by. Use: status, type, product, location")
			return
		}

		groups, err := database.InventoryBreakdown(r.Context(), env.DB, groupBy)
		if err != nil {
			writeError(w, "ANALYTICS", err)
			return
		}

		total := 0
		for _, g := range groups {
			total += g.Count
		}
		utils.Success(w, map[string]interface{}{
			"group_by": groupBy,
			"total":    total,
			"groups":   groups,
		})
	}
}

// GetTopCustomers ranks customers by containers held, overdue containers or deposits owed
func GetTopCustomers(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metric := r.URL.Query().Get("metric")
		if metric == "" {
			metric = "held"
		}
		if !database.ValidExposureMetric(metric) {
			utils.Error(w, http.StatusBadRequest, "Invalid metric. Use: held, overdue, owed")
			return
		}

		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
				limit = parsed
			}
		}

		customers, err := database.TopCustomers(r.Context(), env.DB, metric, limit, env.now())
		if err != nil {
			writeError(w, "ANALYTICS", err)
			return
		}
		utils.Success(w, map[string]interface{}{
			"metric":    metric,
			"limit":     limit,
			"customers": customers,
		})
	}
}
