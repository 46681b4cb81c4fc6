package handlers

import (
	"net/http"

	"bevops-backend/internal/alerts"
	"bevops-backend/internal/models"
	"bevops-backend/pkg/utils"
)

// GetAlerts recomputes alerts from current state. ?severity= and ?type= narrow the list.
func GetAlerts(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := env.currentAlerts(r.Context())
		if err != nil {
			writeError(w, "ALERTS", err)
			return
		}

		severity := models.AlertSeverity(r.URL.Query().Get("severity"))
		alertType := models.AlertType(r.URL.Query().Get("type"))
		if severity != "" || alertType != "" {
			filtered := make([]models.Alert, 0, len(list))
			for _, a := range list {
				if severity != "" && a.Severity != severity {
					continue
				}
				if alertType != "" && a.Type != alertType {
					continue
				}
				filtered = append(filtered, a)
			}
			list = filtered
		}

		utils.Success(w, map[string]interface{}{
			"alerts":  list,
			"summary": alerts.Summarize(list),
		})
	}
}
