package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"bevops-backend/pkg/utils"
)

// DiagnosticLog is a log line shipped by the handheld scanner app
type DiagnosticLog struct {
	Timestamp   string                 `json:"timestamp"`
	Context     string                 `json:"context"`
	Level       string                 `json:"level"`
	Message     string                 `json:"message"`
	ContainerID string                 `json:"container_id,omitempty"`
	Data        map[string]interface{} `json:"data"`
	Platform    string                 `json:"platform"`
}

func levelPrefix(level string) string {
	switch strings.ToUpper(level) {
	case "ERROR":
		return "🔴"
	case "WARNING":
		return "🟡"
	case "INFO":
		return "🔵"
	}
	return "📱"
}

// ReceiveDiagnosticLog prints scanner diagnostics to the server log
// POST /api/logs/diagnostic
func ReceiveDiagnosticLog(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entry DiagnosticLog
		if err := utils.Decode(r, &entry); err != nil || entry.Message == "" {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Printf("%s SCANNER DIAGNOSTIC [%s] from %s", levelPrefix(entry.Level), entry.Level, actor(r))
		log.Printf("   Platform:  %s", entry.Platform)
		log.Printf("   Context:   %s", entry.Context)
		log.Printf("   Timestamp: %s", entry.Timestamp)
		if entry.ContainerID != "" {
			log.Printf("   Container: %s", entry.ContainerID)
		}
		log.Printf("   Message:   %s", entry.Message)
		if len(entry.Data) > 0 {
			if raw, err := json.MarshalIndent(entry.Data, "      ", "  "); err == nil {
				log.Println("   Data:")
				log.Printf("      %s", raw)
			}
		}
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		utils.Success(w, map[string]string{"status": "received"})
	}
}

// GetSystemStatus reports database reachability and live websocket sessions
func GetSystemStatus(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbStatus := "ok"
		if err := env.DB.PingContext(r.Context()); err != nil {
			log.Printf("❌ [STATUS] Database ping failed: %v", err)
			dbStatus = "unreachable"
		}

		clients := 0
		if env.Hub != nil {
			clients = env.Hub.GetClientCount()
		}
		utils.Success(w, map[string]interface{}{
			"database":          dbStatus,
			"websocket_clients": clients,
			"time":              env.now(),
		})
	}
}
