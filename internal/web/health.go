package web

import (
	"net/http"
	"time"

	"github.com/geowarn/geowarn/internal/escalation"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthHandler serves the /healthz endpoint.
type HealthHandler struct {
	manager *escalation.Manager
}

func NewHealthHandler(manager *escalation.Manager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ok",
		"version":            version,
		"uptime_seconds":     int(time.Since(startTime).Seconds()),
		"active_escalations": h.manager.ActiveCount(),
	})
}
