package httpd

import (
	"net/http"
	"time"
)

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK

	database := true
	if err := h.reportService.Ping(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Database health check failed")
		database = false
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    status,
		"service":   "similarity-service",
		"database":  database,
		"engine":    h.scanService.EngineInfo(),
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	}
	if h.workerStats != nil {
		response["scan_worker"] = h.workerStats()
	}

	writeJSON(w, code, response)
}
