package handlers

import (
	"net/http"
	"strconv"

	"github.com/craysiii/SSHttp/internal/database"
)

// HealthCheck handles GET /health. The audit database is reported but does
// not fail the check; the broker works without it.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "disabled"
	if database.DB != nil {
		dbStatus = "disconnected"
		if sqlDB, err := database.DB.DB(); err == nil {
			if err := sqlDB.Ping(); err == nil {
				dbStatus = "connected"
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"sessions": strconv.Itoa(len(Sessions.Sessions())),
		"audit":    dbStatus,
	})
}
