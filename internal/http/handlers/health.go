package handlers

import (
	"net/http"
)

// Health is the liveness probe. It deliberately skips the database so a
// degraded store does not take the whole process out of rotation.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "service": "auralab-admin"})
}
