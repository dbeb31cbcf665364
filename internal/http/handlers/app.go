package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fraolBatole/AuraLab/internal/infra"
)

// App carries the dependencies shared by the admin API handlers.
type App struct {
	SQL    infra.SQLExecutor
	Logger infra.Logger
}

func NewApp(sql infra.SQLExecutor, logger infra.Logger) *App {
	return &App{SQL: sql, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}
