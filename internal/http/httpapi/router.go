package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fraolBatole/AuraLab/internal/http/handlers"
	"github.com/fraolBatole/AuraLab/internal/infra"
	"github.com/fraolBatole/AuraLab/internal/middleware"
)

// NewRouter builds the admin API surface. Everything except the health probe
// sits behind the bearer token.
func NewRouter(app *handlers.App, adminToken string, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(middleware.AdminToken(adminToken))
		r.Get("/accounts", app.ListAccounts)
		r.Post("/accounts/reset", app.ResetAllCredits)
		r.Post("/accounts/{id}/reset", app.ResetAccountCredits)
		r.Delete("/accounts/{id}", app.DeleteAccount)
		r.Get("/stats", app.StatsSummary)
	})

	return r
}
