package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/loghunter/internal/api/middleware"
	"github.com/kiranshivaraju/loghunter/internal/api/handler"
	"github.com/kiranshivaraju/loghunter/internal/rbac"
)

// Dependencies holds every handler and middleware piece the router wires
// together. One field per route group's backing handler.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	Health      *handler.HealthHandler
	Incidents   *handler.IncidentHandler
	Timeline    *handler.TimelineHandler
	Attachments *handler.AttachmentHandler
	Stream      *handler.StreamHandler
	Flags       *handler.FlagHandler
	Rules       *handler.RuleHandler
	Audit       *handler.AuditHandler
	SavedViews  *handler.SavedViewHandler
}

// NewRouter builds the Chi router with the full middleware stack and route
// tree described by the external interface contract.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/health", deps.Health.Check)

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.RequireSession)
		r.Use(deps.RateLimit.Limit)
		r.Use(mw.CSRF)

		r.Route("/api/incidents", func(r chi.Router) {
			r.Get("/", deps.Incidents.List)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequirePermission(rbac.PermissionWrite))
				r.Post("/", deps.Incidents.Create)
				r.Post("/bulk-action", deps.Incidents.BulkAction)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deps.Incidents.Get)
				r.Get("/stream", deps.Stream.Serve)

				r.Group(func(r chi.Router) {
					r.Use(mw.RequirePermission(rbac.PermissionWrite))
					r.Patch("/", deps.Incidents.ChangeStatus)
					r.Post("/assign", deps.Incidents.Assign)
					r.Post("/timeline", deps.Timeline.Add)
					r.Post("/attachments", deps.Attachments.Upload)
					r.Delete("/attachments/{aid}", deps.Attachments.Delete)
				})
			})
		})

		r.Route("/api/feature-flags", func(r chi.Router) {
			r.Get("/", deps.Flags.List)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequirePermission(rbac.PermissionWrite))
				r.Post("/", deps.Flags.Create)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deps.Flags.Get)
				r.Post("/evaluate", deps.Flags.Evaluate)
				r.Get("/rules", deps.Rules.List)

				r.Group(func(r chi.Router) {
					r.Use(mw.RequirePermission(rbac.PermissionWrite))
					r.Patch("/", deps.Flags.Update)
					r.Delete("/", deps.Flags.Delete)
					r.Post("/rules", deps.Rules.Add)
					r.Delete("/rules/{rid}", deps.Rules.Delete)
				})
			})
		})

		r.Route("/api/tenants/{tenant}/saved-views", func(r chi.Router) {
			r.Get("/", deps.SavedViews.List)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequirePermission(rbac.PermissionWrite))
				r.Post("/", deps.SavedViews.Create)
			})

			// Deletion is ownership-gated, not role-gated: any authenticated
			// role may delete a saved view it owns (PostgresStore.DeleteSavedView
			// enforces tc.UserID == view.UserID). No RequirePermission here.
			r.Delete("/{vid}", deps.SavedViews.Delete)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequirePermission(rbac.PermissionViewAudit))
			r.Get("/api/audit-logs", deps.Audit.List)
		})
	})

	return r
}
