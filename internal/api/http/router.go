package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/deskops/itsm-service/internal/api/http/handlers"
	"github.com/deskops/itsm-service/internal/auth"
	"github.com/deskops/itsm-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Workload       *handlers.WorkloadHandler
	Tickets        *handlers.TicketsHandler
	Settings       *handlers.SettingsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	staff := api.Group("", auth.RequireStaff())
	staff.Get("/workload", cfg.Workload.Snapshot)
	staff.Post("/workload/next", cfg.Workload.Next)

	staff.Post("/tickets/:category", cfg.Tickets.CreateTicket)
	staff.Get("/tickets/:category/:id", cfg.Tickets.GetTicket)
	staff.Patch("/tickets/:category/:id/status", cfg.Tickets.UpdateStatus)
	staff.Patch("/tickets/:category/:id/assignee", cfg.Tickets.AssignTicket)

	admin := api.Group("", auth.RequireAdmin())
	settings := admin.Group("/settings")
	settings.Get("/notifications", cfg.Settings.GetSettings)
	settings.Get("/resolve/:type", cfg.Settings.Resolve)
	settings.Post("/email-accounts", cfg.Settings.CreateAccount)
	settings.Put("/email-accounts/:id", cfg.Settings.UpdateAccount)
	settings.Delete("/email-accounts/:id", cfg.Settings.DeleteAccount)
	settings.Post("/email-accounts/:id/default", cfg.Settings.SetDefaultAccount)
	settings.Put("/mappings/:type", cfg.Settings.UpsertMapping)
	settings.Delete("/mappings/:type", cfg.Settings.DeleteMapping)
	settings.Post("/slack-channels", cfg.Settings.CreateSlackChannel)
	settings.Delete("/slack-channels/:id", cfg.Settings.DeleteSlackChannel)
	settings.Post("/slack-channels/:id/default", cfg.Settings.SetDefaultSlackChannel)
	settings.Put("/slack-mappings/:type", cfg.Settings.UpsertSlackMapping)

	admin.Post("/notifications/:type", cfg.Notifications.PostNotice)
}
