package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-queue/internal/api/http/handlers"
	"github.com/spec-kit/service-queue/internal/auth"
	"github.com/spec-kit/service-queue/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Auth              *handlers.AuthHandler
	Requests          *handlers.RequestsHandler
	AssignmentChanges *handlers.AssignmentChangesHandler
	Notifications     *handlers.NotificationsHandler
	Admin             *handlers.AdminHandler
	AuthMiddleware    *auth.AuthMiddleware
	BlobDir           string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.BlobDir != "" {
		app.Static("/files", cfg.BlobDir)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Post("/auth/password/change", cfg.Auth.ChangePassword)

	protected.Post("/requests", cfg.Requests.Create)
	protected.Get("/requests", cfg.Requests.List)
	protected.Get("/requests/:id", cfg.Requests.Get)
	protected.Patch("/requests/:id", cfg.Requests.Update)
	protected.Post("/requests/:id/notes", cfg.Requests.AddNote)
	protected.Post("/requests/:id/attachments", cfg.Requests.AddAttachments)

	agency := protected.Group("", auth.RequireAgentSide())
	agency.Post("/requests/:id/assignment-changes", cfg.AssignmentChanges.Create)
	agency.Get("/requests/:id/assignment-changes", cfg.AssignmentChanges.ListForRequest)
	agency.Get("/agents", cfg.Admin.ListAgents)

	managers := protected.Group("", auth.RequireRole(domain.RoleAgentManager, domain.RoleSuperAdmin))
	managers.Get("/assignment-changes/pending", cfg.AssignmentChanges.ListPending)
	managers.Post("/assignment-changes/:id/review", cfg.AssignmentChanges.Review)

	protected.Get("/notifications", cfg.Notifications.List)
	protected.Post("/notifications/:id/read", cfg.Notifications.MarkRead)
	protected.Post("/notifications/read-all", cfg.Notifications.MarkAllRead)
	protected.Get("/notifications/unread-count", cfg.Notifications.UnreadCount)
	protected.Get("/activity-logs", cfg.Notifications.ListActivity)

	admin := protected.Group("/admin", auth.RequireRole(domain.RoleSuperAdmin))
	admin.Post("/users", cfg.Admin.CreateUser)
	admin.Patch("/users/:id", cfg.Admin.UpdateUser)
	admin.Post("/companies", cfg.Admin.CreateCompany)
	admin.Patch("/companies/:id", cfg.Admin.UpdateCompany)
	admin.Get("/companies", cfg.Admin.ListCompanies)
}
