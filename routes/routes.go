package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/club-authz/app"
	"github.com/upb/club-authz/handlers"
	"github.com/upb/club-authz/middleware"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(deps.Config.Server.RequestTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)

		// What the caller may do
		r.Route("/me", func(r chi.Router) {
			r.Get("/", deps.PermissionHandler.HandleMe)
			r.Get("/permissions", deps.PermissionHandler.HandleCheck)
			r.Get("/capabilities", deps.PermissionHandler.HandleCapabilities)
		})

		// Forward-auth gate for the portal's content routes: 204 when the caller
		// holds the capability in the unit named by club_id or board_id
		r.Route("/authorize", func(r chi.Router) {
			for _, capability := range models.AllCapabilities() {
				r.With(deps.PermissionMiddleware.RequireCapability(capability, middleware.ScopeFromQuery)).
					Get("/"+string(capability), handlers.HandleAuthorized)
			}
		})

		// Clubs and boards. Writes are gated by the services.
		r.Route("/units", func(r chi.Router) {
			r.Get("/", deps.UnitHandler.HandleListUnits)
			r.Post("/", deps.UnitHandler.HandleCreateUnit)
			r.Get("/{id}", deps.UnitHandler.HandleGetUnit)
			r.Patch("/{id}", deps.UnitHandler.HandleRenameUnit)
		})

		r.Route("/privilege-types", func(r chi.Router) {
			r.Get("/", deps.PrivilegeTypeHandler.HandleListPrivilegeTypes)
			r.Post("/", deps.PrivilegeTypeHandler.HandleCreatePrivilegeType)
			r.Get("/{id}", deps.PrivilegeTypeHandler.HandleGetPrivilegeType)
			r.Put("/{id}", deps.PrivilegeTypeHandler.HandleUpdatePrivilegeType)
			r.Delete("/{id}", deps.PrivilegeTypeHandler.HandleDeletePrivilegeType)
		})

		r.Route("/por", func(r chi.Router) {
			r.Get("/", deps.PORHandler.HandleListPOR)
			r.Post("/", deps.PORHandler.HandleAssignPOR)
			r.Get("/{id}", deps.PORHandler.HandleGetPOR)
			r.Put("/{id}", deps.PORHandler.HandleEditPOR)
			r.Post("/{id}/revoke", deps.PORHandler.HandleRevokePOR)
			r.Delete("/{id}", deps.PORHandler.HandleDeletePOR)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", deps.UserHandler.HandleListUsers)
			r.Get("/{id}", deps.UserHandler.HandleGetUser)
			r.Put("/{id}/role", deps.UserHandler.HandleAssignRole)
			r.Delete("/{id}/role", deps.UserHandler.HandleRemoveAdmin)
			r.Post("/{id}/ban", deps.UserHandler.HandleBan)
			r.Post("/{id}/unban", deps.UserHandler.HandleUnban)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
