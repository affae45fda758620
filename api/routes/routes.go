package routes

import (
	"time"

	"accounts/api/handler"
	"accounts/api/middleware"
	"accounts/internal/entity"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Auth           *handler.AuthHandler
	Profile        *handler.ProfileHandler
	Admin          *handler.AdminHandler
	Health         *handler.HealthHandler
	AuthMiddleware middleware.AuthMiddleware
	Permissions    middleware.PermissionChecker
	AuthRate       *middleware.RateLimiter
	LoginRate      *middleware.RateLimiter
}

func NewRouter(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	profileHandler *handler.ProfileHandler,
	adminHandler *handler.AdminHandler,
	healthHandler *handler.HealthHandler,
	authMiddleware middleware.AuthMiddleware,
	permissions middleware.PermissionChecker,
) *Router {
	return &Router{
		Echo:           e,
		Auth:           authHandler,
		Profile:        profileHandler,
		Admin:          adminHandler,
		Health:         healthHandler,
		AuthMiddleware: authMiddleware,
		Permissions:    permissions,
		AuthRate:       middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
		LoginRate:      middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
	}
}

// RegisterRoutes defaults the IP extractor to the peer address, so rate
// limits and security events ignore client-supplied forwarding headers.
// Deployments behind a proxy set Echo.IPExtractor before calling it.
func (r *Router) RegisterRoutes() {
	e := r.Echo
	if e.IPExtractor == nil {
		e.IPExtractor = echo.ExtractIPDirect()
	}
	e.Use(middleware.ClientIP)

	requireAuth := r.AuthMiddleware.RequireAuth
	requireAdmin := middleware.RequirePermission(r.Permissions, entity.PermissionAdmin)

	e.GET("/health", r.Health.Health)

	e.POST("/auth/register", r.Auth.Register, r.AuthRate.Middleware())
	e.POST("/auth/login", r.Auth.Login, r.LoginRate.Middleware())
	e.POST("/auth/password/forgot", r.Auth.PasswordForgot, r.LoginRate.Middleware())
	e.POST("/auth/password/reset", r.Auth.PasswordReset, r.AuthRate.Middleware())
	e.POST("/auth/password/change", r.Auth.PasswordChange, requireAuth)
	e.POST("/auth/mfa/setup", r.Auth.SetupMFA, requireAuth)
	e.POST("/auth/mfa/enable", r.Auth.EnableMFA, requireAuth)
	e.POST("/auth/mfa/disable", r.Auth.DisableMFA, requireAuth)
	e.POST("/auth/mfa/recovery-keys", r.Auth.RegenerateRecoveryKeys, requireAuth)

	profile := e.Group("/profile", requireAuth)
	profile.GET("/me", r.Profile.Me)
	profile.PUT("/me", r.Profile.UpdateMe)
	profile.DELETE("/me", r.Profile.DeleteMe)
	profile.GET("/:id", r.Profile.GetByID, requireAdmin)

	admin := e.Group("/admin", requireAuth, requireAdmin)
	admin.GET("/roles", r.Admin.ListRoles)
	admin.POST("/users/:id/unlock", r.Admin.UnlockUser)
	admin.GET("/users/:id/security-log", r.Admin.SecurityLog, middleware.RequireRole(entity.RoleAdmin))
}
