package middleware

import (
	"context"
	"errors"
	"net/http"

	"accounts/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PermissionChecker resolves the caller's current permissions.
type PermissionChecker interface {
	RequirePermission(ctx context.Context, userID uuid.UUID, permission string) error
}

// RequireRole checks the role names carried in the token. Use
// RequirePermission where a role change must take effect before the token
// expires.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access Denied")
			}
			if !claims.HasRole(role) {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

func RequirePermission(checker PermissionChecker, permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := UserIDFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access Denied")
			}
			err := checker.RequirePermission(c.Request().Context(), userID, permission)
			switch {
			case err == nil:
				return next(c)
			case errors.Is(err, service.ErrForbidden):
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			default:
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
			}
		}
	}
}
