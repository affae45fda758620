package middleware

import (
	"errors"
	"net/http"

	"accounts/internal/service"

	"github.com/labstack/echo/v4"
)

// Authorizer turns an Authorization header into verified claims.
type Authorizer interface {
	Authorize(authorizationHeader string) (*service.Claims, error)
}

type AuthMiddleware struct {
	Auth Authorizer
}

// RequireAuth rejects requests without a valid bearer token. A missing header
// and a bad token are both 401 but carry different messages.
func (m AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.Auth == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Access Denied")
		}
		claims, err := m.Auth.Authorize(c.Request().Header.Get(echo.HeaderAuthorization))
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Token")
		case err != nil:
			return echo.NewHTTPError(http.StatusUnauthorized, "Access Denied")
		}
		SetClaims(c, claims)
		return next(c)
	}
}

// ClientIP makes the caller's address available to the service layer for
// security logging.
func ClientIP(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		c.SetRequest(req.WithContext(service.WithClientIP(req.Context(), c.RealIP())))
		return next(c)
	}
}
