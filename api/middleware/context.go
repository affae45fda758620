package middleware

import (
	"accounts/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const contextClaimsKey = "auth_claims"

func SetClaims(c echo.Context, claims *service.Claims) {
	c.Set(contextClaimsKey, claims)
}

func ClaimsFromContext(c echo.Context) (*service.Claims, bool) {
	claims, ok := c.Get(contextClaimsKey).(*service.Claims)
	return claims, ok && claims != nil
}

func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	claims, ok := ClaimsFromContext(c)
	if !ok {
		return uuid.Nil, false
	}
	return claims.UserID, true
}
