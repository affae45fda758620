package service

import (
	"strings"
	"time"

	"accounts/internal/utils"

	"github.com/google/uuid"
)

// AccessTokenTTL is the fixed lifetime of every issued token.
const AccessTokenTTL = time.Hour

type Claims struct {
	UserID    uuid.UUID
	Username  string
	Roles     []string
	ExpiresAt time.Time
}

func (c *Claims) HasRole(name string) bool {
	for _, role := range c.Roles {
		if role == name {
			return true
		}
	}
	return false
}

// TokenService issues and verifies stateless bearer tokens. Nothing is
// stored server-side; a token stays valid until it expires.
type TokenService struct {
	Manager *utils.JWTManager
}

func NewTokenService(manager *utils.JWTManager) *TokenService {
	return &TokenService{Manager: manager}
}

func (t *TokenService) Issue(userID uuid.UUID, username string, roles []string) (string, time.Duration, error) {
	if t.Manager == nil {
		return "", 0, ErrInvalidToken
	}
	return t.Manager.IssueAccessToken(userID.String(), username, roles)
}

func (t *TokenService) Verify(token string) (*Claims, error) {
	if t.Manager == nil || strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := t.Manager.ParseAccessToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(parsed.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims := &Claims{
		UserID:   userID,
		Username: parsed.Username,
		Roles:    parsed.Roles,
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value of the
// form "Bearer <token>". The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
