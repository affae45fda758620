package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the minimum work factor accepted for stored hashes.
const DefaultBcryptCost = 10

type AuthConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	ResetTokenTTL    time.Duration
	RecoveryKeyCount int
	MFAIssuer        string
}

type EmailSender interface {
	SendPasswordResetEmail(ctx context.Context, email string, token string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash string, password string) bool
}

type MFAProvider interface {
	GenerateSecret(accountName string) (secret string, otpauthURL string, err error)
	ValidateCode(secret string, code string) bool
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

type BcryptPasswordHasher struct {
	Cost int
}

func (h BcryptPasswordHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (h BcryptPasswordHasher) Verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (c AuthConfig) lockoutThreshold() int {
	if c.LockoutThreshold > 0 {
		return c.LockoutThreshold
	}
	return 5
}

func (c AuthConfig) lockoutDuration() time.Duration {
	if c.LockoutDuration > 0 {
		return c.LockoutDuration
	}
	return 15 * time.Minute
}

func (c AuthConfig) resetTokenTTL() time.Duration {
	if c.ResetTokenTTL > 0 {
		return c.ResetTokenTTL
	}
	return time.Hour
}

func (c AuthConfig) recoveryKeyCount() int {
	if c.RecoveryKeyCount > 0 {
		return c.RecoveryKeyCount
	}
	return 10
}
