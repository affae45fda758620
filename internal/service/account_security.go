package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"accounts/internal/entity"
	"accounts/internal/repository"
	"accounts/internal/utils"
	"accounts/internal/validation"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SecurityTracker keeps the per-account security bookkeeping: failed-login
// counting and lockout, password-reset tokens, MFA secrets and recovery keys.
type SecurityTracker struct {
	users       repository.UserRepository
	credentials *CredentialStore
	mfa         MFAProvider
	audit       SecurityAudit
	clock       Clock
	config      AuthConfig
}

type MFASetup struct {
	Secret       string
	OTPAuthURL   string
	RecoveryKeys []string
}

func NewSecurityTracker(
	users repository.UserRepository,
	credentials *CredentialStore,
	mfa MFAProvider,
	audit SecurityAudit,
	clock Clock,
	config AuthConfig,
) *SecurityTracker {
	return &SecurityTracker{
		users:       users,
		credentials: credentials,
		mfa:         mfa,
		audit:       audit,
		clock:       clock,
		config:      config,
	}
}

// CheckLock rejects a login while the lockout window is open and clears a
// lock whose window has passed.
func (t *SecurityTracker) CheckLock(ctx context.Context, user *entity.User) error {
	now := t.now()
	if user.IsLocked(now) {
		return ErrAccountLocked
	}
	if !user.AccountLocked {
		return nil
	}
	user.AccountLocked = false
	user.AccountLockedUntil = nil
	user.FailedLoginAttempts = 0
	err := t.users.UpdateFields(ctx, user.ID, map[string]any{
		"account_locked":        false,
		"account_locked_until":  nil,
		"failed_login_attempts": 0,
	})
	if err != nil {
		return fmt.Errorf("clear expired lock: %w", err)
	}
	return nil
}

// RecordFailedLogin increments the stored failure counter and locks the
// account once it reaches the configured threshold. user is refreshed from
// the stored counter, so callers holding stale copies still count.
func (t *SecurityTracker) RecordFailedLogin(ctx context.Context, user *entity.User, reason string) error {
	until := t.now().Add(t.config.lockoutDuration())
	attempts, locked, err := t.users.RecordFailedLogin(ctx, user.ID, t.config.lockoutThreshold(), until)
	if err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}
	if attempts == 0 {
		// Deleted between lookup and update.
		return nil
	}
	user.FailedLoginAttempts = attempts
	if locked {
		user.AccountLocked = true
		user.AccountLockedUntil = &until
	}

	t.audit.record(ctx, &user.ID, entity.LoginFailed, map[string]any{
		"reason":   reason,
		"attempts": attempts,
	})
	if locked {
		t.audit.record(ctx, &user.ID, entity.AccountLocked, map[string]any{
			"until": until,
		})
	}
	return nil
}

func (t *SecurityTracker) RecordSuccessfulLogin(ctx context.Context, user *entity.User) error {
	now := t.now()
	user.FailedLoginAttempts = 0
	user.LastLogin = &now
	err := t.users.UpdateFields(ctx, user.ID, map[string]any{
		"failed_login_attempts": 0,
		"last_login":            now,
	})
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

func (t *SecurityTracker) Unlock(ctx context.Context, userID uuid.UUID) error {
	user, err := t.findUser(ctx, userID)
	if err != nil {
		return err
	}
	err = t.users.UpdateFields(ctx, user.ID, map[string]any{
		"account_locked":        false,
		"account_locked_until":  nil,
		"failed_login_attempts": 0,
	})
	if err != nil {
		return fmt.Errorf("unlock account: %w", err)
	}
	t.audit.record(ctx, &user.ID, entity.AccountUnlocked, nil)
	return nil
}

// CreatePasswordResetToken stores only the token digest and returns the
// plaintext once, for out-of-band delivery.
func (t *SecurityTracker) CreatePasswordResetToken(ctx context.Context, user *entity.User) (string, error) {
	rawToken, err := utils.GenerateRandomToken(32)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	digest := utils.HashToken(rawToken)
	expiresAt := t.now().Add(t.config.resetTokenTTL())

	err = t.users.UpdateFields(ctx, user.ID, map[string]any{
		"password_reset_token":   digest,
		"password_reset_expires": expiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	user.PasswordResetToken = &digest
	user.PasswordResetExpires = &expiresAt

	t.audit.record(ctx, &user.ID, entity.PasswordResetIssued, nil)
	return rawToken, nil
}

// ResetPassword consumes a reset token and lifts any lockout.
func (t *SecurityTracker) ResetPassword(ctx context.Context, token string, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidToken
	}
	if !validation.StrongPassword(newPassword) {
		return validation.FieldError("newPassword", "newPassword does not meet the password policy")
	}

	user, err := t.users.FindByResetToken(ctx, utils.HashToken(token), t.now())
	if err != nil {
		return fmt.Errorf("find reset token: %w", err)
	}
	if user == nil {
		return ErrInvalidToken
	}

	hash, err := t.credentials.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = t.users.UpdateFields(ctx, user.ID, map[string]any{
		"password_hash":          hash,
		"password_reset_token":   nil,
		"password_reset_expires": nil,
		"account_locked":         false,
		"account_locked_until":   nil,
		"failed_login_attempts":  0,
	})
	if err != nil {
		return fmt.Errorf("store password: %w", err)
	}

	t.audit.record(ctx, &user.ID, entity.PasswordReset, nil)
	return nil
}

func (t *SecurityTracker) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword string, newPassword string) error {
	if !validation.StrongPassword(newPassword) {
		return validation.FieldError("newPassword", "newPassword does not meet the password policy")
	}
	user, err := t.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if !t.credentials.Verify(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	hash, err := t.credentials.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := t.users.UpdateFields(ctx, user.ID, map[string]any{"password_hash": hash}); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	t.audit.record(ctx, &user.ID, entity.PasswordChanged, nil)
	return nil
}

// GenerateMFASecret issues and stores a new TOTP secret. MFA stays disabled
// until a code generated from the secret is confirmed.
func (t *SecurityTracker) GenerateMFASecret(ctx context.Context, user *entity.User) (string, string, error) {
	if t.mfa == nil {
		return "", "", ErrMFANotConfigured
	}
	secret, otpauthURL, err := t.mfa.GenerateSecret(user.Username)
	if err != nil {
		return "", "", fmt.Errorf("generate mfa secret: %w", err)
	}
	err = t.users.UpdateFields(ctx, user.ID, map[string]any{
		"mfa_secret":  secret,
		"mfa_enabled": false,
	})
	if err != nil {
		return "", "", fmt.Errorf("store mfa secret: %w", err)
	}
	user.MFASecret = &secret
	user.MFAEnabled = false
	return secret, otpauthURL, nil
}

func (t *SecurityTracker) SetupMFA(ctx context.Context, userID uuid.UUID) (*MFASetup, error) {
	user, err := t.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	secret, otpauthURL, err := t.GenerateMFASecret(ctx, user)
	if err != nil {
		return nil, err
	}
	keys, err := t.replaceRecoveryKeys(ctx, user)
	if err != nil {
		return nil, err
	}
	return &MFASetup{Secret: secret, OTPAuthURL: otpauthURL, RecoveryKeys: keys}, nil
}

func (t *SecurityTracker) EnableMFA(ctx context.Context, userID uuid.UUID, code string) error {
	if t.mfa == nil {
		return ErrMFANotConfigured
	}
	user, err := t.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.MFASecret == nil {
		return ErrMFANotConfigured
	}
	if !t.mfa.ValidateCode(*user.MFASecret, code) {
		t.audit.record(ctx, &user.ID, entity.MFAFailed, map[string]any{"stage": "enable"})
		return ErrInvalidMFACode
	}
	if err := t.users.UpdateFields(ctx, user.ID, map[string]any{"mfa_enabled": true}); err != nil {
		return fmt.Errorf("enable mfa: %w", err)
	}
	t.audit.record(ctx, &user.ID, entity.MFAEnabled, nil)
	return nil
}

// DisableMFA requires a current second factor and wipes the secret and
// every remaining recovery key.
func (t *SecurityTracker) DisableMFA(ctx context.Context, userID uuid.UUID, code string, recoveryKey string) error {
	user, err := t.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.MFAEnabled {
		return ErrMFANotConfigured
	}
	if err := t.VerifySecondFactor(ctx, user, code, recoveryKey); err != nil {
		return err
	}
	err = t.users.UpdateFields(ctx, user.ID, map[string]any{
		"mfa_enabled":   false,
		"mfa_secret":    nil,
		"recovery_keys": datatypes.JSONSlice[string]{},
	})
	if err != nil {
		return fmt.Errorf("disable mfa: %w", err)
	}
	t.audit.record(ctx, &user.ID, entity.MFADisabled, nil)
	return nil
}

// VerifySecondFactor accepts a TOTP code or, when the code is missing or
// wrong, a recovery key, which is consumed on success.
func (t *SecurityTracker) VerifySecondFactor(ctx context.Context, user *entity.User, code string, recoveryKey string) error {
	code = strings.TrimSpace(code)
	recoveryKey = strings.TrimSpace(recoveryKey)
	if code == "" && recoveryKey == "" {
		return ErrMFARequired
	}
	if code != "" {
		if t.mfa != nil && user.MFASecret != nil && t.mfa.ValidateCode(*user.MFASecret, code) {
			return nil
		}
		t.audit.record(ctx, &user.ID, entity.MFAFailed, map[string]any{"method": "totp"})
		if recoveryKey == "" {
			return ErrInvalidMFACode
		}
	}
	used, err := t.UseRecoveryKey(ctx, user.ID, recoveryKey)
	if err != nil {
		return err
	}
	if !used {
		t.audit.record(ctx, &user.ID, entity.MFAFailed, map[string]any{"method": "recovery_key"})
		return ErrInvalidMFACode
	}
	return nil
}

func (t *SecurityTracker) RegenerateRecoveryKeys(ctx context.Context, userID uuid.UUID) ([]string, error) {
	user, err := t.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return t.replaceRecoveryKeys(ctx, user)
}

// UseRecoveryKey consumes key; it reports false when no stored key matches,
// including one already used.
func (t *SecurityTracker) UseRecoveryKey(ctx context.Context, userID uuid.UUID, key string) (bool, error) {
	used, err := t.credentials.ConsumeRecoveryKey(ctx, t.users, userID, key)
	if err != nil {
		return false, fmt.Errorf("consume recovery key: %w", err)
	}
	if used {
		t.audit.record(ctx, &userID, entity.RecoveryKeyUsed, nil)
	}
	return used, nil
}

func (t *SecurityTracker) replaceRecoveryKeys(ctx context.Context, user *entity.User) ([]string, error) {
	keys, hashes, err := t.credentials.NewRecoveryKeys()
	if err != nil {
		return nil, err
	}
	stored := datatypes.JSONSlice[string](hashes)
	if err := t.users.UpdateFields(ctx, user.ID, map[string]any{"recovery_keys": stored}); err != nil {
		return nil, fmt.Errorf("store recovery keys: %w", err)
	}
	user.RecoveryKeys = stored
	t.audit.record(ctx, &user.ID, entity.RecoveryKeysIssued, map[string]any{"count": len(keys)})
	return keys, nil
}

func (t *SecurityTracker) findUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := t.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (t *SecurityTracker) now() time.Time {
	if t.clock == nil {
		return time.Now()
	}
	return t.clock.Now()
}
