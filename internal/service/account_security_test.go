package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"accounts/internal/dto"
	"accounts/internal/entity"
	"accounts/internal/validation"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerUser(t *testing.T, env *testEnv, username string, password string) *entity.User {
	t.Helper()
	user, err := env.auth.Register(context.Background(), dto.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: password,
	})
	require.NoError(t, err)
	return user
}

func storedUser(t *testing.T, env *testEnv, user *entity.User) *entity.User {
	t.Helper()
	stored, err := env.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	return stored
}

func currentCode(t *testing.T, env *testEnv, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, env.clock.Now())
	require.NoError(t, err)
	return code
}

func TestSecurityTracker_LockoutAfterThreshold(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	registerUser(t, env, "alice123", "Abcdef1!")

	for i := 0; i < 3; i++ {
		_, err := env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Wrong-pass1"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Abcdef1!"})
	assert.ErrorIs(t, err, ErrAccountLocked, "correct password is refused while locked")

	user, err := env.users.FindByUsername(ctx, "alice123")
	require.NoError(t, err)
	assert.True(t, user.AccountLocked)
	require.NotNil(t, user.AccountLockedUntil)
	assert.Equal(t, env.clock.Now().Add(15*time.Minute), *user.AccountLockedUntil)
	assert.Contains(t, env.logs.Actions(), entity.AccountLocked)
}

func TestSecurityTracker_FailedLoginsFromStaleCopiesAllCount(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	user := registerUser(t, env, "alice123", "Abcdef1!")

	copies := []*entity.User{storedUser(t, env, user), storedUser(t, env, user), storedUser(t, env, user)}
	for _, stale := range copies {
		require.NoError(t, env.tracker.RecordFailedLogin(ctx, stale, "password"))
	}

	stored := storedUser(t, env, user)
	assert.Equal(t, 3, stored.FailedLoginAttempts)
	assert.True(t, stored.AccountLocked)
	assert.Equal(t, 3, copies[2].FailedLoginAttempts)
	assert.True(t, copies[2].AccountLocked)
	assert.False(t, copies[0].AccountLocked)
}

func TestSecurityTracker_ConcurrentFailedLoginsLock(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	registerUser(t, env, "alice123", "Abcdef1!")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Wrong-pass1"})
		}()
	}
	wg.Wait()

	user, err := env.users.FindByUsername(ctx, "alice123")
	require.NoError(t, err)
	assert.True(t, user.AccountLocked)
	assert.GreaterOrEqual(t, user.FailedLoginAttempts, 3)

	_, err = env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Abcdef1!"})
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestSecurityTracker_ExpiredLockIsCleared(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	registerUser(t, env, "alice123", "Abcdef1!")

	for i := 0; i < 3; i++ {
		_, _ = env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Wrong-pass1"})
	}
	env.clock.Advance(16 * time.Minute)

	result, err := env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Abcdef1!"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	user, err := env.users.FindByUsername(ctx, "alice123")
	require.NoError(t, err)
	assert.False(t, user.AccountLocked)
	assert.Nil(t, user.AccountLockedUntil)
	assert.Zero(t, user.FailedLoginAttempts)
	require.NotNil(t, user.LastLogin)
	assert.Equal(t, env.clock.Now(), *user.LastLogin)
}

func TestSecurityTracker_SuccessResetsFailureCount(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	registerUser(t, env, "alice123", "Abcdef1!")

	for i := 0; i < 2; i++ {
		_, _ = env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Wrong-pass1"})
	}
	_, err := env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Abcdef1!"})
	require.NoError(t, err)

	// Two more failures stay below the threshold again.
	for i := 0; i < 2; i++ {
		_, _ = env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Wrong-pass1"})
	}
	_, err = env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Abcdef1!"})
	assert.NoError(t, err)
}

func TestSecurityTracker_Unlock(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	user := registerUser(t, env, "alice123", "Abcdef1!")

	for i := 0; i < 3; i++ {
		_, _ = env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Wrong-pass1"})
	}
	require.NoError(t, env.auth.UnlockAccount(ctx, user.ID))

	_, err := env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Abcdef1!"})
	assert.NoError(t, err)
	assert.Contains(t, env.logs.Actions(), entity.AccountUnlocked)
}

func TestSecurityTracker_PasswordResetLifecycle(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	user := registerUser(t, env, "alice123", "Abcdef1!")

	require.NoError(t, env.auth.RequestPasswordReset(ctx, dto.PasswordForgotRequest{Email: "ALICE123@example.com"}))
	mail := env.mailer.last()
	require.NotEmpty(t, mail.token)
	assert.Equal(t, "alice123@example.com", mail.email)

	stored := storedUser(t, env, user)
	require.NotNil(t, stored.PasswordResetToken)
	assert.NotEqual(t, mail.token, *stored.PasswordResetToken, "only the digest is stored")

	err := env.auth.ResetPassword(ctx, dto.PasswordResetRequest{Token: mail.token, NewPassword: "Newpass1!"})
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Abcdef1!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Newpass1!"})
	assert.NoError(t, err)

	err = env.auth.ResetPassword(ctx, dto.PasswordResetRequest{Token: mail.token, NewPassword: "Another1!"})
	assert.ErrorIs(t, err, ErrInvalidToken, "token is single use")
}

func TestSecurityTracker_PasswordResetExpires(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	registerUser(t, env, "alice123", "Abcdef1!")

	require.NoError(t, env.auth.RequestPasswordReset(ctx, dto.PasswordForgotRequest{Email: "alice123@example.com"}))
	env.clock.Advance(time.Hour + time.Second)

	err := env.auth.ResetPassword(ctx, dto.PasswordResetRequest{Token: env.mailer.last().token, NewPassword: "Newpass1!"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSecurityTracker_PasswordResetUnknownEmail(t *testing.T) {
	env := newTestEnv(t, true)

	err := env.auth.RequestPasswordReset(context.Background(), dto.PasswordForgotRequest{Email: "nobody@example.com"})
	assert.NoError(t, err)
	assert.Empty(t, env.mailer.sent)
}

func TestSecurityTracker_PasswordResetLiftsLock(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	registerUser(t, env, "alice123", "Abcdef1!")

	for i := 0; i < 3; i++ {
		_, _ = env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Wrong-pass1"})
	}
	require.NoError(t, env.auth.RequestPasswordReset(ctx, dto.PasswordForgotRequest{Email: "alice123@example.com"}))
	require.NoError(t, env.auth.ResetPassword(ctx, dto.PasswordResetRequest{Token: env.mailer.last().token, NewPassword: "Newpass1!"}))

	_, err := env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Newpass1!"})
	assert.NoError(t, err)
}

func TestSecurityTracker_ChangePassword(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	user := registerUser(t, env, "alice123", "Abcdef1!")

	err := env.auth.ChangePassword(ctx, user.ID, dto.PasswordChangeRequest{CurrentPassword: "wrong", NewPassword: "Newpass1!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = env.auth.ChangePassword(ctx, user.ID, dto.PasswordChangeRequest{CurrentPassword: "Abcdef1!", NewPassword: "weak"})
	assert.ErrorIs(t, err, validation.ErrValidation)

	err = env.tracker.ChangePassword(ctx, user.ID, "Abcdef1!", "Newpass1!"+strings.Repeat("a", 70))
	assert.ErrorIs(t, err, validation.ErrValidation, "bcrypt input limit is a validation failure")

	require.NoError(t, env.auth.ChangePassword(ctx, user.ID, dto.PasswordChangeRequest{CurrentPassword: "Abcdef1!", NewPassword: "Newpass1!"}))
	_, err = env.auth.Login(ctx, dto.LoginRequest{Username: "alice123", Password: "Newpass1!"})
	assert.NoError(t, err)
	assert.Contains(t, env.logs.Actions(), entity.PasswordChanged)
}

func TestSecurityTracker_MFASetupAndEnable(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	user := registerUser(t, env, "alice123", "Abcdef1!")

	setup, err := env.auth.SetupMFA(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.OTPAuthURL, "otpauth://totp/")
	assert.Len(t, setup.RecoveryKeys, 4)

	stored := storedUser(t, env, user)
	assert.False(t, stored.MFAEnabled, "setup alone does not enable mfa")
	require.NotNil(t, stored.MFASecret)
	assert.Equal(t, setup.Secret, *stored.MFASecret)
	assert.Len(t, stored.RecoveryKeys, 4)

	err = env.auth.EnableMFA(ctx, user.ID, dto.MFACodeRequest{Code: "000000"})
	if err != nil {
		assert.ErrorIs(t, err, ErrInvalidMFACode)
	}

	require.NoError(t, env.auth.EnableMFA(ctx, user.ID, dto.MFACodeRequest{Code: currentCode(t, env, setup.Secret)}))
	assert.True(t, storedUser(t, env, user).MFAEnabled)
	assert.Contains(t, env.logs.Actions(), entity.MFAEnabled)
}

func TestSecurityTracker_EnableWithoutSetup(t *testing.T) {
	env := newTestEnv(t, true)
	user := registerUser(t, env, "alice123", "Abcdef1!")

	err := env.auth.EnableMFA(context.Background(), user.ID, dto.MFACodeRequest{Code: "123456"})
	assert.ErrorIs(t, err, ErrMFANotConfigured)
}

func TestSecurityTracker_DisableMFA(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	user := registerUser(t, env, "alice123", "Abcdef1!")

	err := env.auth.DisableMFA(ctx, user.ID, dto.MFADisableRequest{Code: "123456"})
	assert.ErrorIs(t, err, ErrMFANotConfigured)

	setup, err := env.auth.SetupMFA(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, env.auth.EnableMFA(ctx, user.ID, dto.MFACodeRequest{Code: currentCode(t, env, setup.Secret)}))

	err = env.auth.DisableMFA(ctx, user.ID, dto.MFADisableRequest{})
	assert.ErrorIs(t, err, validation.ErrValidation)

	require.NoError(t, env.auth.DisableMFA(ctx, user.ID, dto.MFADisableRequest{RecoveryKey: setup.RecoveryKeys[0]}))

	stored := storedUser(t, env, user)
	assert.False(t, stored.MFAEnabled)
	assert.Nil(t, stored.MFASecret)
	assert.Empty(t, stored.RecoveryKeys)
}

func TestSecurityTracker_RecoveryKeyAfterWrongCode(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	user := registerUser(t, env, "alice123", "Abcdef1!")

	setup, err := env.auth.SetupMFA(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, env.auth.EnableMFA(ctx, user.ID, dto.MFACodeRequest{Code: currentCode(t, env, setup.Secret)}))

	wrong := "12345x"

	err = env.tracker.VerifySecondFactor(ctx, storedUser(t, env, user), wrong, "")
	assert.ErrorIs(t, err, ErrInvalidMFACode)

	require.NoError(t, env.tracker.VerifySecondFactor(ctx, storedUser(t, env, user), wrong, setup.RecoveryKeys[0]))
	assert.Len(t, storedUser(t, env, user).RecoveryKeys, 3, "recovery key is consumed")
	assert.Contains(t, env.logs.Actions(), entity.MFAFailed)
	assert.Contains(t, env.logs.Actions(), entity.RecoveryKeyUsed)

	err = env.tracker.VerifySecondFactor(ctx, storedUser(t, env, user), wrong, setup.RecoveryKeys[0])
	assert.ErrorIs(t, err, ErrInvalidMFACode, "a consumed key is not accepted twice")
}

func TestSecurityTracker_RegenerateRecoveryKeys(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	user := registerUser(t, env, "alice123", "Abcdef1!")

	setup, err := env.auth.SetupMFA(ctx, user.ID)
	require.NoError(t, err)

	keys, err := env.auth.RegenerateRecoveryKeys(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, keys, 4)

	used, err := env.tracker.UseRecoveryKey(ctx, user.ID, setup.RecoveryKeys[0])
	require.NoError(t, err)
	assert.False(t, used, "previous batch is invalidated")

	used, err = env.tracker.UseRecoveryKey(ctx, user.ID, keys[0])
	require.NoError(t, err)
	assert.True(t, used)
	assert.Contains(t, env.logs.Actions(), entity.RecoveryKeyUsed)
}

func TestSecurityTracker_UnknownUser(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	missing := registerUser(t, env, "ghost123", "Abcdef1!")
	require.NoError(t, env.users.Delete(ctx, missing.ID))

	_, err := env.auth.SetupMFA(ctx, missing.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.auth.UnlockAccount(ctx, missing.ID), ErrNotFound)
}
