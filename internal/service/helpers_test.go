package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"accounts/internal/repository/repotest"
	"accounts/internal/utils"
	"accounts/internal/validation"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	email string
	token string
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeEmailSender) SendPasswordResetEmail(_ context.Context, email string, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{email: email, token: token})
	return nil
}

func (f *fakeEmailSender) last() sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMail{}
	}
	return f.sent[len(f.sent)-1]
}

type testEnv struct {
	users    *repotest.UserStore
	roles    *repotest.RoleStore
	logs     *repotest.SecurityLogStore
	clock    *fakeClock
	mailer   *fakeEmailSender
	totp     *TOTPProvider
	graph    *RoleGraph
	creds    *CredentialStore
	tokens   *TokenService
	tracker  *SecurityTracker
	auth     *AuthService
	profiles *ProfileService
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestEnv(t *testing.T, seed bool) *testEnv {
	t.Helper()

	env := &testEnv{
		users:  repotest.NewUserStore(),
		roles:  repotest.NewRoleStore(),
		logs:   repotest.NewSecurityLogStore(),
		clock:  &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		mailer: &fakeEmailSender{},
	}
	env.totp = NewTOTPProvider("Accounts")
	env.totp.Now = env.clock.Now

	config := AuthConfig{
		LockoutThreshold: 3,
		LockoutDuration:  15 * time.Minute,
		ResetTokenTTL:    time.Hour,
		RecoveryKeyCount: 4,
	}
	logger := quietLogger()
	audit := NewSecurityAudit(env.logs, logger)

	env.graph = NewRoleGraph(env.roles)
	env.creds = NewCredentialStore(BcryptPasswordHasher{Cost: bcrypt.MinCost}, config.RecoveryKeyCount)
	env.tokens = NewTokenService(&utils.JWTManager{
		Secret:         []byte("test-secret"),
		Issuer:         "accounts-test",
		AccessTokenTTL: AccessTokenTTL,
		Now:            env.clock.Now,
	})
	env.tracker = NewSecurityTracker(env.users, env.creds, env.totp, audit, env.clock, config)

	auth, err := NewAuthService(env.users, env.graph, env.creds, env.tokens, env.tracker, env.mailer, validation.New(), audit, logger)
	require.NoError(t, err)
	env.auth = auth
	env.profiles = NewProfileService(env.users, validation.New(), audit)

	if seed {
		require.NoError(t, env.graph.SetupDefaults(context.Background()))
	}
	return env
}
