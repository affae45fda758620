package service

import (
	"context"
	"errors"
	"fmt"

	"accounts/internal/dto"
	"accounts/internal/entity"
	"accounts/internal/repository"
	"accounts/internal/utils"
	"accounts/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type LoginResult struct {
	Token     string
	ExpiresIn int64
	User      *entity.User
}

type AuthService struct {
	users       repository.UserRepository
	roles       *RoleGraph
	credentials *CredentialStore
	tokens      *TokenService
	tracker     *SecurityTracker
	emailSender EmailSender
	validate    *validator.Validate
	audit       SecurityAudit
	logger      logrus.FieldLogger

	// dummyHash is compared against when the username is unknown so both
	// failure paths cost one hash verification.
	dummyHash string
}

func NewAuthService(
	users repository.UserRepository,
	roles *RoleGraph,
	credentials *CredentialStore,
	tokens *TokenService,
	tracker *SecurityTracker,
	emailSender EmailSender,
	validate *validator.Validate,
	audit SecurityAudit,
	logger logrus.FieldLogger,
) (*AuthService, error) {
	dummyHash, err := credentials.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthService{
		users:       users,
		roles:       roles,
		credentials: credentials,
		tokens:      tokens,
		tracker:     tracker,
		emailSender: emailSender,
		validate:    validate,
		audit:       audit,
		logger:      logger,
		dummyHash:   dummyHash,
	}, nil
}

// Register creates an account. No token is issued here; callers log in.
func (s *AuthService) Register(ctx context.Context, input dto.RegisterRequest) (*entity.User, error) {
	if err := validation.Struct(s.validate, input); err != nil {
		return nil, err
	}

	email := utils.NormalizeEmail(input.Email)
	existing, err := s.users.FindByUsername(ctx, input.Username)
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateUser
	}
	existing, err = s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateUser
	}

	hash, err := s.credentials.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		Username:     input.Username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
	}

	defaultRole, err := s.roles.DefaultRole(ctx)
	if err != nil {
		return nil, err
	}
	if defaultRole != nil {
		user.Roles = []entity.Role{{ID: defaultRole.ID, Name: defaultRole.Name, Description: defaultRole.Description}}
	} else {
		s.logger.WithField("role", entity.RoleUser).Warn("default role missing, registering user without roles")
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login answers ErrInvalidCredentials both for an unknown username and for
// a wrong password.
func (s *AuthService) Login(ctx context.Context, input dto.LoginRequest) (*LoginResult, error) {
	if err := validation.Struct(s.validate, input); err != nil {
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, input.Username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		_ = s.credentials.Verify(input.Password, s.dummyHash)
		s.audit.record(ctx, nil, entity.LoginFailed, map[string]any{"username": input.Username, "reason": "unknown_user"})
		return nil, ErrInvalidCredentials
	}

	if err := s.tracker.CheckLock(ctx, user); err != nil {
		return nil, err
	}

	if !s.credentials.Verify(input.Password, user.PasswordHash) {
		if err := s.tracker.RecordFailedLogin(ctx, user, "password"); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		err := s.tracker.VerifySecondFactor(ctx, user, input.MFACode, input.RecoveryKey)
		if errors.Is(err, ErrInvalidMFACode) {
			if recordErr := s.tracker.RecordFailedLogin(ctx, user, "mfa"); recordErr != nil {
				return nil, recordErr
			}
		}
		if err != nil {
			return nil, err
		}
	}

	token, ttl, err := s.tokens.Issue(user.ID, user.Username, user.RoleNames())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if err := s.tracker.RecordSuccessfulLogin(ctx, user); err != nil {
		return nil, err
	}
	s.audit.record(ctx, &user.ID, entity.LoginSuccess, map[string]any{"mfa": user.MFAEnabled})

	return &LoginResult{
		Token:     token,
		ExpiresIn: int64(ttl.Seconds()),
		User:      user,
	}, nil
}

// Authorize turns an Authorization header value into verified claims. A
// missing or malformed header is ErrAccessDenied; a token that fails
// verification for any reason is ErrInvalidToken.
func (s *AuthService) Authorize(authorizationHeader string) (*Claims, error) {
	token, ok := BearerToken(authorizationHeader)
	if !ok {
		return nil, ErrAccessDenied
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RequirePermission loads the current role membership rather than trusting
// the role names frozen into the token.
func (s *AuthService) RequirePermission(ctx context.Context, userID uuid.UUID, permission string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return ErrForbidden
	}
	allowed, err := s.roles.HasPermission(ctx, user, permission)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

// RequestPasswordReset always succeeds from the caller's point of view so the
// response does not reveal whether the address is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, input dto.PasswordForgotRequest) error {
	if err := validation.Struct(s.validate, input); err != nil {
		return err
	}
	user, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(input.Email))
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil
	}

	token, err := s.tracker.CreatePasswordResetToken(ctx, user)
	if err != nil {
		return err
	}
	if s.emailSender == nil {
		s.logger.WithField("user_id", user.ID).Warn("password reset requested but mail delivery is not configured")
		return nil
	}
	if err := s.emailSender.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("send password reset email")
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, input dto.PasswordResetRequest) error {
	if err := validation.Struct(s.validate, input); err != nil {
		return err
	}
	return s.tracker.ResetPassword(ctx, input.Token, input.NewPassword)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, input dto.PasswordChangeRequest) error {
	if err := validation.Struct(s.validate, input); err != nil {
		return err
	}
	return s.tracker.ChangePassword(ctx, userID, input.CurrentPassword, input.NewPassword)
}

func (s *AuthService) SetupMFA(ctx context.Context, userID uuid.UUID) (*MFASetup, error) {
	return s.tracker.SetupMFA(ctx, userID)
}

func (s *AuthService) EnableMFA(ctx context.Context, userID uuid.UUID, input dto.MFACodeRequest) error {
	if err := validation.Struct(s.validate, input); err != nil {
		return err
	}
	return s.tracker.EnableMFA(ctx, userID, input.Code)
}

func (s *AuthService) DisableMFA(ctx context.Context, userID uuid.UUID, input dto.MFADisableRequest) error {
	if err := validation.Struct(s.validate, input); err != nil {
		return err
	}
	if input.Code == "" && input.RecoveryKey == "" {
		return validation.FieldError("code", "code or recoveryKey is required")
	}
	return s.tracker.DisableMFA(ctx, userID, input.Code, input.RecoveryKey)
}

func (s *AuthService) RegenerateRecoveryKeys(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.tracker.RegenerateRecoveryKeys(ctx, userID)
}

func (s *AuthService) UnlockAccount(ctx context.Context, userID uuid.UUID) error {
	return s.tracker.Unlock(ctx, userID)
}

func (s *AuthService) SecurityEvents(ctx context.Context, userID uuid.UUID, limit int) ([]entity.SecurityLog, error) {
	logs, err := s.audit.recent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list security events: %w", err)
	}
	return logs, nil
}
