// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"accounts/internal/entity"
	"accounts/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type UserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User

	// Err, when set, is returned by every method.
	Err error
}

var _ repository.UserRepository = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]*entity.User)}
}

func (s *UserStore) Create(_ context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	return s.find(func(u *entity.User) bool { return u.ID == id })
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	return s.find(func(u *entity.User) bool { return u.Username == username })
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return s.find(func(u *entity.User) bool { return u.Email == email })
}

func (s *UserStore) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	return s.find(func(u *entity.User) bool {
		return u.PasswordResetToken != nil && *u.PasswordResetToken == tokenHash &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now)
	})
}

func (s *UserStore) find(match func(*entity.User) bool) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, user := range s.users {
		if match(user) {
			return cloneUser(user), nil
		}
	}
	return nil, nil
}

func (s *UserStore) UpdateFields(_ context.Context, id uuid.UUID, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	user, ok := s.users[id]
	if !ok {
		return nil
	}
	for column, value := range fields {
		switch column {
		case "first_name":
			user.FirstName, _ = value.(string)
		case "last_name":
			user.LastName, _ = value.(string)
		case "phone_number":
			user.PhoneNumber, _ = value.(string)
		case "address":
			user.Address, _ = value.(string)
		case "profile_picture":
			user.ProfilePicture, _ = value.(string)
		case "password_hash":
			user.PasswordHash, _ = value.(string)
		case "failed_login_attempts":
			user.FailedLoginAttempts, _ = value.(int)
		case "account_locked":
			user.AccountLocked, _ = value.(bool)
		case "account_locked_until":
			user.AccountLockedUntil = timeValue(value)
		case "last_login":
			user.LastLogin = timeValue(value)
		case "password_reset_token":
			user.PasswordResetToken = stringValue(value)
		case "password_reset_expires":
			user.PasswordResetExpires = timeValue(value)
		case "mfa_enabled":
			user.MFAEnabled, _ = value.(bool)
		case "mfa_secret":
			user.MFASecret = stringValue(value)
		case "recovery_keys":
			switch keys := value.(type) {
			case datatypes.JSONSlice[string]:
				user.RecoveryKeys = append(datatypes.JSONSlice[string](nil), keys...)
			case []string:
				user.RecoveryKeys = append(datatypes.JSONSlice[string](nil), keys...)
			default:
				user.RecoveryKeys = nil
			}
		default:
			return fmt.Errorf("repotest: unknown column %q", column)
		}
	}
	user.UpdatedAt = time.Now()
	return nil
}

func (s *UserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.users, id)
	return nil
}

func (s *UserStore) RecordFailedLogin(_ context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, false, s.Err
	}
	user, ok := s.users[id]
	if !ok {
		return 0, false, nil
	}
	user.FailedLoginAttempts++
	if user.FailedLoginAttempts < threshold {
		return user.FailedLoginAttempts, false, nil
	}
	until := lockUntil
	user.AccountLocked = true
	user.AccountLockedUntil = &until
	return user.FailedLoginAttempts, true, nil
}

func (s *UserStore) ConsumeRecoveryKey(_ context.Context, id uuid.UUID, match func(hash string) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	user, ok := s.users[id]
	if !ok {
		return false, nil
	}
	for i, hash := range user.RecoveryKeys {
		if match(hash) {
			remaining := make([]string, 0, len(user.RecoveryKeys)-1)
			remaining = append(remaining, user.RecoveryKeys[:i]...)
			remaining = append(remaining, user.RecoveryKeys[i+1:]...)
			user.RecoveryKeys = remaining
			return true, nil
		}
	}
	return false, nil
}

// SetRoles replaces a stored user's role membership.
func (s *UserStore) SetRoles(id uuid.UUID, roles []entity.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		user.Roles = append([]entity.Role(nil), roles...)
	}
}

func (s *UserStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func timeValue(value any) *time.Time {
	switch v := value.(type) {
	case time.Time:
		return &v
	case *time.Time:
		if v == nil {
			return nil
		}
		copied := *v
		return &copied
	default:
		return nil
	}
}

func stringValue(value any) *string {
	switch v := value.(type) {
	case string:
		return &v
	case *string:
		if v == nil {
			return nil
		}
		copied := *v
		return &copied
	default:
		return nil
	}
}

func cloneUser(user *entity.User) *entity.User {
	copied := *user
	copied.Roles = append([]entity.Role(nil), user.Roles...)
	copied.RecoveryKeys = append([]string(nil), user.RecoveryKeys...)
	return &copied
}

type RoleStore struct {
	mu          sync.Mutex
	roles       map[string]*entity.Role
	permissions map[string]*entity.Permission

	Err error
}

var _ repository.RoleRepository = (*RoleStore)(nil)

func NewRoleStore() *RoleStore {
	return &RoleStore{
		roles:       make(map[string]*entity.Role),
		permissions: make(map[string]*entity.Permission),
	}
}

func (s *RoleStore) UpsertPermission(_ context.Context, permission *entity.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	existing, ok := s.permissions[permission.Name]
	if !ok {
		existing = &entity.Permission{ID: uuid.New(), Name: permission.Name, CreatedAt: time.Now()}
		s.permissions[permission.Name] = existing
	}
	existing.Description = permission.Description
	*permission = *existing
	return nil
}

func (s *RoleStore) UpsertRole(_ context.Context, role *entity.Role, permissions []entity.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	existing, ok := s.roles[role.Name]
	if !ok {
		existing = &entity.Role{ID: uuid.New(), Name: role.Name, CreatedAt: time.Now()}
		s.roles[role.Name] = existing
	}
	existing.Description = role.Description
	existing.Permissions = append([]entity.Permission(nil), permissions...)
	*role = cloneRole(existing)
	return nil
}

func (s *RoleStore) FindRoleByName(_ context.Context, name string) (*entity.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	role, ok := s.roles[name]
	if !ok {
		return nil, nil
	}
	copied := cloneRole(role)
	return &copied, nil
}

func (s *RoleStore) FindRolesByIDs(_ context.Context, ids []uuid.UUID) ([]entity.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var roles []entity.Role
	for _, id := range ids {
		for _, role := range s.roles {
			if role.ID == id {
				roles = append(roles, cloneRole(role))
			}
		}
	}
	return roles, nil
}

func (s *RoleStore) ListRoles(_ context.Context) ([]entity.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	roles := make([]entity.Role, 0, len(s.roles))
	for _, role := range s.roles {
		roles = append(roles, cloneRole(role))
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (s *RoleStore) ListPermissions(_ context.Context) ([]entity.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	permissions := make([]entity.Permission, 0, len(s.permissions))
	for _, permission := range s.permissions {
		permissions = append(permissions, *permission)
	}
	sort.Slice(permissions, func(i, j int) bool { return permissions[i].Name < permissions[j].Name })
	return permissions, nil
}

func cloneRole(role *entity.Role) entity.Role {
	copied := *role
	copied.Permissions = append([]entity.Permission(nil), role.Permissions...)
	return copied
}

type SecurityLogStore struct {
	mu   sync.Mutex
	logs []entity.SecurityLog
}

var _ repository.SecurityLogRepository = (*SecurityLogStore)(nil)

func NewSecurityLogStore() *SecurityLogStore {
	return &SecurityLogStore{}
}

func (s *SecurityLogStore) Log(_ context.Context, log *entity.SecurityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	log.CreatedAt = time.Now()
	s.logs = append(s.logs, *log)
	return nil
}

func (s *SecurityLogStore) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]entity.SecurityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var logs []entity.SecurityLog
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].UserID != nil && *s.logs[i].UserID == userID {
			logs = append(logs, s.logs[i])
		}
		if limit > 0 && len(logs) == limit {
			break
		}
	}
	return logs, nil
}

// Actions returns every logged action in insertion order.
func (s *SecurityLogStore) Actions() []entity.SecurityAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]entity.SecurityAction, 0, len(s.logs))
	for _, log := range s.logs {
		actions = append(actions, log.Action)
	}
	return actions
}
