package repository

import (
	"context"
	"errors"
	"time"

	"accounts/internal/entity"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	// RecordFailedLogin increments the stored failure counter and locks the
	// account until lockUntil once the counter reaches threshold. It returns
	// the counter after the increment; zero with a nil error means no user.
	RecordFailedLogin(ctx context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (attempts int, locked bool, err error)
	// ConsumeRecoveryKey removes the first stored hash accepted by match.
	// It reports whether a hash was removed.
	ConsumeRecoveryKey(ctx context.Context, id uuid.UUID, match func(hash string) bool) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *userRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	return r.findOne(ctx, "password_reset_token = ? AND password_reset_expires > ?", tokenHash, now)
}

func (r *userRepository) findOne(ctx context.Context, query string, args ...any) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Preload("Roles.Permissions").
		Where(query, args...).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Updates(fields).
		Error)
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Select(clause.Associations).
		Delete(&entity.User{ID: id}).
		Error
}

func (r *userRepository) RecordFailedLogin(ctx context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (int, bool, error) {
	var (
		attempts int
		locked   bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user entity.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "failed_login_attempts").
			Where("id = ?", id).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		attempts = user.FailedLoginAttempts + 1
		fields := map[string]any{"failed_login_attempts": attempts}
		if attempts >= threshold {
			locked = true
			fields["account_locked"] = true
			fields["account_locked_until"] = lockUntil
		}
		return tx.Model(&entity.User{}).
			Where("id = ?", id).
			Updates(fields).
			Error
	})
	if err != nil {
		return 0, false, err
	}
	return attempts, locked, nil
}

func (r *userRepository) ConsumeRecoveryKey(ctx context.Context, id uuid.UUID, match func(hash string) bool) (bool, error) {
	consumed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user entity.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "recovery_keys").
			Where("id = ?", id).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		remaining := make([]string, 0, len(user.RecoveryKeys))
		for _, hash := range user.RecoveryKeys {
			if !consumed && match(hash) {
				consumed = true
				continue
			}
			remaining = append(remaining, hash)
		}
		if !consumed {
			return nil
		}
		return tx.Model(&entity.User{}).
			Where("id = ?", id).
			Update("recovery_keys", datatypes.JSONSlice[string](remaining)).
			Error
	})
	return consumed, err
}
