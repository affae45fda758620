package repository

import (
	"context"
	"errors"

	"accounts/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRepository interface {
	// UpsertPermission inserts or updates by name and fills permission.ID.
	UpsertPermission(ctx context.Context, permission *entity.Permission) error
	// UpsertRole inserts or updates by name and replaces the role's
	// permission set with permissions.
	UpsertRole(ctx context.Context, role *entity.Role, permissions []entity.Permission) error
	FindRoleByName(ctx context.Context, name string) (*entity.Role, error)
	FindRolesByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Role, error)
	ListRoles(ctx context.Context) ([]entity.Role, error)
	ListPermissions(ctx context.Context) ([]entity.Permission, error)
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) UpsertPermission(ctx context.Context, permission *entity.Permission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"description"}),
		}).
			Omit("id").
			Create(permission).Error
		if err != nil {
			return err
		}
		return tx.Where("name = ?", permission.Name).First(permission).Error
	})
}

func (r *roleRepository) UpsertRole(ctx context.Context, role *entity.Role, permissions []entity.Permission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"description"}),
		}).
			Omit("id", clause.Associations).
			Create(role).Error
		if err != nil {
			return err
		}
		if err := tx.Where("name = ?", role.Name).First(role).Error; err != nil {
			return err
		}
		if err := tx.Model(role).Association("Permissions").Replace(permissions); err != nil {
			return err
		}
		role.Permissions = permissions
		return nil
	})
}

func (r *roleRepository) FindRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	var role entity.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("name = ?", name).
		First(&role).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindRolesByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var roles []entity.Role
	if err := r.db.WithContext(ctx).Preload("Permissions").Where("id IN ?", ids).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) ListRoles(ctx context.Context) ([]entity.Role, error) {
	var roles []entity.Role
	if err := r.db.WithContext(ctx).Preload("Permissions").Order("name").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) ListPermissions(ctx context.Context) ([]entity.Permission, error) {
	var permissions []entity.Permission
	if err := r.db.WithContext(ctx).Order("name").Find(&permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}
