package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	PermissionRead   = "read"
	PermissionWrite  = "write"
	PermissionDelete = "delete"
	PermissionAdmin  = "admin"
)

const (
	RoleUser   = "user"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	Description string    `gorm:"type:text"`

	CreatedAt time.Time
}

type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string       `gorm:"type:varchar(64);uniqueIndex;not null"`
	Description string       `gorm:"type:text"`
	Permissions []Permission `gorm:"many2many:role_permissions;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
}

func (r *Role) HasPermission(name string) bool {
	for _, permission := range r.Permissions {
		if permission.Name == name {
			return true
		}
	}
	return false
}
