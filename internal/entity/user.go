package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Username     string    `gorm:"type:varchar(30);uniqueIndex;not null"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password_hash;type:text;not null"`

	FirstName      string `gorm:"type:varchar(100)"`
	LastName       string `gorm:"type:varchar(100)"`
	PhoneNumber    string `gorm:"type:varchar(32)"`
	Address        string `gorm:"type:text"`
	ProfilePicture string `gorm:"type:text"`

	Roles []Role `gorm:"many2many:user_roles;constraint:OnDelete:CASCADE"`

	MFAEnabled   bool                        `gorm:"column:mfa_enabled;default:false;not null"`
	MFASecret    *string                     `gorm:"column:mfa_secret;type:text"`
	RecoveryKeys datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	FailedLoginAttempts int  `gorm:"default:0;not null"`
	AccountLocked       bool `gorm:"default:false;not null"`
	AccountLockedUntil  *time.Time

	PasswordResetToken   *string `gorm:"type:text;index"`
	PasswordResetExpires *time.Time

	LastLogin *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsLocked reports whether the lockout window is still open at now.
func (u *User) IsLocked(now time.Time) bool {
	if !u.AccountLocked {
		return false
	}
	return u.AccountLockedUntil != nil && u.AccountLockedUntil.After(now)
}

func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	return names
}
