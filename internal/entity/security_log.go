package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SecurityAction string

const (
	LoginSuccess        SecurityAction = "login_success"
	LoginFailed         SecurityAction = "login_failed"
	AccountLocked       SecurityAction = "account_locked"
	AccountUnlocked     SecurityAction = "account_unlocked"
	PasswordResetIssued SecurityAction = "password_reset_requested"
	PasswordReset       SecurityAction = "password_reset"
	PasswordChanged     SecurityAction = "password_changed"
	MFAEnabled          SecurityAction = "mfa_enabled"
	MFADisabled         SecurityAction = "mfa_disabled"
	MFAFailed           SecurityAction = "mfa_failed"
	RecoveryKeyUsed     SecurityAction = "recovery_key_used"
	RecoveryKeysIssued  SecurityAction = "recovery_keys_issued"
	AccountDeleted      SecurityAction = "account_deleted"
)

type SecurityLog struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	UserID *uuid.UUID `gorm:"type:uuid;index"`

	IPAddress *string        `gorm:"type:varchar(45)"`
	Action    SecurityAction `gorm:"type:varchar(64);not null"`

	Metadata datatypes.JSON

	CreatedAt time.Time
}
