package dto

type RegisterRequest struct {
	Username  string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,strongpassword"`
	FirstName string `json:"firstName" validate:"omitempty,max=100"`
	LastName  string `json:"lastName" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Username    string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Password    string `json:"password" validate:"required,max=128"`
	MFACode     string `json:"mfaCode" validate:"omitempty,numeric,len=6"`
	RecoveryKey string `json:"recoveryKey" validate:"omitempty,max=32"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

type PasswordForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,strongpassword"`
}

type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,strongpassword"`
}

type MFASetupResponse struct {
	Secret       string   `json:"secret"`
	OTPAuthURL   string   `json:"otpauthUrl"`
	RecoveryKeys []string `json:"recoveryKeys"`
}

type MFACodeRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

type MFADisableRequest struct {
	Code        string `json:"code" validate:"omitempty,numeric,len=6"`
	RecoveryKey string `json:"recoveryKey" validate:"omitempty,max=32"`
}

type RecoveryKeysResponse struct {
	RecoveryKeys []string `json:"recoveryKeys"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request. Fields is only set for
// validation failures.
type ErrorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
