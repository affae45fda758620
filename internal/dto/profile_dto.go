package dto

import (
	"time"

	"accounts/internal/entity"
)

type ProfileResponse struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FullName       string     `json:"fullName"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Roles          []string   `json:"roles"`
	Address        string     `json:"address"`
	PhoneNumber    string     `json:"phoneNumber"`
	ProfilePicture string     `json:"profilePicture"`
	MFAEnabled     bool       `json:"mfaEnabled"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
}

type PublicProfileResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	Roles    []string `json:"roles"`
}

// UpdateProfileRequest only carries the fields a user may change on their
// own profile; nil means "leave as is".
type UpdateProfileRequest struct {
	FirstName      *string `json:"firstName" validate:"omitempty,max=100"`
	LastName       *string `json:"lastName" validate:"omitempty,max=100"`
	PhoneNumber    *string `json:"phoneNumber" validate:"omitempty,max=32"`
	Address        *string `json:"address" validate:"omitempty,max=500"`
	ProfilePicture *string `json:"profilePicture" validate:"omitempty,max=2048"`
}

func (r UpdateProfileRequest) Changes() map[string]any {
	changes := make(map[string]any)
	if r.FirstName != nil {
		changes["first_name"] = *r.FirstName
	}
	if r.LastName != nil {
		changes["last_name"] = *r.LastName
	}
	if r.PhoneNumber != nil {
		changes["phone_number"] = *r.PhoneNumber
	}
	if r.Address != nil {
		changes["address"] = *r.Address
	}
	if r.ProfilePicture != nil {
		changes["profile_picture"] = *r.ProfilePicture
	}
	return changes
}

type UpdateProfileResponse struct {
	Message string          `json:"message"`
	User    ProfileResponse `json:"user"`
}

type PermissionResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Permissions []PermissionResponse `json:"permissions"`
}

func ProfileResponseFromEntity(user *entity.User) ProfileResponse {
	return ProfileResponse{
		ID:             user.ID.String(),
		Username:       user.Username,
		Email:          user.Email,
		FullName:       user.FullName(),
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Roles:          user.RoleNames(),
		Address:        user.Address,
		PhoneNumber:    user.PhoneNumber,
		ProfilePicture: user.ProfilePicture,
		MFAEnabled:     user.MFAEnabled,
		LastLogin:      user.LastLogin,
	}
}

func PublicProfileResponseFromEntity(user *entity.User) PublicProfileResponse {
	return PublicProfileResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName(),
		Roles:    user.RoleNames(),
	}
}

func RoleResponsesFromEntities(roles []entity.Role) []RoleResponse {
	responses := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		permissions := make([]PermissionResponse, 0, len(role.Permissions))
		for _, permission := range role.Permissions {
			permissions = append(permissions, PermissionResponse{
				Name:        permission.Name,
				Description: permission.Description,
			})
		}
		responses = append(responses, RoleResponse{
			ID:          role.ID.String(),
			Name:        role.Name,
			Description: role.Description,
			Permissions: permissions,
		})
	}
	return responses
}
