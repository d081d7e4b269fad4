package types

import "github.com/monocle-dev/taskflow/internal/models"

// Identity is the authenticated caller attached to every request.
type Identity struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CompanyID string      `json:"company,omitempty"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CompanyID *string     `json:"companyId"`
	IsActive  bool        `json:"isActive"`
}

func NewUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CompanyID: u.CompanyID,
		IsActive:  u.IsActive,
	}
}
