package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/user"
	"github.com/frahmantamala/service-desk/internal/session"
)

type User struct {
	ID        string
	Name      string
	Email     string
	Role      string
	IsActive  bool
	CreatedAt time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == session.RoleAdmin
}

func (u *User) RoleLabel() string {
	if u.IsAdmin() {
		return "Administrator"
	}
	return "Staff"
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
