package auth

import (
	"strings"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/core/common/validation"
	authDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/auth"
	"github.com/frahmantamala/service-desk/internal/session"
)

type LoginDTO struct {
	Email    string
	Password string
}

func (d *LoginDTO) Normalize() {
	d.Email = strings.TrimSpace(d.Email)
}

func (d LoginDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

func (d LoginDTO) ToDataModel() authDatamodel.LoginRequest {
	return authDatamodel.LoginRequest{Email: d.Email, Password: d.Password}
}

type RegisterDTO struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Normalize trims the text fields and defaults the role to staff.
func (d *RegisterDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	if d.Role == "" {
		d.Role = session.RoleStaff
	}
}

func (d RegisterDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(3).MaxLength(100)
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(6)
	v.Field("role", d.Role).OneOf(session.RoleStaff, session.RoleAdmin)
	return v.Validate()
}

func (d RegisterDTO) ToDataModel() authDatamodel.RegisterRequest {
	return authDatamodel.RegisterRequest{
		Name:     d.Name,
		Email:    d.Email,
		Password: d.Password,
		Role:     d.Role,
	}
}
