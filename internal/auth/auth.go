package auth

import (
	"github.com/frahmantamala/service-desk/internal"
	authDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/auth"
	"github.com/frahmantamala/service-desk/internal/session"
)

var ErrInvalidCredentials = internal.NewValidationError("Invalid email or password", internal.ErrCodeInvalidCredentials)

// SessionUser picks the user snapshot kept in the session cookie. The login
// response may omit the user, in which case one is derived from the email.
func SessionUser(resp *authDatamodel.LoginResponse, email string) session.User {
	if resp.User == nil || (resp.User.Email == "" && resp.User.Name == "") {
		if resp.Email != "" {
			email = resp.Email
		}
		return session.FallbackUser(email)
	}

	role := resp.User.Role
	if role != session.RoleAdmin {
		role = session.RoleStaff
	}
	u := session.User{
		ID:    resp.User.ID,
		Name:  resp.User.Name,
		Email: resp.User.Email,
		Role:  role,
	}
	if u.Email == "" {
		u.Email = email
	}
	if u.Name == "" {
		u.Name = session.FallbackUser(u.Email).Name
	}
	return u
}
