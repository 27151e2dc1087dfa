package auth

import userDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/user"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse may omit the user; the dashboard then derives one from the email.
type LoginResponse struct {
	Token string              `json:"token"`
	User  *userDatamodel.User `json:"user,omitempty"`
	Email string              `json:"email,omitempty"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}
