package user

import "time"

type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// UpdateRequest carries the target state, never a toggle.
type UpdateRequest struct {
	IsActive *bool `json:"isActive,omitempty"`
}
