package department

import "time"

type Department struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type WriteRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
