package comment

import "time"

type Comment struct {
	ID        string    `json:"_id"`
	Message   string    `json:"message"`
	TicketID  string    `json:"ticketId,omitempty"`
	User      Author    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

type Author struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type CreateRequest struct {
	Message string `json:"message"`
}
