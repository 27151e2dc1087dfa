package comment

import (
	"time"

	commentDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/comment"
)

type Comment struct {
	ID         string
	TicketID   string
	Message    string
	AuthorID   string
	AuthorName string
	CreatedAt  time.Time
}

// Initial is the avatar letter shown next to the comment.
func (c *Comment) Initial() string {
	for _, r := range c.AuthorName {
		return string(r)
	}
	return "?"
}

func FromDataModel(c *commentDatamodel.Comment) *Comment {
	return &Comment{
		ID:         c.ID,
		TicketID:   c.TicketID,
		Message:    c.Message,
		AuthorID:   c.User.ID,
		AuthorName: c.User.Name,
		CreatedAt:  c.CreatedAt,
	}
}
