package dashboard

import (
	"time"

	"github.com/frahmantamala/service-desk/internal/ticket"
)

// Stats is the dashboard home: ticket totals per status for everyone, plus
// user and department counts for administrators.
type Stats struct {
	Tickets     ticket.StatusCounts
	Total       int
	TotalKnown  bool
	Recent      []*ticket.Ticket
	Users       int
	Departments int
	AdminView   bool
	Today       time.Time
}
