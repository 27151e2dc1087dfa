package ticket

import (
	"time"

	ticketDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/ticket"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved}

func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In progress"
	case StatusResolved:
		return "Resolved"
	default:
		return string(s)
	}
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	default:
		return string(p)
	}
}

type Department struct {
	ID   string
	Name string
}

type Owner struct {
	ID    string
	Name  string
	Email string
}

type Attachment struct {
	URL          string
	OriginalName string
}

type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      Status
	Priority    Priority
	Department  Department
	Owner       Owner
	Attachments []Attachment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Pagination describes the current page. Known is false when the backend
// did not report totals; Total and Pages are then lower bounds.
type Pagination struct {
	Page  int
	Limit int
	Total int
	Pages int
	Known bool
}

func (p Pagination) HasPrev() bool {
	return p.Page > 1
}

func (p Pagination) HasNext() bool {
	return p.Page < p.Pages
}

func (p Pagination) PrevPage() int {
	return p.Page - 1
}

func (p Pagination) NextPage() int {
	return p.Page + 1
}

// StatusCounts are totals over the whole ticket set, never over one page.
// Known is false when no source for them was available.
type StatusCounts struct {
	Pending    int
	InProgress int
	Resolved   int
	Known      bool
}

func (c StatusCounts) Total() int {
	return c.Pending + c.InProgress + c.Resolved
}

// List is one page of tickets plus the per-status totals of the whole set.
type List struct {
	Tickets    []*Ticket
	Pagination Pagination
	Counts     StatusCounts
	Status     Status
}

func FromDataModel(t *ticketDatamodel.Ticket) *Ticket {
	out := &Ticket{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      Status(t.Status),
		Priority:    Priority(t.Priority),
		Department:  Department{ID: t.Department.ID, Name: t.Department.Name},
		Owner:       Owner{ID: t.User.ID, Name: t.User.Name, Email: t.User.Email},
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	for _, a := range t.Attachments {
		out.Attachments = append(out.Attachments, Attachment{URL: a.URL, OriginalName: a.OriginalName})
	}
	return out
}

// ListFromDataModel converts the envelope. Status totals are taken from the
// envelope summary only; without one the counts are left unknown.
func ListFromDataModel(env *ticketDatamodel.ListEnvelope, q ListQuery) *List {
	list := &List{
		Pagination: Pagination{
			Page:  env.Meta.Pagination.Page,
			Limit: env.Meta.Pagination.Limit,
			Total: env.Meta.Pagination.Total,
			Pages: env.Meta.Pagination.Pages,
			Known: true,
		},
		Status: q.Status,
	}
	for i := range env.Data {
		list.Tickets = append(list.Tickets, FromDataModel(&env.Data[i]))
	}

	p := &list.Pagination
	if p.Page == 0 {
		p.Page = q.Page
	}
	if p.Limit == 0 {
		p.Limit = q.Limit
	}
	if p.Total == 0 && len(list.Tickets) > 0 {
		// no totals reported: everything before this page plus the page
		p.Known = false
		p.Total = (p.Page-1)*p.Limit + len(list.Tickets)
		p.Pages = p.Page
		if len(list.Tickets) >= p.Limit {
			p.Pages = p.Page + 1
		}
	}
	if p.Pages == 0 && p.Limit > 0 {
		p.Pages = (p.Total + p.Limit - 1) / p.Limit
	}

	if s := env.Summary.Status; s != nil {
		list.Counts = StatusCounts{
			Pending:    s[string(StatusPending)],
			InProgress: s[string(StatusInProgress)],
			Resolved:   s[string(StatusResolved)],
			Known:      true,
		}
	}
	return list
}
