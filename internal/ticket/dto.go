package ticket

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/core/common/validation"
	ticketDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/ticket"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

type ListQuery struct {
	Page   int
	Limit  int
	Status Status
}

// ParseListQuery reads page, limit and status from the URL. Unknown statuses
// and "all" mean no filter.
func ParseListQuery(values url.Values) ListQuery {
	q := ListQuery{
		Page:   atoiOr(values.Get("page"), 1),
		Limit:  atoiOr(values.Get("limit"), DefaultPageSize),
		Status: Status(values.Get("status")),
	}
	return q.Normalize()
}

func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if !q.Status.Valid() {
		q.Status = ""
	}
	return q
}

// CacheParam identifies this list variant inside the tickets family.
func (q ListQuery) CacheParam() string {
	return fmt.Sprintf("page=%d&limit=%d&status=%s", q.Page, q.Limit, q.Status)
}

func (q ListQuery) ToDataModel() ticketDatamodel.ListQuery {
	return ticketDatamodel.ListQuery{Page: q.Page, Limit: q.Limit, Status: string(q.Status)}
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

type CreateTicketDTO struct {
	Title        string
	Description  string
	DepartmentID string
	Priority     string
}

func (dto *CreateTicketDTO) Normalize() {
	dto.Title = strings.TrimSpace(dto.Title)
	dto.Description = strings.TrimSpace(dto.Description)
	dto.DepartmentID = strings.TrimSpace(dto.DepartmentID)
	if dto.Priority == "" {
		dto.Priority = string(PriorityMedium)
	}
}

func (dto CreateTicketDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", dto.Title).Required().MaxLength(200)
	v.Field("description", dto.Description).Required()
	v.Field("departmentId", dto.DepartmentID).Labeled("Department").Required()
	v.Field("priority", dto.Priority).OneOf(string(PriorityLow), string(PriorityMedium), string(PriorityHigh))
	return v.Validate()
}

func (dto CreateTicketDTO) ToDataModel(attachments []string) ticketDatamodel.CreateRequest {
	return ticketDatamodel.CreateRequest{
		Title:        dto.Title,
		Description:  dto.Description,
		DepartmentID: dto.DepartmentID,
		Priority:     dto.Priority,
		Attachments:  attachments,
	}
}

// UpdateTicketDTO is the edit-mode form: title and description only.
type UpdateTicketDTO struct {
	Title       string
	Description string
}

func (dto *UpdateTicketDTO) Normalize() {
	dto.Title = strings.TrimSpace(dto.Title)
	dto.Description = strings.TrimSpace(dto.Description)
}

func (dto UpdateTicketDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", dto.Title).Required().MaxLength(200)
	v.Field("description", dto.Description).Required()
	return v.Validate()
}

func (dto UpdateTicketDTO) ToDataModel() ticketDatamodel.UpdateRequest {
	title, description := dto.Title, dto.Description
	return ticketDatamodel.UpdateRequest{Title: &title, Description: &description}
}

type ChangeStatusDTO struct {
	Status string
}

func (dto ChangeStatusDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("status", dto.Status).Required().
		OneOf(string(StatusPending), string(StatusInProgress), string(StatusResolved))
	return v.Validate()
}

func (dto ChangeStatusDTO) ToDataModel() ticketDatamodel.UpdateRequest {
	status := dto.Status
	return ticketDatamodel.UpdateRequest{Status: &status}
}
