package ticket

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/comment"
	"github.com/frahmantamala/service-desk/internal/department"
	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/transport"
	"github.com/frahmantamala/service-desk/internal/upload"
	"github.com/go-chi/chi"
)

const (
	maxUploadBytes  = 50 << 20
	maxUploadMemory = 8 << 20
	listURL         = "/dashboard/tickets"
)

type ServiceAPI interface {
	List(ctx context.Context, sess *session.Session, q ListQuery) (*List, error)
	Get(ctx context.Context, sess *session.Session, id string) (*Ticket, error)
	Create(ctx context.Context, sess *session.Session, dto CreateTicketDTO, files []upload.File) (*Ticket, error)
	Update(ctx context.Context, sess *session.Session, id string, dto UpdateTicketDTO) (*Ticket, error)
	ChangeStatus(ctx context.Context, sess *session.Session, id string, dto ChangeStatusDTO) (*Ticket, error)
	Delete(ctx context.Context, sess *session.Session, id string) error
}

type DepartmentLister interface {
	List(ctx context.Context, sess *session.Session) ([]*department.Department, error)
}

type CommentLister interface {
	ListForTicket(ctx context.Context, sess *session.Session, ticketID string) ([]*comment.Comment, error)
}

type Handler struct {
	*transport.BaseHandler
	Service     ServiceAPI
	Departments DepartmentLister
	Comments    CommentLister
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, departments DepartmentLister, comments CommentLister) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Departments: departments,
		Comments:    comments,
	}
}

type ListView struct {
	List        *List
	Query       ListQuery
	Statuses    []Status
	Priorities  []Priority
	Departments []*department.Department
}

type FormView struct {
	Departments []*department.Department
	Priorities  []Priority
}

type DetailView struct {
	Ticket     *Ticket
	Comments   []*comment.Comment
	Statuses   []Status
	Priorities []Priority
}

func ticketURL(id string) string {
	return listURL + "/" + url.PathEscape(id)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := h.NewPage(r, "Tickets")
	sess := session.FromContext(r.Context())
	q := ParseListQuery(r.URL.Query())

	list, err := h.Service.List(r.Context(), sess, q)
	if err != nil {
		h.HandleReadError(w, r, err, "Load tickets")
		return
	}

	view := &ListView{List: list, Query: q, Statuses: Statuses, Priorities: Priorities}
	if page.State.DialogOpen("new") {
		if view.Departments, err = h.Departments.List(r.Context(), sess); err != nil {
			h.HandleReadError(w, r, err, "Load departments")
			return
		}
		page.Form["priority"] = string(PriorityMedium)
	}
	page.Data = view
	h.Render(w, r, http.StatusOK, "tickets", page)
}

func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	page := h.NewPage(r, "New ticket")
	page.Form["priority"] = string(PriorityMedium)
	if !h.loadForm(w, r, page) {
		return
	}
	h.Render(w, r, http.StatusOK, "ticket_new", page)
}

// Create handles the new-ticket form, with or without attachments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.Log(r).Warn("invalid ticket form", "error", err)
		transport.AddFlash(r, transport.FlashError, "Create ticket: the attachments are too large or the form is invalid")
		h.Redirect(w, r, listURL+"/new")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	dto := CreateTicketDTO{
		Title:        r.PostFormValue("title"),
		Description:  r.PostFormValue("description"),
		DepartmentID: r.PostFormValue("departmentId"),
		Priority:     r.PostFormValue("priority"),
	}
	files := upload.FilesFromForm(r.MultipartForm, "attachments")
	sess := session.FromContext(r.Context())

	created, err := h.Service.Create(r.Context(), sess, dto, files)
	if err != nil {
		if internal.IsValidation(err) {
			page := h.NewPage(r, "New ticket")
			page.Form["title"] = dto.Title
			page.Form["description"] = dto.Description
			page.Form["departmentId"] = dto.DepartmentID
			page.Form["priority"] = dto.Priority
			if !h.loadForm(w, r, page) {
				return
			}
			h.RenderInvalid(w, r, "ticket_new", page, err)
			return
		}
		h.HandleServiceError(w, r, err, "Create ticket", listURL+"/new")
		return
	}

	message := "Ticket created"
	if len(files) > 0 {
		message = "Ticket created with attachments"
	}
	target := listURL
	if created != nil && created.ID != "" {
		target = ticketURL(created.ID)
	}
	h.Success(w, r, message, target)
}

func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	page := h.NewPage(r, "Ticket")
	if !h.loadDetail(w, r, id, page) {
		return
	}

	t := page.Data.(*DetailView).Ticket
	page.Title = t.Title
	page.Form["title"] = t.Title
	page.Form["description"] = t.Description
	h.Render(w, r, http.StatusOK, "ticket_detail", page)
}

// Update saves the edit-mode form. Cancelling is a plain link back to the
// detail page, which renders the server values again.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		transport.AddFlash(r, transport.FlashError, "Invalid form submission")
		h.Redirect(w, r, ticketURL(id))
		return
	}

	dto := UpdateTicketDTO{
		Title:       r.PostForm.Get("title"),
		Description: r.PostForm.Get("description"),
	}
	sess := session.FromContext(r.Context())

	if _, err := h.Service.Update(r.Context(), sess, id, dto); err != nil {
		if internal.IsValidation(err) {
			page := h.NewPage(r, "Edit ticket")
			if !h.loadDetail(w, r, id, page) {
				return
			}
			page.Form["title"] = dto.Title
			page.Form["description"] = dto.Description
			h.RenderInvalid(w, r, "ticket_detail", page, err)
			return
		}
		h.HandleServiceError(w, r, err, "Update ticket", ticketURL(id)+"?mode=edit")
		return
	}

	h.Success(w, r, "Ticket updated", ticketURL(id))
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		transport.AddFlash(r, transport.FlashError, "Invalid form submission")
		h.Redirect(w, r, ticketURL(id))
		return
	}

	dto := ChangeStatusDTO{Status: r.PostForm.Get("status")}
	sess := session.FromContext(r.Context())

	if _, err := h.Service.ChangeStatus(r.Context(), sess, id, dto); err != nil {
		h.HandleServiceError(w, r, err, "Change status", ticketURL(id))
		return
	}

	h.Success(w, r, "Status changed to "+Status(dto.Status).Label(), ticketURL(id))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := session.FromContext(r.Context())

	if err := h.Service.Delete(r.Context(), sess, id); err != nil {
		h.HandleServiceError(w, r, err, "Delete ticket", listURL)
		return
	}
	h.Success(w, r, "Ticket deleted", listURL)
}

func (h *Handler) loadForm(w http.ResponseWriter, r *http.Request, page *transport.Page) bool {
	departments, err := h.Departments.List(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.HandleReadError(w, r, err, "Load departments")
		return false
	}
	page.Data = &FormView{Departments: departments, Priorities: Priorities}
	return true
}

func (h *Handler) loadDetail(w http.ResponseWriter, r *http.Request, id string, page *transport.Page) bool {
	sess := session.FromContext(r.Context())

	t, err := h.Service.Get(r.Context(), sess, id)
	if err != nil {
		h.HandleReadError(w, r, err, "Load ticket")
		return false
	}
	comments, err := h.Comments.ListForTicket(r.Context(), sess, id)
	if err != nil {
		h.HandleReadError(w, r, err, "Load comments")
		return false
	}

	page.Data = &DetailView{Ticket: t, Comments: comments, Statuses: Statuses, Priorities: Priorities}
	return true
}
