package department

import (
	"context"
	"net/http"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context, sess *session.Session) ([]*Department, error)
	Create(ctx context.Context, sess *session.Session, dto DepartmentDTO) (*Department, error)
	Update(ctx context.Context, sess *session.Session, id string, dto DepartmentDTO) (*Department, error)
	Delete(ctx context.Context, sess *session.Session, id string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// ListView is the departments page: the table plus the department the open
// edit or delete dialog targets.
type ListView struct {
	Departments []*Department
	Selected    *Department
}

const listURL = "/dashboard/departments"

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := h.NewPage(r, "Departments")
	if !h.load(w, r, page) {
		return
	}

	if view := page.Data.(*ListView); view.Selected != nil && page.State.Dialog == "edit" {
		page.Form["name"] = view.Selected.Name
		page.Form["description"] = view.Selected.Description
	}
	h.Render(w, r, http.StatusOK, "departments", page)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "", "add", "Create department", func(ctx context.Context, sess *session.Session, dto DepartmentDTO) error {
		_, err := h.Service.Create(ctx, sess, dto)
		return err
	}, "Department created")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.submit(w, r, id, "edit", "Update department", func(ctx context.Context, sess *session.Session, dto DepartmentDTO) error {
		_, err := h.Service.Update(ctx, sess, id, dto)
		return err
	}, "Department updated")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := session.FromContext(r.Context())

	if err := h.Service.Delete(r.Context(), sess, id); err != nil {
		h.HandleServiceError(w, r, err, "Delete department", listURL)
		return
	}
	h.Success(w, r, "Department deleted", listURL)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, id, dialog, action string,
	write func(context.Context, *session.Session, DepartmentDTO) error, done string) {
	if err := r.ParseForm(); err != nil {
		transport.AddFlash(r, transport.FlashError, "Invalid form submission")
		h.Redirect(w, r, listURL)
		return
	}

	dto := DepartmentDTO{
		Name:        r.PostForm.Get("name"),
		Description: r.PostForm.Get("description"),
	}
	sess := session.FromContext(r.Context())

	err := write(r.Context(), sess, dto)
	if err == nil {
		h.Success(w, r, done, listURL)
		return
	}

	if internal.IsValidation(err) {
		page := h.NewPage(r, "Departments")
		page.State.Dialog = dialog
		page.State.Target = id
		page.Form["name"] = dto.Name
		page.Form["description"] = dto.Description
		if !h.load(w, r, page) {
			return
		}
		h.RenderInvalid(w, r, "departments", page, err)
		return
	}
	h.HandleServiceError(w, r, err, action, listURL)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, page *transport.Page) bool {
	sess := session.FromContext(r.Context())
	departments, err := h.Service.List(r.Context(), sess)
	if err != nil {
		h.HandleReadError(w, r, err, "Load departments")
		return false
	}

	view := &ListView{Departments: departments}
	if page.State.Target != "" {
		for _, d := range departments {
			if d.ID == page.State.Target {
				view.Selected = d
				break
			}
		}
	}
	page.Data = view
	return true
}
