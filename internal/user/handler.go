package user

import (
	"context"
	"net/http"

	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context, sess *session.Session) ([]*User, error)
	SetActive(ctx context.Context, sess *session.Session, id string, dto SetActiveDTO) error
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

const listURL = "/dashboard/users"

type ListView struct {
	Users    []*User
	Selected *User
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := h.NewPage(r, "Users")
	sess := session.FromContext(r.Context())

	users, err := h.Service.List(r.Context(), sess)
	if err != nil {
		h.HandleReadError(w, r, err, "Load users")
		return
	}

	view := &ListView{Users: users}
	for _, u := range users {
		if u.ID == page.State.Target {
			view.Selected = u
			break
		}
	}
	page.Data = view
	h.Render(w, r, http.StatusOK, "users", page)
}

// SetActive handles POST /dashboard/users/{id}/active with active=true|false.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		transport.AddFlash(r, transport.FlashError, "Invalid form submission")
		h.Redirect(w, r, listURL)
		return
	}

	dto, verr := ParseSetActive(r.PostForm.Get("active"))
	if verr != nil {
		h.HandleServiceError(w, r, verr, "Update user", listURL)
		return
	}

	sess := session.FromContext(r.Context())
	if err := h.Service.SetActive(r.Context(), sess, id, dto); err != nil {
		h.HandleServiceError(w, r, err, "Update user", listURL)
		return
	}

	message := "User deactivated"
	if dto.Active {
		message = "User activated"
	}
	h.Success(w, r, message, listURL)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := session.FromContext(r.Context())

	if err := h.Service.Delete(r.Context(), sess, id); err != nil {
		h.HandleServiceError(w, r, err, "Delete user", listURL)
		return
	}
	h.Success(w, r, "User deleted", listURL)
}
