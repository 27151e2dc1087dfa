package comment

import (
	"context"
	"net/http"
	"net/url"

	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Add(ctx context.Context, sess *session.Session, ticketID string, dto CreateCommentDTO) (*Comment, error)
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

// Create handles POST /dashboard/tickets/{id}/comments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "id")
	back := "/dashboard/tickets/" + url.PathEscape(ticketID) + "#comments"

	if err := r.ParseForm(); err != nil {
		transport.AddFlash(r, transport.FlashError, "Invalid form submission")
		h.Redirect(w, r, back)
		return
	}

	dto := CreateCommentDTO{Message: r.PostForm.Get("message")}
	sess := session.FromContext(r.Context())

	if _, err := h.Service.Add(r.Context(), sess, ticketID, dto); err != nil {
		h.HandleServiceError(w, r, err, "Add comment", back)
		return
	}

	h.Success(w, r, "Comment added", back)
}
