package dashboard

import (
	"context"
	"net/http"

	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/transport"
)

type ServiceAPI interface {
	Stats(ctx context.Context, sess *session.Session) (*Stats, error)
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

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.HandleReadError(w, r, err, "Load dashboard")
		return
	}

	page := h.NewPage(r, "Dashboard")
	page.Data = stats
	h.Render(w, r, http.StatusOK, "dashboard", page)
}
