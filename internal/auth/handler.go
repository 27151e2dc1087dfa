package auth

import (
	"context"
	"net/http"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/transport"
)

type ServiceAPI interface {
	Login(ctx context.Context, sess *session.Session, dto LoginDTO) (session.User, error)
	Register(ctx context.Context, sess *session.Session, dto RegisterDTO) error
	Logout(sess *session.Session)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, http.StatusOK, "landing", h.NewPage(r, "Service Desk"))
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, http.StatusOK, "login", h.NewPage(r, "Sign in"))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		transport.AddFlash(r, transport.FlashError, "Invalid form submission")
		h.Redirect(w, r, "/login")
		return
	}

	dto := LoginDTO{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}
	sess := session.FromContext(r.Context())

	user, err := h.Service.Login(r.Context(), sess, dto)
	if err != nil {
		if internal.IsValidation(err) {
			page := h.NewPage(r, "Sign in")
			page.Form["email"] = dto.Email
			h.RenderInvalid(w, r, "login", page, err)
			return
		}
		h.HandleServiceError(w, r, err, "Sign in", "/login")
		return
	}

	h.Success(w, r, "Welcome back, "+user.Name, "/dashboard")
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	page := h.NewPage(r, "Create account")
	page.Form["role"] = session.RoleStaff
	h.Render(w, r, http.StatusOK, "register", page)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		transport.AddFlash(r, transport.FlashError, "Invalid form submission")
		h.Redirect(w, r, "/register")
		return
	}

	dto := RegisterDTO{
		Name:     r.PostForm.Get("name"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
		Role:     r.PostForm.Get("role"),
	}
	sess := session.FromContext(r.Context())

	if err := h.Service.Register(r.Context(), sess, dto); err != nil {
		if internal.IsValidation(err) {
			page := h.NewPage(r, "Create account")
			page.Form["name"] = dto.Name
			page.Form["email"] = dto.Email
			page.Form["role"] = dto.Role
			h.RenderInvalid(w, r, "register", page, err)
			return
		}
		h.HandleServiceError(w, r, err, "Create account", "/register")
		return
	}

	h.Success(w, r, "Account created, you can sign in now", "/login")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Service.Logout(session.FromContext(r.Context()))
	h.Success(w, r, "Signed out", "/login")
}
