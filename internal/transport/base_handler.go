package transport

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/pkg/logger"
)

// Renderer executes a named page template.
type Renderer interface {
	Render(w io.Writer, name string, data interface{}) error
}

// Page is the data every template receives.
type Page struct {
	Title   string
	Path    string
	User    *session.User
	IsAdmin bool
	Flashes []Flash
	State   PageState
	Form    map[string]string
	Errors  map[string]string
	Data    interface{}
}

func (p *Page) Err(field string) string {
	return p.Errors[field]
}

func (p *Page) Value(field string) string {
	return p.Form[field]
}

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
	View   Renderer
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger, view Renderer) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg, View: view}
}

// Log returns the request-scoped logger, falling back to the handler's.
func (h *BaseHandler) Log(r *http.Request) *slog.Logger {
	if lg := logger.From(r.Context()); lg != nil && lg != slog.Default() {
		return lg
	}
	return h.Logger
}

// NewPage fills the layout fields from the request session.
func (h *BaseHandler) NewPage(r *http.Request, title string) *Page {
	page := &Page{
		Title:  title,
		Path:   r.URL.Path,
		State:  StateFromRequest(r),
		Form:   map[string]string{},
		Errors: map[string]string{},
	}
	sess := session.FromContext(r.Context())
	if u, ok := sess.User(); ok && sess.IsAuthenticated() {
		page.User = &u
		page.IsAdmin = u.IsAdmin()
	}
	return page
}

// Render executes the page template into a buffer so a template failure
// never leaves a half-written response.
func (h *BaseHandler) Render(w http.ResponseWriter, r *http.Request, status int, name string, page *Page) {
	page.Flashes = TakeFlashes(r)

	var buf bytes.Buffer
	if err := h.View.Render(&buf, name, page); err != nil {
		h.Log(r).Error("failed to render template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.Log(r).Warn("failed to write response", "error", err)
	}
}

// Redirect issues a 303 so the browser follows up with a GET.
func (h *BaseHandler) Redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// Success queues a toast and redirects.
func (h *BaseHandler) Success(w http.ResponseWriter, r *http.Request, message, url string) {
	AddFlash(r, FlashSuccess, message)
	h.Redirect(w, r, url)
}

// HandleServiceError turns a failed write into one flash and a redirect.
// A rejected session always ends on the login page.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error, action, backURL string) {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		appErr = internal.NewInternalError("Something went wrong", err)
	}

	switch appErr.Type {
	case internal.ErrorTypeUnauthorized:
		h.Log(r).Info("session rejected by backend", "action", action)
		AddFlash(r, FlashError, appErr.Message)
		h.Redirect(w, r, "/login")
		return
	case internal.ErrorTypeForbidden:
		AddFlash(r, FlashError, appErr.Message)
		h.Redirect(w, r, "/dashboard")
		return
	case internal.ErrorTypeValidation:
		AddFlash(r, FlashError, appErr.GetDetailedMessage())
	default:
		h.Log(r).Error("request failed", "action", action, "error", err)
		AddFlash(r, FlashError, action+": "+appErr.Message)
	}
	h.Redirect(w, r, backURL)
}

// HandleReadError renders the error page for a failed page load. Redirecting
// back would loop on the same failing read.
func (h *BaseHandler) HandleReadError(w http.ResponseWriter, r *http.Request, err error, action string) {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		appErr = internal.NewInternalError("Something went wrong", err)
	}

	if appErr.Type == internal.ErrorTypeUnauthorized {
		AddFlash(r, FlashError, appErr.Message)
		h.Redirect(w, r, "/login")
		return
	}

	status := appErr.StatusCode
	if appErr.Type == internal.ErrorTypeNotFound || appErr.Code == internal.ErrCodeResourceNotFound {
		status = http.StatusNotFound
	} else {
		h.Log(r).Error("page load failed", "action", action, "error", err)
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}

	page := h.NewPage(r, "Error")
	page.Data = map[string]string{
		"Action":  action,
		"Message": appErr.Message,
	}
	h.Render(w, r, status, "error", page)
}

// RenderInvalid re-renders a form with its field errors after a failed
// client-side validation. No backend request was made.
func (h *BaseHandler) RenderInvalid(w http.ResponseWriter, r *http.Request, name string, page *Page, err error) {
	if appErr, ok := internal.IsAppError(err); ok {
		page.Errors = appErr.FieldErrors()
		AddFlash(r, FlashError, appErr.GetDetailedMessage())
	}
	page.State = page.State.Failed()
	h.Render(w, r, http.StatusUnprocessableEntity, name, page)
}
