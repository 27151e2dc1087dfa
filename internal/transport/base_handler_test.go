package transport_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubView struct {
	name string
	page *transport.Page
	fail bool
}

func (v *stubView) Render(w io.Writer, name string, data interface{}) error {
	if v.fail {
		return errors.New("template exploded")
	}
	v.name = name
	v.page = data.(*transport.Page)
	_, err := fmt.Fprintf(w, "<h1>%s</h1>", v.page.Title)
	return err
}

var _ = Describe("BaseHandler", func() {
	var (
		view *stubView
		h    *transport.BaseHandler
	)

	BeforeEach(func() {
		view = &stubView{}
		h = transport.NewBaseHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), view)
	})

	serve := func(method, target string, fn http.HandlerFunc) (*httptest.ResponseRecorder, []transport.Flash) {
		var flashes []transport.Flash
		rec := httptest.NewRecorder()
		transport.FlashMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fn(w, r)
			flashes = transport.TakeFlashes(r)
		})).ServeHTTP(rec, httptest.NewRequest(method, target, nil))
		return rec, flashes
	}

	It("should redirect to login when the backend rejected the session", func() {
		rec, flashes := serve(http.MethodPost, "/dashboard/tickets/t1", func(w http.ResponseWriter, r *http.Request) {
			err := internal.NewUnauthorizedError("Session expired, please sign in again", internal.ErrCodeSessionExpired)
			h.HandleServiceError(w, r, err, "Update ticket", "/dashboard/tickets/t1")
		})
		Expect(rec.Code).To(Equal(http.StatusSeeOther))
		Expect(rec.Header().Get("Location")).To(Equal("/login"))
		Expect(flashes).To(HaveLen(1))
	})

	It("should name the failed action in the flash", func() {
		rec, flashes := serve(http.MethodPost, "/dashboard/departments", func(w http.ResponseWriter, r *http.Request) {
			err := internal.NewExternalError("Department name already exists", http.StatusConflict, nil)
			h.HandleServiceError(w, r, err, "Create department", "/dashboard/departments")
		})
		Expect(rec.Header().Get("Location")).To(Equal("/dashboard/departments"))
		Expect(flashes).To(HaveLen(1))
		Expect(flashes[0].Message).To(Equal("Create department: Department name already exists"))
	})

	It("should render the error page with 404 for a missing resource", func() {
		rec, _ := serve(http.MethodGet, "/dashboard/tickets/nope", func(w http.ResponseWriter, r *http.Request) {
			h.HandleReadError(w, r, internal.NewExternalError("Ticket not found", http.StatusNotFound, nil), "Load ticket")
		})
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(view.name).To(Equal("error"))
	})

	It("should answer 500 without partial output when the template fails", func() {
		view.fail = true
		rec, _ := serve(http.MethodGet, "/dashboard", func(w http.ResponseWriter, r *http.Request) {
			h.Render(w, r, http.StatusOK, "dashboard", h.NewPage(r, "Dashboard"))
		})
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).NotTo(ContainSubstring("<h1>"))
	})

	It("should re-render an invalid form with field errors", func() {
		rec, _ := serve(http.MethodPost, "/dashboard/tickets/new", func(w http.ResponseWriter, r *http.Request) {
			page := h.NewPage(r, "New ticket")
			err := internal.NewValidationFieldError("title", "Title is required", internal.ErrCodeRequired)
			h.RenderInvalid(w, r, "ticket_new", page, err)
		})
		Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
		Expect(view.page.Err("title")).To(Equal("Title is required"))
		Expect(view.page.State.Mode).To(Equal(transport.Editing))
	})
})
