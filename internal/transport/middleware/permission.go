package middleware

import (
	"net/http"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/transport"
	"github.com/frahmantamala/service-desk/pkg/logger"
)

// RequireAdmin gates the department and user management pages.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if !sess.IsAuthenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !sess.IsAdmin() {
			u, _ := sess.User()
			logger.From(r.Context()).Warn("access denied: admin role required",
				"user_id", u.ID,
				"role", u.Role,
				"path", r.URL.Path)
			transport.AddFlash(r, transport.FlashError, internal.ErrAdminOnly.Message)
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
