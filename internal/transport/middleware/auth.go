package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/transport"
	"github.com/frahmantamala/service-desk/pkg/logger"
)

// LoadSession restores the session from its cookie and places it in the
// request context. The cookie is rewritten, or cleared, before the response
// header goes out whenever the handler changed the session.
func LoadSession(store *session.Store, lg *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := store.Load(r)

			ctx := session.NewContext(r.Context(), sess)
			if u, ok := sess.User(); ok {
				ctx = logger.With(ctx, "user_id", u.ID, "role", u.Role)
			}

			hw := transport.NewHookWriter(w, func(w http.ResponseWriter) {
				if !sess.Changed() {
					return
				}
				if err := store.Save(w, sess); err != nil {
					lg.Error("failed to save session cookie", "error", err)
				}
			})
			next.ServeHTTP(hw, r.WithContext(ctx))
			hw.Commit()
		})
	}
}

// RequireSession sends visitors without a live session to the login page.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if !sess.IsAuthenticated() {
			if sess.State() == session.Expired {
				transport.AddFlash(r, transport.FlashError, "Session expired, please sign in again")
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GuestOnly keeps signed-in users away from the login and register pages.
func GuestOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.FromContext(r.Context()).IsAuthenticated() {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
