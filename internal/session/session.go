package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	Expired
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return "anonymous"
	}
}

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// MaxLifetime is the fixed window a login stays valid for.
const MaxLifetime = 7 * 24 * time.Hour

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session is the explicit auth state of one browser session. It is built
// from the cookie per request and handed to every backend call.
type Session struct {
	mu        sync.Mutex
	user      *User
	token     string
	state     State
	expiresAt time.Time
	changed   bool
	now       func() time.Time
}

func New() *Session {
	return &Session{state: Anonymous, now: time.Now}
}

func restore(user User, token string, expiresAt time.Time) *Session {
	return &Session{
		user:      &user,
		token:     token,
		state:     Authenticated,
		expiresAt: expiresAt,
		now:       time.Now,
	}
}

// Begin marks a login in flight.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Authenticating
}

// Login stores the user and token. Expiry is MaxLifetime from now, capped by
// the token's own exp claim when the token is a JWT.
func (s *Session) Login(user User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := user
	s.user = &u
	s.token = token
	s.state = Authenticated
	s.expiresAt = ExpiryFor(token, s.now(), MaxLifetime)
	s.changed = true
}

func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear(Anonymous)
}

// Expire is the forced teardown after the backend rejected the token.
func (s *Session) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear(Expired)
}

func (s *Session) clear(state State) {
	s.user = nil
	s.token = ""
	s.state = state
	s.expiresAt = time.Time{}
	s.changed = true
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Authenticated && s.token != ""
}

func (s *Session) IsAdmin() bool {
	u, ok := s.User()
	return ok && u.IsAdmin()
}

// Changed reports whether the cookie must be rewritten.
func (s *Session) Changed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// ExpiryFor returns now+window, or the token's exp claim if that is earlier.
// The token is not verified; the backend remains the authority.
func ExpiryFor(token string, now time.Time, window time.Duration) time.Time {
	expiry := now.Add(window)
	if strings.Count(token, ".") != 2 {
		return expiry
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return expiry
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return expiry
	}
	if exp.Time.Before(expiry) {
		return exp.Time
	}
	return expiry
}

// FallbackUser derives a user when the login response carries none.
func FallbackUser(email string) User {
	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	if name == "" {
		name = "user"
	}
	return User{Name: name, Email: email, Role: RoleStaff}
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request session, or a fresh anonymous one.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok && s != nil {
		return s
	}
	return New()
}
