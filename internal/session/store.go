package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

var ErrInvalidCookie = errors.New("session cookie invalid")

type StoreConfig struct {
	CookieName string
	Secret     string
	MaxAge     time.Duration
	Secure     bool
}

// Store persists sessions in a client-side cookie sealed with secretbox.
// Nothing is kept server side and nothing is checked against the backend on read.
type Store struct {
	name   string
	key    [32]byte
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

func NewStore(cfg StoreConfig) (*Store, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("session secret must be at least 32 characters")
	}
	name := cfg.CookieName
	if name == "" {
		name = "token"
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 || maxAge > MaxLifetime {
		maxAge = MaxLifetime
	}
	return &Store{
		name:   name,
		key:    sha256.Sum256([]byte(cfg.Secret)),
		maxAge: maxAge,
		secure: cfg.Secure,
		now:    time.Now,
	}, nil
}

type payload struct {
	Token     string    `json:"t"`
	User      User      `json:"u"`
	ExpiresAt time.Time `json:"e"`
}

func (s *Store) CookieName() string {
	return s.name
}

// Load never fails: a missing, tampered or expired cookie yields an
// anonymous session.
func (s *Store) Load(r *http.Request) *Session {
	c, err := r.Cookie(s.name)
	if err != nil || c.Value == "" {
		return New()
	}
	p, err := s.open(c.Value)
	if err != nil || p.Token == "" || !s.now().Before(p.ExpiresAt) {
		return New()
	}
	return restore(p.User, p.Token, p.ExpiresAt)
}

// Save writes the cookie for an authenticated session and clears it otherwise.
func (s *Store) Save(w http.ResponseWriter, sess *Session) error {
	user, ok := sess.User()
	token := sess.Token()
	if !ok || token == "" || sess.State() != Authenticated {
		s.Clear(w)
		return nil
	}

	expiresAt := sess.ExpiresAt()
	if limit := s.now().Add(s.maxAge); expiresAt.IsZero() || expiresAt.After(limit) {
		expiresAt = limit
	}

	value, err := s.seal(payload{Token: token, User: user, ExpiresAt: expiresAt})
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Store) seal(p payload) (string, error) {
	plain, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("session nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *Store) open(value string) (payload, error) {
	var p payload
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) < 24+secretbox.Overhead {
		return p, ErrInvalidCookie
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &s.key)
	if !ok {
		return p, ErrInvalidCookie
	}
	if err := json.Unmarshal(plain, &p); err != nil {
		return p, ErrInvalidCookie
	}
	return p, nil
}
