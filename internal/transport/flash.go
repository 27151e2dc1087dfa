package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
	FlashInfo    FlashKind = "info"
)

const flashCookie = "flash"

// Flash is one toast notification. It survives exactly one redirect.
type Flash struct {
	ID      string    `json:"id"`
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

type flashBag struct {
	mu       sync.Mutex
	incoming []Flash
	pending  []Flash
	taken    bool
}

type flashKey struct{}

// FlashMiddleware loads flashes delivered by the previous response and
// writes the ones queued by this request when the header goes out.
func FlashMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bag := &flashBag{incoming: readFlashCookie(r)}
		ctx := context.WithValue(r.Context(), flashKey{}, bag)

		hw := NewHookWriter(w, func(w http.ResponseWriter) {
			bag.flush(w)
		})
		next.ServeHTTP(hw, r.WithContext(ctx))
		hw.Commit()
	})
}

// AddFlash queues a notification for the next rendered page.
func AddFlash(r *http.Request, kind FlashKind, message string) {
	bag, ok := r.Context().Value(flashKey{}).(*flashBag)
	if !ok {
		return
	}
	bag.mu.Lock()
	defer bag.mu.Unlock()
	bag.pending = append(bag.pending, Flash{ID: uuid.NewString(), Kind: kind, Message: message})
}

// TakeFlashes returns every flash for display on the current response.
func TakeFlashes(r *http.Request) []Flash {
	bag, ok := r.Context().Value(flashKey{}).(*flashBag)
	if !ok {
		return nil
	}
	bag.mu.Lock()
	defer bag.mu.Unlock()

	out := append(append([]Flash(nil), bag.incoming...), bag.pending...)
	bag.incoming = nil
	bag.pending = nil
	bag.taken = true
	return out
}

func (b *flashBag) flush(w http.ResponseWriter) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case len(b.pending) > 0:
		carry := append(append([]Flash(nil), b.incoming...), b.pending...)
		raw, err := json.Marshal(carry)
		if err != nil {
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookie,
			Value:    base64.RawURLEncoding.EncodeToString(raw),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	case b.taken:
		http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})
	}
}

func readFlashCookie(r *http.Request) []Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil
	}
	return flashes
}
