package transport

import (
	"fmt"
	"net/http"
)

// Mode is the single UI state of a page. It replaces independent
// edit/dialog/loading flags so that "editing while submitting" cannot exist.
type Mode int

const (
	Viewing Mode = iota
	Editing
	Submitting
)

func (m Mode) String() string {
	switch m {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	default:
		return "viewing"
	}
}

// PageState is derived from the request: POST means Submitting, ?mode=edit or
// an open ?dialog= means Editing, anything else is Viewing. The navigation
// panel is layout chrome and is tracked separately.
type PageState struct {
	Mode    Mode
	Dialog  string
	Target  string
	NavOpen bool
}

var allowed = map[Mode][]Mode{
	Viewing:    {Editing},
	Editing:    {Viewing, Submitting},
	Submitting: {Viewing, Editing},
}

func StateFromRequest(r *http.Request) PageState {
	q := r.URL.Query()
	state := PageState{
		Dialog:  q.Get("dialog"),
		Target:  q.Get("id"),
		NavOpen: q.Get("nav") == "open",
	}

	switch {
	case r.Method == http.MethodPost:
		state.Mode = Submitting
	case q.Get("mode") == "edit" || state.Dialog != "":
		state.Mode = Editing
	default:
		state.Mode = Viewing
	}
	return state
}

// To moves to the next mode, rejecting transitions the page cannot make.
func (s PageState) To(next Mode) (PageState, error) {
	for _, m := range allowed[s.Mode] {
		if m == next {
			s.Mode = next
			if next == Viewing {
				s.Dialog = ""
				s.Target = ""
			}
			return s, nil
		}
	}
	return s, fmt.Errorf("invalid page transition %s -> %s", s.Mode, next)
}

// Failed returns a submitting page to editing so the form is shown again.
func (s PageState) Failed() PageState {
	if next, err := s.To(Editing); err == nil {
		return next
	}
	return s
}

func (s PageState) IsEditing() bool {
	return s.Mode == Editing
}

func (s PageState) DialogOpen(name string) bool {
	return s.Mode != Viewing && s.Dialog == name
}
