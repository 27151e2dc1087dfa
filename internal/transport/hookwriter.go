package transport

import "net/http"

// HookWriter runs a callback exactly once, right before the response header
// is sent, so cookies can still be set by middleware after the handler ran.
type HookWriter struct {
	http.ResponseWriter
	before func(http.ResponseWriter)
	done   bool
}

func NewHookWriter(w http.ResponseWriter, before func(http.ResponseWriter)) *HookWriter {
	return &HookWriter{ResponseWriter: w, before: before}
}

func (hw *HookWriter) fire() {
	if hw.done {
		return
	}
	hw.done = true
	hw.before(hw.ResponseWriter)
}

func (hw *HookWriter) WriteHeader(code int) {
	hw.fire()
	hw.ResponseWriter.WriteHeader(code)
}

func (hw *HookWriter) Write(b []byte) (int, error) {
	hw.fire()
	return hw.ResponseWriter.Write(b)
}

// Commit fires the hook if nothing has been written yet. Middleware calls it
// after the handler returns so an empty 200 still carries the cookies.
func (hw *HookWriter) Commit() {
	hw.fire()
}

// Flush fires the hook for handlers that never wrote anything.
func (hw *HookWriter) Flush() {
	hw.fire()
	if f, ok := hw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (hw *HookWriter) Unwrap() http.ResponseWriter {
	return hw.ResponseWriter
}
