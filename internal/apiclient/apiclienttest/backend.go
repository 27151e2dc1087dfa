// Package apiclienttest runs an in-memory helpdesk API for handler and
// end-to-end tests.
package apiclienttest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	commentDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/comment"
	departmentDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/department"
	ticketDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/ticket"
	userDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/user"
	"github.com/go-chi/chi"
)

type Recorded struct {
	Method        string
	Path          string
	Query         string
	Authorization string
}

type account struct {
	user     userDatamodel.User
	password string
}

// Backend is a fake of the remote API. Every route except login and
// register needs a bearer token issued by login.
type Backend struct {
	*httptest.Server

	mu          sync.Mutex
	accounts    map[string]*account
	tokens      map[string]string
	tickets     map[string]*ticketDatamodel.Ticket
	departments map[string]*departmentDatamodel.Department
	comments    map[string][]commentDatamodel.Comment
	requests    []Recorded
	seq         int

	// OmitLoginUser drops the user object from login responses.
	OmitLoginUser bool
	// ListBody, when set, replaces the GET /tickets/ response body.
	ListBody string
}

func NewBackend() *Backend {
	b := &Backend{
		accounts:    make(map[string]*account),
		tokens:      make(map[string]string),
		tickets:     make(map[string]*ticketDatamodel.Ticket),
		departments: make(map[string]*departmentDatamodel.Department),
		comments:    make(map[string][]commentDatamodel.Comment),
	}

	r := chi.NewRouter()
	r.Use(b.record)
	r.Head("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Post("/auth/login", b.login)
	r.Post("/auth/register", b.register)

	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)
		r.Get("/tickets/", b.listTickets)
		r.Post("/tickets/", b.createTicket)
		r.Get("/tickets/{id}", b.getTicket)
		r.Patch("/tickets/{id}", b.updateTicket)
		r.Delete("/tickets/{id}", b.deleteTicket)
		r.Get("/tickets/{id}/comments", b.listComments)
		r.Post("/tickets/{id}/comments", b.createComment)
		r.Get("/departments", b.listDepartments)
		r.Post("/departments/", b.createDepartment)
		r.Patch("/departments/{id}", b.updateDepartment)
		r.Delete("/departments/{id}", b.deleteDepartment)
		r.Get("/users", b.listUsers)
		r.Patch("/users/{id}", b.updateUser)
		r.Delete("/users/{id}", b.deleteUser)
		r.Post("/uploads/", b.upload)
	})

	b.Server = httptest.NewServer(r)
	return b
}

func (b *Backend) next(prefix string) string {
	b.seq++
	return prefix + strconv.Itoa(b.seq)
}

// AddUser registers an account that can log in.
func (b *Backend) AddUser(name, email, password, role string) userDatamodel.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := userDatamodel.User{ID: b.next("u"), Name: name, Email: email, Role: role, IsActive: true, CreatedAt: time.Now()}
	b.accounts[email] = &account{user: u, password: password}
	return u
}

func (b *Backend) AddDepartment(name string) departmentDatamodel.Department {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := &departmentDatamodel.Department{ID: b.next("d"), Name: name, CreatedAt: time.Now()}
	b.departments[d.ID] = d
	return *d
}

func (b *Backend) AddTicket(title, status, departmentID string) ticketDatamodel.Ticket {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &ticketDatamodel.Ticket{
		ID:          b.next("t"),
		Title:       title,
		Description: "Details for " + title,
		Status:      status,
		Priority:    "medium",
		Department:  b.departmentRef(departmentID),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	b.tickets[t.ID] = t
	return *t
}

// Issue returns a valid token for an existing account without a login call.
func (b *Backend) Issue(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	token := "tok-" + b.next("")
	b.tokens[token] = email
	return token
}

// TokenFor returns a live token issued to email, or "" when none is.
func (b *Backend) TokenFor(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for token, owner := range b.tokens {
		if owner == email {
			return token
		}
	}
	return ""
}

// RevokeAll invalidates every issued token.
func (b *Backend) RevokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = make(map[string]string)
}

func (b *Backend) Requests() []Recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Recorded(nil), b.requests...)
}

// Count returns how many requests matched method and path.
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) Ticket(id string) (ticketDatamodel.Ticket, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tickets[id]
	if !ok {
		return ticketDatamodel.Ticket{}, false
	}
	return *t, true
}

func (b *Backend) User(email string) (userDatamodel.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[email]
	if !ok {
		return userDatamodel.User{}, false
	}
	return a.user, true
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		_, ok := b.tokens[token]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) departmentRef(id string) ticketDatamodel.DepartmentRef {
	ref := ticketDatamodel.DepartmentRef{ID: id}
	if d, ok := b.departments[id]; ok {
		ref.Name = d.Name
	}
	return ref
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid body"})
		return
	}

	b.mu.Lock()
	a, ok := b.accounts[req.Email]
	b.mu.Unlock()
	if !ok || a.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}

	token := b.Issue(req.Email)
	resp := map[string]interface{}{"token": token}
	if !b.OmitLoginUser {
		resp["user"] = a.user
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid body"})
		return
	}
	b.mu.Lock()
	_, exists := b.accounts[req.Email]
	b.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email already registered"})
		return
	}
	u := b.AddUser(req.Name, req.Email, req.Password, req.Role)
	writeJSON(w, http.StatusCreated, u)
}

func (b *Backend) listTickets(w http.ResponseWriter, r *http.Request) {
	if b.ListBody != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, b.ListBody)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	status := r.URL.Query().Get("status")
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	b.mu.Lock()
	summary := map[string]int{"pending": 0, "in-progress": 0, "resolved": 0}
	var matched []ticketDatamodel.Ticket
	for _, t := range b.tickets {
		summary[t.Status]++
		if status == "" || t.Status == status {
			matched = append(matched, *t)
		}
	}
	b.mu.Unlock()
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	data := matched[start:end]
	if data == nil {
		data = []ticketDatamodel.Ticket{}
	}

	writeJSON(w, http.StatusOK, ticketDatamodel.ListEnvelope{
		Data: data,
		Meta: ticketDatamodel.Meta{Pagination: ticketDatamodel.Pagination{
			Page: page, Limit: limit, Total: total, Pages: (total + limit - 1) / limit,
		}},
		Summary: ticketDatamodel.Summary{Status: summary},
	})
}

func (b *Backend) getTicket(w http.ResponseWriter, r *http.Request) {
	t, ok := b.Ticket(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Ticket not found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (b *Backend) createTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketDatamodel.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid body"})
		return
	}

	b.mu.Lock()
	t := &ticketDatamodel.Ticket{
		ID:          b.next("t"),
		Title:       req.Title,
		Description: req.Description,
		Status:      "pending",
		Priority:    req.Priority,
		Department:  b.departmentRef(req.DepartmentID),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	for _, u := range req.Attachments {
		t.Attachments = append(t.Attachments, ticketDatamodel.Attachment{URL: u})
	}
	b.tickets[t.ID] = t
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, t)
}

func (b *Backend) updateTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketDatamodel.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tickets[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Ticket not found"})
		return
	}
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	t.UpdatedAt = time.Now()
	writeJSON(w, http.StatusOK, t)
}

func (b *Backend) deleteTicket(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	delete(b.tickets, chi.URLParam(r, "id"))
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listComments(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	comments := append([]commentDatamodel.Comment{}, b.comments[chi.URLParam(r, "id")]...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, comments)
}

func (b *Backend) createComment(w http.ResponseWriter, r *http.Request) {
	var req commentDatamodel.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid body"})
		return
	}
	id := chi.URLParam(r, "id")

	b.mu.Lock()
	c := commentDatamodel.Comment{ID: b.next("c"), Message: req.Message, TicketID: id, CreatedAt: time.Now()}
	if email, ok := b.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]; ok {
		if a, ok := b.accounts[email]; ok {
			c.User = commentDatamodel.Author{ID: a.user.ID, Name: a.user.Name}
		}
	}
	b.comments[id] = append(b.comments[id], c)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, c)
}

func (b *Backend) listDepartments(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	out := make([]departmentDatamodel.Department, 0, len(b.departments))
	for _, d := range b.departments {
		out = append(out, *d)
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentDatamodel.WriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid body"})
		return
	}
	b.mu.Lock()
	d := &departmentDatamodel.Department{ID: b.next("d"), Name: req.Name, Description: req.Description, CreatedAt: time.Now()}
	b.departments[d.ID] = d
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, d)
}

func (b *Backend) updateDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentDatamodel.WriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.departments[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Department not found"})
		return
	}
	d.Name = req.Name
	d.Description = req.Description
	for _, t := range b.tickets {
		if t.Department.ID == d.ID {
			t.Department.Name = d.Name
		}
	}
	writeJSON(w, http.StatusOK, d)
}

func (b *Backend) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	delete(b.departments, chi.URLParam(r, "id"))
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listUsers(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	out := make([]userDatamodel.User, 0, len(b.accounts))
	for _, a := range b.accounts {
		out = append(out, a.user)
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) findAccount(id string) *account {
	for _, a := range b.accounts {
		if a.user.ID == id {
			return a
		}
	}
	return nil
}

func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request) {
	var req userDatamodel.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findAccount(chi.URLParam(r, "id"))
	if a == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	if req.IsActive != nil {
		a.user.IsActive = *req.IsActive
	}
	writeJSON(w, http.StatusOK, a.user)
}

func (b *Backend) deleteUser(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a := b.findAccount(chi.URLParam(r, "id")); a != nil {
		delete(b.accounts, a.user.Email)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "No file"})
		return
	}
	defer file.Close()
	_, _ = io.Copy(io.Discard, file)

	b.mu.Lock()
	id := b.next("f")
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{
		"url":          fmt.Sprintf("%s/files/%s/%s", b.URL, id, header.Filename),
		"originalName": header.Filename,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
