package ticket

import (
	"bytes"
	"encoding/json"
	"time"
)

type Ticket struct {
	ID          string        `json:"_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Priority    string        `json:"priority"`
	Department  DepartmentRef `json:"departmentId"`
	User        UserRef       `json:"user"`
	Attachments []Attachment  `json:"attachments,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// DepartmentRef is the populated departmentId field. An unpopulated
// reference arrives as a bare id string.
type DepartmentRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

func (d *DepartmentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &d.ID)
	}
	type plain DepartmentRef
	return json.Unmarshal(data, (*plain)(d))
}

type UserRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Attachment struct {
	URL          string `json:"url"`
	OriginalName string `json:"originalName"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type Meta struct {
	Pagination Pagination `json:"pagination"`
}

type Summary struct {
	Status map[string]int `json:"status"`
}

// ListEnvelope is the only accepted shape of GET /tickets/.
type ListEnvelope struct {
	Data    []Ticket `json:"data"`
	Meta    Meta     `json:"meta"`
	Summary Summary  `json:"summary"`
}

type ListQuery struct {
	Page   int
	Limit  int
	Status string
}

type CreateRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	DepartmentID string   `json:"departmentId"`
	Priority     string   `json:"priority"`
	Attachments  []string `json:"attachments,omitempty"`
}

type UpdateRequest struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	Status       *string `json:"status,omitempty"`
	Priority     *string `json:"priority,omitempty"`
	DepartmentID *string `json:"departmentId,omitempty"`
}
