package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/apiclient"
	ticketDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/ticket"
	"github.com/frahmantamala/service-desk/internal/session"
)

type Client interface {
	Do(ctx context.Context, sess *session.Session, req apiclient.Request, out interface{}) error
}

type TicketRepository struct {
	client Client
}

func NewTicketRepository(client Client) *TicketRepository {
	return &TicketRepository{client: client}
}

func (r *TicketRepository) List(ctx context.Context, sess *session.Session, q ticketDatamodel.ListQuery) (*ticketDatamodel.ListEnvelope, error) {
	query := url.Values{}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Status != "" {
		query.Set("status", q.Status)
	}

	var raw json.RawMessage
	err := r.client.Do(ctx, sess, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/tickets/",
		Query:  query,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return DecodeListEnvelope(raw)
}

// DecodeListEnvelope accepts only {"data": [...], "meta": ..., "summary": ...}.
// A bare array or a "tickets" field is a contract violation, not an
// alternative shape.
func DecodeListEnvelope(raw []byte) (*ticketDatamodel.ListEnvelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, internal.NewContractError("Ticket list must be an object with a data field", nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, internal.NewContractError("Ticket list is not valid JSON", err)
	}
	data, ok := fields["data"]
	if !ok {
		if _, legacy := fields["tickets"]; legacy {
			return nil, internal.NewContractError("Ticket list uses the unsupported tickets field", nil)
		}
		return nil, internal.NewContractError("Ticket list has no data field", nil)
	}
	if d := bytes.TrimSpace(data); len(d) == 0 || d[0] != '[' {
		return nil, internal.NewContractError("Ticket list data must be an array", nil)
	}

	var env ticketDatamodel.ListEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, internal.NewContractError("Ticket list has an unexpected shape", err)
	}
	return &env, nil
}

func (r *TicketRepository) Get(ctx context.Context, sess *session.Session, id string) (*ticketDatamodel.Ticket, error) {
	var t ticketDatamodel.Ticket
	err := r.client.Do(ctx, sess, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/tickets/" + url.PathEscape(id),
		Route:  "/tickets/{id}",
	}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TicketRepository) Create(ctx context.Context, sess *session.Session, req ticketDatamodel.CreateRequest) (*ticketDatamodel.Ticket, error) {
	var t ticketDatamodel.Ticket
	err := r.client.Do(ctx, sess, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/tickets/",
		Body:   req,
	}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TicketRepository) Update(ctx context.Context, sess *session.Session, id string, req ticketDatamodel.UpdateRequest) (*ticketDatamodel.Ticket, error) {
	var t ticketDatamodel.Ticket
	err := r.client.Do(ctx, sess, apiclient.Request{
		Method: http.MethodPatch,
		Path:   "/tickets/" + url.PathEscape(id),
		Route:  "/tickets/{id}",
		Body:   req,
	}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TicketRepository) Delete(ctx context.Context, sess *session.Session, id string) error {
	return r.client.Do(ctx, sess, apiclient.Request{
		Method: http.MethodDelete,
		Path:   "/tickets/" + url.PathEscape(id),
		Route:  "/tickets/{id}",
	}, nil)
}
