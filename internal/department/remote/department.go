package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/frahmantamala/service-desk/internal/apiclient"
	departmentDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/department"
	"github.com/frahmantamala/service-desk/internal/session"
)

type Client interface {
	Do(ctx context.Context, sess *session.Session, req apiclient.Request, out interface{}) error
}

type DepartmentRepository struct {
	client Client
}

func NewDepartmentRepository(client Client) *DepartmentRepository {
	return &DepartmentRepository{client: client}
}

func (r *DepartmentRepository) List(ctx context.Context, sess *session.Session) ([]departmentDatamodel.Department, error) {
	var departments []departmentDatamodel.Department
	if err := r.client.Do(ctx, sess, apiclient.Request{Method: http.MethodGet, Path: "/departments"}, &departments); err != nil {
		return nil, err
	}
	if departments == nil {
		departments = []departmentDatamodel.Department{}
	}
	return departments, nil
}

func (r *DepartmentRepository) Create(ctx context.Context, sess *session.Session, req departmentDatamodel.WriteRequest) (*departmentDatamodel.Department, error) {
	var d departmentDatamodel.Department
	err := r.client.Do(ctx, sess, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/departments/",
		Body:   req,
	}, &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DepartmentRepository) Update(ctx context.Context, sess *session.Session, id string, req departmentDatamodel.WriteRequest) (*departmentDatamodel.Department, error) {
	var d departmentDatamodel.Department
	err := r.client.Do(ctx, sess, apiclient.Request{
		Method: http.MethodPatch,
		Path:   "/departments/" + url.PathEscape(id),
		Route:  "/departments/{id}",
		Body:   req,
	}, &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DepartmentRepository) Delete(ctx context.Context, sess *session.Session, id string) error {
	return r.client.Do(ctx, sess, apiclient.Request{
		Method: http.MethodDelete,
		Path:   "/departments/" + url.PathEscape(id),
		Route:  "/departments/{id}",
	}, nil)
}
