package contract

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	apperrors "github.com/frahmantamala/service-desk/internal"
)

//go:embed backend.openapi.yml
var specYAML []byte

// Spec returns the pinned backend contract as served at /contract/openapi.yml.
func Spec() []byte {
	return specYAML
}

// Validator checks backend responses against the pinned contract.
type Validator struct {
	doc    *openapi3.T
	router routers.Router
}

// Load parses the embedded contract and binds it to the backend base URL.
func Load(ctx context.Context, baseURL string) (*Validator, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("load backend contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("backend contract invalid: %w", err)
	}

	doc.Servers = openapi3.Servers{{URL: baseURL}}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build contract router: %w", err)
	}

	return &Validator{doc: doc, router: router}, nil
}

func (v *Validator) Doc() *openapi3.T {
	return v.doc
}

// ValidateResponse returns a CONTRACT_ERROR when a 2xx response violates the
// contract. Operations the contract does not describe are not checked.
func (v *Validator) ValidateResponse(ctx context.Context, req *http.Request, status int, header http.Header, body []byte) error {
	if status < 200 || status >= 300 {
		return nil
	}

	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		// not part of the pinned surface
		return nil
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
			Options:    &openapi3filter.Options{ExcludeRequestBody: true},
		},
		Status: status,
		Header: header,
		Body:   io.NopCloser(bytes.NewReader(body)),
		Options: &openapi3filter.Options{
			IncludeResponseStatus: false,
		},
	}

	if err := openapi3filter.ValidateResponse(ctx, input); err != nil {
		return apperrors.NewContractError(
			fmt.Sprintf("Unexpected response from %s %s", req.Method, route.Path), err)
	}
	return nil
}
