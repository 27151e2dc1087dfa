package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/session"
)

const maxResponseBytes = 10 << 20

// Request describes one backend call. Path is relative to the base URL;
// Route is the templated path used for metrics and defaults to Path.
// Credentials marks a sign-in call, where a 401 rejects the submitted
// credentials and leaves the session alone.
type Request struct {
	Method      string
	Path        string
	Route       string
	Query       url.Values
	Body        interface{}
	Credentials bool
}

type Observer interface {
	ObserveBackend(method, route string, status int, d time.Duration)
}

type ResponseValidator interface {
	ValidateResponse(ctx context.Context, req *http.Request, status int, header http.Header, body []byte) error
}

type Config struct {
	BaseURL       string
	Timeout       time.Duration
	UploadTimeout time.Duration
}

type Client struct {
	baseURL       string
	httpClient    *http.Client
	timeout       time.Duration
	uploadTimeout time.Duration
	logger        *slog.Logger
	observer      Observer
	validator     ResponseValidator
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithValidator enables contract checks on every 2xx response.
func WithValidator(v ResponseValidator) Option {
	return func(c *Client) {
		c.validator = v
	}
}

func NewClient(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = internal.DefaultBackendTimeout
	}
	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = internal.DefaultUploadTimeout
	}

	c := &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    &http.Client{},
		timeout:       timeout,
		uploadTimeout: uploadTimeout,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends a JSON request and decodes a 2xx body into out (when non-nil).
// A 401 tears the session down before the error is returned, except on a
// Credentials request.
func (c *Client) Do(ctx context.Context, sess *session.Session, req Request, out interface{}) error {
	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return internal.NewInternalError("failed to encode request", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Path, req.Query), body)
	if err != nil {
		return internal.NewInternalError("failed to create request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return c.send(ctx, sess, httpReq, routeOf(req), req.Credentials, out)
}

// Ping reports whether the backend answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) send(ctx context.Context, sess *session.Session, httpReq *http.Request, route string, credentials bool, out interface{}) error {
	if token := sess.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(httpReq.Method, route, 0, start)
		c.logger.Warn("backend request failed",
			"method", httpReq.Method,
			"route", route,
			"error", err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return internal.NewExternalError("The server took too long to respond", 0, err)
		}
		return internal.NewExternalError("Could not reach the server", 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.observe(httpReq.Method, route, resp.StatusCode, start)
	if err != nil {
		return internal.NewExternalError("Failed to read server response", 0, err)
	}

	c.logger.Debug("backend request",
		"method", httpReq.Method,
		"route", route,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusUnauthorized && credentials {
		return internal.NewUnauthorizedError(backendMessage(raw, resp.StatusCode), internal.ErrCodeInvalidCredentials)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		sess.Expire()
		return internal.NewUnauthorizedError("Session expired, please sign in again", internal.ErrCodeSessionExpired)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return internal.NewExternalError(backendMessage(raw, resp.StatusCode), resp.StatusCode, nil)
	}

	if c.validator != nil {
		if err := c.validator.ValidateResponse(ctx, httpReq, resp.StatusCode, resp.Header, raw); err != nil {
			c.logger.Error("backend response violates contract", "route", route, "error", err)
			return err
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return internal.NewContractError(fmt.Sprintf("Unexpected response from %s %s", httpReq.Method, route), err)
	}
	return nil
}

func (c *Client) url(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) observe(method, route string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveBackend(method, route, status, time.Since(start))
	}
}

func routeOf(req Request) string {
	if req.Route != "" {
		return req.Route
	}
	return req.Path
}

// backendMessage extracts the human message the backend sends with errors.
func backendMessage(raw []byte, status int) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("server returned status %d", status)
}
