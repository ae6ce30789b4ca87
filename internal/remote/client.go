// Package remote talks to the bearer-token REST backend.
//
// Every call carries the session token; a call without one is refused before it is
// sent. A 401 discards the token. Response bodies are returned raw: callers run them
// through the lenient decoder because the backend's envelopes are not consistent.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bizdash/internal/auth"
	"bizdash/internal/decode"
	"bizdash/internal/log"
	"bizdash/internal/trace"
)

const (
	maxBodyBytes   = 10 << 20
	defaultTimeout = 15 * time.Second
)

// Request describes one backend call. Body is JSON-encoded unless it is already
// []byte or an io.Reader.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

func (r Request) String() string {
	return r.Method + " " + r.Path
}

// Response is a 2xx reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Empty reports a reply with no usable body (204 or whitespace).
func (r *Response) Empty() bool {
	return r == nil || len(bytes.TrimSpace(r.Body)) == 0
}

// Decoded runs the body through the lenient decoder. Undecodable bodies yield nil.
func (r *Response) Decoded() any {
	if r.Empty() {
		return nil
	}
	return decode.DecodeBytes(r.Body)
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	session *auth.Session
	logger  *log.Logger
}

type options struct {
	httpClient *http.Client
	transport  http.RoundTripper
	timeout    time.Duration
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient replaces the underlying client entirely, transport included.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTransport sets the round tripper beneath the request-id layer.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTimeout bounds each call, body included.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func New(baseURL string, session *auth.Session, opts ...Option) *Client {
	o := options{timeout: defaultTimeout, logger: log.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.WithComponent(log.ComponentRemote)

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{
			Timeout:   o.timeout,
			Transport: trace.NewTransport(o.transport, logger),
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		session: session,
		logger:  logger,
	}
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *auth.Session { return c.session }

// Do sends req and classifies the reply. Errors are auth.ErrNotAuthenticated,
// ErrUnauthorized (token already discarded), *StatusError or ErrTransport.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", req, err)
	}
	return c.send(ctx, req, body, contentType)
}

func (c *Client) send(ctx context.Context, req Request, body io.Reader, contentType string) (*Response, error) {
	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req), body)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", req, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if id := trace.GetRequestID(ctx); id != "" {
		httpReq.Header.Set(trace.HeaderRequestID, id)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, req, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrTransport, req, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.session.Logout(ctx); err != nil {
			c.logger.WarnContext(ctx, "Failed to discard token after 401", log.FieldError, err.Error())
		}
		c.logger.WarnContext(ctx, "Backend rejected token, session cleared",
			log.FieldMethod, req.Method, log.FieldPath, req.Path)
		return nil, &StatusError{Code: resp.StatusCode, Body: string(raw), Method: req.Method, Path: req.Path}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(raw), Method: req.Method, Path: req.Path}
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

func (c *Client) url(req Request) string {
	u := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

// Get is Do for a GET without body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(b), "application/json", nil
	case io.Reader:
		return b, "application/octet-stream", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// IsAuthFailure reports errors that require the user to log in again.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, auth.ErrNotAuthenticated)
}
