package sanctum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mrlokans/sanctum-auth/internal/config"
	"github.com/mrlokans/sanctum-auth/internal/entities"
)

// Client is the authenticated fetch client plus the auth helpers built on it.
type Client struct {
	cfg        config.Sanctum
	baseURL    string
	httpClient *http.Client
	states     StateStore
	logger     Logger
}

// Options allows overriding the client's dependencies.
type Options struct {
	HTTPClient *http.Client
	States     StateStore
	Logger     Logger
}

// NewClient creates a client for the backend described by cfg.
func NewClient(cfg config.Sanctum, opts Options) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	states := opts.States
	if states == nil {
		states = NewMemoryStore()
	}
	logger := opts.Logger
	if logger == nil {
		logger = stdLogger{}
	}

	return &Client{
		cfg:        cfg,
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		states:     states,
		logger:     logger,
	}, nil
}

// Config returns the backend contract the client was built with.
func (c *Client) Config() config.Sanctum {
	return c.cfg
}

// State returns the AuthState visible through ctx.
func (c *Client) State(ctx context.Context) entities.AuthState {
	return c.states.Load(ctx)
}

// Request describes one call to the backend.
type Request struct {
	Method string
	// Path is joined onto the base URL unless it is already absolute
	Path    string
	Query   url.Values
	Headers http.Header
	// Body is sent as is when it is a string, []byte, io.Reader or url.Values,
	// and JSON encoded otherwise.
	Body any
}

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Fetch sends req through the request interceptor:
//
//   - Accept: application/json, then the caller's headers;
//   - the CSRF header when a token is known; in a browser context mutating
//     requests first make sure the CSRF cookie exists;
//   - Authorization: Bearer <token> in token mode, no Authorization otherwise;
//   - the cookie header of rc, which on the server is the inbound one verbatim;
//   - the configured base URL.
//
// Non-2xx responses are returned together with an *HTTPError. 5xx responses are
// logged as well.
func (c *Client) Fetch(ctx context.Context, rc RequestContext, req Request) (*Response, error) {
	return c.fetch(ctx, rc, "fetch", req)
}

func (c *Client) fetch(ctx context.Context, rc RequestContext, op string, req Request) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	token := rc.Cookie(c.cfg.CSRF.CookieKey)
	if !rc.IsServer() && isMutating(method) {
		var err error
		token, err = c.InitCSRF(ctx, rc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	for key, values := range req.Headers {
		header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
	if token != "" {
		header.Set(c.cfg.CSRF.HeaderKey, token)
	}
	if c.cfg.Token {
		header.Set("Authorization", "Bearer "+c.states.Load(ctx).Token)
	} else {
		header.Del("Authorization")
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if contentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", contentType)
	}

	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.send(ctx, rc, op, method, target, header, body)
	if resp != nil && resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Printf("[Laravel Error] %s %s: %d %s %s", method, target, resp.StatusCode, http.StatusText(resp.StatusCode), string(resp.Body))
	}
	return resp, err
}

// send performs one round trip with rc's cookies and feeds the response's
// cookies back into rc.
func (c *Client) send(ctx context.Context, rc RequestContext, op, method string, target *url.URL, header http.Header, body io.Reader) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	httpReq.Header = header
	if cookie := rc.CookieHeader(target); cookie != "" {
		httpReq.Header.Set("Cookie", cookie)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer httpResp.Body.Close()

	rc.AcceptCookies(target, httpResp.Cookies())

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return resp, &HTTPError{
			Op:         op,
			Method:     method,
			URL:        target.String(),
			StatusCode: httpResp.StatusCode,
			Body:       data,
		}
	}
	return resp, nil
}

// resolve joins path onto the base URL the way a fetch base URL does: by
// concatenation, so a base of "https://api.test/v1" keeps its "/v1".
func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	raw := path
	if !hasScheme(path) {
		raw = strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", raw, err)
	}
	if len(query) > 0 {
		q := u.Query()
		for key, values := range query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func hasScheme(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// encodeBody mirrors what a fetch wrapper does with a body: strings are taken
// to be JSON already, raw bytes and readers pass through, forms are url
// encoded and anything else is marshalled to JSON.
func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return strings.NewReader(b), "application/json", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case io.Reader:
		return b, "", nil
	case url.Values:
		return strings.NewReader(b.Encode()), "application/x-www-form-urlencoded", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}
