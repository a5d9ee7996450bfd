// ABOUTME: HTTP client for the Stellara REST backend
// ABOUTME: One method per endpoint; mutations carry the bearer token and a multipart payload

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single backend call when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 8 << 20

// Credentials are the operator's login details.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is a successful login.
type LoginResult struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Result is the acknowledgement of a mutation.
type Result struct {
	Message string `json:"message"`
}

// Options configures a Client.
type Options struct {
	// Timeout bounds each call. Ignored when HTTPClient is set.
	Timeout    time.Duration
	HTTPClient *http.Client
	Metrics    *Metrics
	Logger     *slog.Logger
}

// Client talks to the Stellara backend at a fixed base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *Metrics
	logger     *slog.Logger
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "backend")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	const op = "login"
	start := time.Now()

	body, err := json.Marshal(creds)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("encoding credentials: %w", err)}
	}

	var out LoginResult
	err = c.do(ctx, op, http.MethodPost, "/api/auth/login", "", "application/json", bytes.NewReader(body), &out)
	if err == nil && out.Token == "" {
		err = &APIError{Op: op, StatusCode: http.StatusOK}
	}
	c.metrics.observe(op, start, err)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProducts fetches the whole catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	const op = "list_products"
	start := time.Now()

	var out []Product
	err := c.do(ctx, op, http.MethodGet, "/api/products", "", "", nil, &out)
	c.metrics.observe(op, start, err)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Product{}
	}
	return out, nil
}

// GetProduct fetches one product.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	const op = "get_product"
	start := time.Now()

	var out Product
	err := c.do(ctx, op, http.MethodGet, "/api/products/"+url.PathEscape(id), "", "", nil, &out)
	c.metrics.observe(op, start, err)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProduct creates a product. The input must carry an image.
func (c *Client) CreateProduct(ctx context.Context, token string, in ProductInput) (*Result, error) {
	return c.sendProduct(ctx, "create_product", http.MethodPost, "/api/products", token, in)
}

// UpdateProduct replaces the fields of product id. A nil image keeps the
// current one.
func (c *Client) UpdateProduct(ctx context.Context, token, id string, in ProductInput) (*Result, error) {
	return c.sendProduct(ctx, "update_product", http.MethodPut, "/api/products/"+url.PathEscape(id), token, in)
}

func (c *Client) sendProduct(ctx context.Context, op, method, path, token string, in ProductInput) (*Result, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	start := time.Now()

	body, contentType, err := EncodeProduct(in)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	var out Result
	err = c.do(ctx, op, method, path, token, contentType, body, &out)
	c.metrics.observe(op, start, err)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProduct removes product id.
func (c *Client) DeleteProduct(ctx context.Context, token, id string) (*Result, error) {
	const op = "delete_product"
	if token == "" {
		return nil, ErrUnauthorized
	}
	start := time.Now()

	var out Result
	err := c.do(ctx, op, http.MethodDelete, "/api/products/"+url.PathEscape(id), token, "", nil, &out)
	c.metrics.observe(op, start, err)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request and decodes a 2xx JSON body into out. An empty 2xx
// body leaves out untouched.
func (c *Client) do(ctx context.Context, op, method, path, token, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "error", err)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(data)}
		c.logger.Info("backend rejected request", "op", op, "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// errorMessage extracts the "message" field of an error body, if any.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
