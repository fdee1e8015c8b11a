package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Client talks to the scraper backend API. It never retries and sets no
// timeout of its own; callers bound requests through the context.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Response is a raw 2xx response from the backend.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsJSON reports whether the response declared a JSON content type.
func (r *Response) IsJSON() bool {
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return strings.Contains(r.ContentType, "application/json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// Do sends a request and returns the raw response. Non-2xx responses are
// returned as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

// Get issues a GET and decodes the result into T.
func Get[T any](ctx context.Context, c *Client, path string) (T, error) {
	return call[T](ctx, c, http.MethodGet, path, nil)
}

// Post issues a POST with an optional JSON body and decodes the result into T.
func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return call[T](ctx, c, http.MethodPost, path, body)
}

// Put issues a PUT with a JSON body and decodes the result into T.
func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return call[T](ctx, c, http.MethodPut, path, body)
}

// Patch issues a PATCH with a JSON body and decodes the result into T.
func Patch[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return call[T](ctx, c, http.MethodPatch, path, body)
}

// Delete issues a DELETE and decodes the result into T.
func Delete[T any](ctx context.Context, c *Client, path string) (T, error) {
	return call[T](ctx, c, http.MethodDelete, path, nil)
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var zero T
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return zero, err
	}
	out, err := decode[T](resp)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return out, nil
}

// ErrUnexpectedContent is returned when a non-JSON body cannot be stored in
// the requested result type.
var ErrUnexpectedContent = errors.New("unexpected non-JSON response")

func decode[T any](resp *Response) (T, error) {
	var out T
	if resp.IsJSON() {
		if len(bytes.TrimSpace(resp.Body)) == 0 {
			return out, nil
		}
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return out, fmt.Errorf("decode response: %w", err)
		}
		return out, nil
	}

	// Non-JSON 2xx bodies are handed back as raw text.
	if s, ok := any(&out).(*string); ok {
		*s = string(resp.Body)
		return out, nil
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return out, nil
	}
	return out, fmt.Errorf("%w (content type %q)", ErrUnexpectedContent, resp.ContentType)
}
