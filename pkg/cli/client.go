package cli

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

	"datafood/internal/api"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	HTTPStatus int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.HTTPStatus, e.Message)
}

// Client talks to the analytics HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for baseURL with a 30s timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL points the client at another server.
func (c *Client) SetBaseURL(baseURL string) {
	c.BaseURL = strings.TrimRight(baseURL, "/")
}

// normalizeBaseURL checks a server address taken from --host, DATAFOOD_HOST
// or a profile and reduces it to scheme://host[:port].
func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("invalid host: no server address, pass --host or set DATAFOOD_HOST")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", raw, err)
	}
	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return "", fmt.Errorf("invalid host %q: want http:// or https:// followed by the analytics server", raw)
	case u.Host == "":
		return "", fmt.Errorf("invalid host %q: no server name", raw)
	case strings.Trim(u.Path, "/") != "":
		return "", fmt.Errorf("invalid host %q: give the server root, /api paths are added per command", raw)
	case u.RawQuery != "" || u.Fragment != "" || u.User != nil:
		return "", fmt.Errorf("invalid host %q: must be a bare server address", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Do sends a request with an optional JSON body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	base, err := normalizeBaseURL(c.BaseURL)
	if err != nil {
		return nil, err
	}
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// call sends a request and decodes a 2xx JSON body into out.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.Do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return readAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body api.Error
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{HTTPStatus: resp.StatusCode, Message: msg}
	}
	return &APIError{HTTPStatus: resp.StatusCode, Message: body.Message}
}

// Query runs q on the server and returns the result rows.
func (c *Client) Query(ctx context.Context, q api.AnalyticsQuery) ([]map[string]any, error) {
	var out api.DataResponse[[]map[string]any]
	if err := c.call(ctx, http.MethodPost, "/api/query", nil, q, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Explain returns the statement the server would run for q. An empty
// dialect uses the server's engine.
func (c *Client) Explain(ctx context.Context, q api.AnalyticsQuery, dialect string) (*api.ExplainResponse, error) {
	var query url.Values
	if dialect != "" {
		query = url.Values{"dialect": {dialect}}
	}
	var out api.ExplainResponse
	if err := c.call(ctx, http.MethodPost, "/api/query/explain", query, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StringOptions fetches a list of names (channels, sale_status).
func (c *Client) StringOptions(ctx context.Context, kind string) ([]string, error) {
	var out api.DataResponse[[]string]
	if err := c.call(ctx, http.MethodGet, "/api/options/"+kind, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// IDNameOptions fetches a list of {id, name} (stores, products).
func (c *Client) IDNameOptions(ctx context.Context, kind string) ([]api.IDName, error) {
	var out api.DataResponse[[]api.IDName]
	if err := c.call(ctx, http.MethodGet, "/api/options/"+kind, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
