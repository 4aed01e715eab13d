package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"atlas/internal/model"
)

const apiBase = "/api/v1"

// Client talks to an atlas server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// BaseURL returns the server base URL. Used to resolve hosted image
// paths like /uploads/xyz.jpg.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Error is a failure reported by the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server error: status %d", e.StatusCode)
}

// do executes a request and decodes the JSON response into out when
// out is non-nil. Non-2xx responses become *Error.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("JSON decode error: %w", err)
	}
	return nil
}

// doJSON marshals payload as the request body and executes like do.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("JSON encode error: %w", err)
		}
		body = bytes.NewReader(b)
	}
	return c.do(ctx, method, path, body, "application/json", out)
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Message = payload.Error
	}
	return apiErr
}

// Bootstrap fetches the initial application state document served at /.
func (c *Client) Bootstrap(ctx context.Context) (model.Bootstrap, error) {
	var b model.Bootstrap
	if err := c.do(ctx, http.MethodGet, "/", nil, "", &b); err != nil {
		return model.Bootstrap{}, fmt.Errorf("bootstrap failed: %w", err)
	}
	return b, nil
}

// Geocode resolves a free-form address to a coordinate.
func (c *Client) Geocode(ctx context.Context, address string) (model.GeocodeResult, error) {
	params := url.Values{}
	params.Set("address", address)

	var res model.GeocodeResult
	if err := c.do(ctx, http.MethodGet, apiBase+"/geocode?"+params.Encode(), nil, "", &res); err != nil {
		return model.GeocodeResult{}, err
	}
	return res, nil
}
