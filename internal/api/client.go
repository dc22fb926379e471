package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"apctl/internal/model"
)

const (
	// DefaultTimeout bounds ordinary status calls.
	DefaultTimeout = 10 * time.Second
	// connectMargin is added on top of wait_sec: the backend waits for the
	// link, then runs its pings and DNS lookups before replying.
	connectMargin = 30 * time.Second
	maxBodyBytes  = 4 << 20
)

// Client is a thin HTTP client for the appliance backend API.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a client for the given base URL (e.g. http://192.168.50.1:8000).
// A zero timeout selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		// Deadlines come from per-call contexts so a connect can outlive
		// the status timeout.
		http: &http.Client{},
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Summary fetches /api/summary.
func (c *Client) Summary(ctx context.Context) (SummaryResponse, error) {
	var resp SummaryResponse
	if err := c.getJSON(ctx, "/api/summary", &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// WANStatus fetches /wan/status.
func (c *Client) WANStatus(ctx context.Context) (WANStatusResponse, error) {
	var resp WANStatusResponse
	if err := c.getJSON(ctx, "/wan/status", &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Networks fetches the upstream scan from /wan/networks.
func (c *Client) Networks(ctx context.Context) (NetworksResponse, error) {
	var resp NetworksResponse
	if err := c.getJSON(ctx, "/wan/networks", &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Clients fetches DHCP leases from /clients.
func (c *Client) Clients(ctx context.Context) (ClientsResponse, error) {
	var resp ClientsResponse
	if err := c.getJSON(ctx, "/clients", &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Connect asks the backend to join an upstream network and verify it.
// The call is bounded by the requested wait plus a fixed margin.
func (c *Client) Connect(ctx context.Context, req model.ConnectRequest) (ConnectResponse, error) {
	var resp ConnectResponse
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout(req.WaitSeconds))
	defer cancel()
	if err := c.do(ctx, http.MethodPost, "/wan/connect", req, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Internet queries the optional /wan/internet endpoint. A backend without the
// endpoint yields ok=false and a nil error.
func (c *Client) Internet(ctx context.Context) (InternetResponse, bool, error) {
	var resp InternetResponse
	err := c.getJSON(ctx, "/wan/internet", &resp)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && endpointMissing(httpErr.Status) {
			return resp, false, nil
		}
		return resp, false, err
	}
	return resp, true, nil
}

// ConnectTimeout is the deadline applied to a connect request.
func ConnectTimeout(waitSec int) time.Duration {
	if waitSec <= 0 {
		waitSec = model.DefaultWaitSeconds
	}
	return time.Duration(waitSec)*time.Second + connectMargin
}

func endpointMissing(status int) bool {
	switch status {
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return true
	}
	return false
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// do performs a single request. The body is always read in full before the
// status and content type are checked, so every failure carries a preview.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	text := string(data)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &HTTPError{Status: res.StatusCode, StatusText: res.Status, BodyPreview: Preview(text)}
	}

	contentType := strings.ToLower(res.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "application/json") {
		return &FormatError{ContentType: contentType, BodyPreview: Preview(text)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
