// Package capability provides the guest-side handle for calling host-backed
// operations.
//
// The handle is created and owned by the host: the guest receives a
// descriptor through the bridge, materializes a handle from it exactly once,
// and holds it for the rest of the mount. The guest never reconstructs a
// handle on its own.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/panelkit-dev/panelkit/internal/buildinfo"
)

// DefaultTimeout bounds a single capability request.
const DefaultTimeout = 30 * time.Second

// Result is the structured response shape of host API calls. Code zero with
// data present is the only success shape; everything else is a failure and
// Msg, when set, carries the host's human-readable explanation.
type Result struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OK reports whether the result is a structured success.
func (r *Result) OK() bool {
	return r != nil && r.Code == 0 && len(r.Data) > 0
}

// Handle exposes host-backed operations to the guest.
type Handle interface {
	// Get performs a request against the host API. The path is relative to
	// the host's API root, e.g. "plugin/p115/get_status".
	Get(ctx context.Context, path string) (*Result, error)
}

// Descriptor is the capability payload the host injects through the bridge.
type Descriptor struct {
	BaseURL  string `json:"base_url"`
	Token    string `json:"token,omitempty"`
	PluginID string `json:"plugin_id"`
}

// Validate checks the descriptor carries enough to materialize a handle.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.BaseURL) == "" {
		return fmt.Errorf("capability descriptor missing base_url")
	}

	if strings.TrimSpace(d.PluginID) == "" {
		return fmt.Errorf("capability descriptor missing plugin_id")
	}

	return nil
}

// Client is the HTTP-backed capability handle.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a capability client for the given host API root. Requests are
// traced through the otelhttp transport; when telemetry is off the transport
// is a passthrough.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// FromDescriptor materializes a handle from a host-injected descriptor.
func FromDescriptor(d Descriptor) (*Client, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	return New(d.BaseURL, d.Token), nil
}

// WithHTTPClient overrides the underlying HTTP client. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the host API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET against the host API and decodes the structured result.
func (c *Client) Get(ctx context.Context, path string) (*Result, error) {
	url := c.baseURL + "/api/v1/" + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setRequestHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call host API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, unexpectedStatus(path, resp.StatusCode, resp.Body)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode host response: %w", err)
	}

	return &result, nil
}

func (c *Client) setRequestHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "panelkit/"+buildinfo.Version)
}

// unexpectedStatus creates a formatted error from an unexpected HTTP status code.
func unexpectedStatus(operation string, statusCode int, body io.Reader) error {
	respBody, readErr := io.ReadAll(body)
	if readErr != nil {
		return fmt.Errorf("%s failed with status %d (failed to read body: %v)", operation, statusCode, readErr)
	}

	return fmt.Errorf("%s failed with status %d: %s", operation, statusCode, string(respBody))
}
