// SPDX-License-Identifier: MPL-2.0

package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/invowk/langhost/internal/host"
)

// baseURL is a placeholder authority; the transport always dials the endpoint.
const baseURL = "http://langhost"

type (
	// Client talks to a connector Server over its local endpoint.
	Client struct {
		endpoint EndpointPath
		client   *http.Client
	}

	// StatusError is a non-2xx connector response. It unwraps to the
	// sentinel matching its status code.
	StatusError struct {
		Code    int
		Message string
		Kind    host.ErrorKind
	}
)

// NewClient creates a Client for endpoint. timeout bounds each request; zero
// means no limit beyond the request context.
func NewClient(endpoint EndpointPath, timeout time.Duration) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dial(ctx, endpoint)
		},
		MaxIdleConns:    1,
		IdleConnTimeout: 30 * time.Second,
	}
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Transport: transport, Timeout: timeout},
	}
}

// Endpoint returns the endpoint the Client dials.
func (c *Client) Endpoint() EndpointPath {
	return c.endpoint
}

// IsAvailable reports whether a connector answers health checks.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", http.NoBody)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// RequestSession asks the connector for a session and returns its channel pair.
func (c *Client) RequestSession(ctx context.Context, user host.UserName, language host.LanguageID) (SessionResponse, error) {
	var resp SessionResponse
	err := c.do(ctx, http.MethodPost, "/v1/sessions", SessionRequest{User: user, Language: language}, &resp)
	return resp, err
}

// Status returns the runtime status.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse
	err := c.do(ctx, http.MethodGet, "/v1/status", nil, &resp)
	return resp, err
}

// Control requests an operator action. force only applies to ActionStop.
func (c *Client) Control(ctx context.Context, action Action, force bool) (StatusResponse, error) {
	var resp StatusResponse
	if err := action.Validate(); err != nil {
		return resp, err
	}
	path := "/v1/control/" + url.PathEscape(string(action))
	if force {
		path += "?force=true"
	}
	err := c.do(ctx, http.MethodPost, path, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w at %s: %w", ErrNotServing, c.endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er ErrorResponse
		if jsonErr := json.Unmarshal(data, &er); jsonErr != nil || er.Error == "" {
			er.Error = string(bytes.TrimSpace(data))
		}
		return &StatusError{Code: resp.StatusCode, Message: er.Error, Kind: host.ErrorKind(er.Kind)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// Error implements the error interface for StatusError.
func (e *StatusError) Error() string {
	return fmt.Sprintf("connector error (%d): %s", e.Code, e.Message)
}

// Unwrap maps the status code to a sentinel for errors.Is() compatibility.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusConflict:
		return host.ErrSessionRejected
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		return nil
	}
}

// IsNotServing reports whether err means no connector answered.
func IsNotServing(err error) bool {
	return errors.Is(err, ErrNotServing)
}
