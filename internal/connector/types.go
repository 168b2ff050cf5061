// SPDX-License-Identifier: MPL-2.0

package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/invowk/langhost/internal/core/lifecycle"
	"github.com/invowk/langhost/internal/host"
)

// Control actions accepted by POST /v1/control/{action}.
const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

var (
	// ErrInvalidEndpoint is the sentinel error wrapped by InvalidEndpointError.
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	// ErrInvalidAction is returned for an unknown control action.
	ErrInvalidAction = errors.New("invalid control action")
	// ErrUnavailable is returned when the connector is paused or the runtime
	// could not be brought up for a session.
	ErrUnavailable = errors.New("runtime unavailable")
	// ErrRateLimited is returned when session requests arrive too fast.
	ErrRateLimited = errors.New("too many session requests")
	// ErrBadRequest is returned for malformed or invalid requests.
	ErrBadRequest = errors.New("bad request")
	// ErrInvalidRate is returned when the session rate limit is not positive.
	ErrInvalidRate = errors.New("invalid rate limit")
	// ErrNotServing is returned by the Client when no server answers on the endpoint.
	ErrNotServing = errors.New("connector not serving")
)

type (
	// EndpointPath is a Unix socket path or a Windows named pipe name.
	EndpointPath string

	// Action is an operator control action.
	Action string

	// InvalidEndpointError is returned when an EndpointPath is empty.
	InvalidEndpointError struct {
		Value EndpointPath
	}

	// Config configures a Server.
	Config struct {
		Endpoint EndpointPath
		// ChannelDir is where per-session channel endpoints are allocated.
		ChannelDir string
		// SecurityDescriptor is an SDDL string applied to the named pipe.
		// It is ignored on Unix, where the socket is created with mode 0600.
		SecurityDescriptor string
		// RateLimit is the sustained session request rate per second.
		RateLimit float64
		RateBurst int
		// LazyStart starts a stopped runtime on the first session request.
		LazyStart bool
		// ConnectTimeout bounds a lazy start.
		ConnectTimeout time.Duration
		// BusyTimeout bounds the wait for an in-flight transition.
		BusyTimeout time.Duration
		Service     string
	}

	// Runtime is the Host surface the connector drives. *host.Host implements it.
	Runtime interface {
		Start(ctx context.Context, async bool) error
		Stop(ctx context.Context, force, async bool) error
		IsBusy(timeout time.Duration) bool
		State() lifecycle.State
		LastError() error
		LastErrorKind() host.ErrorKind
		Version() string
		UserConnection(ctx context.Context, s host.Session) error
	}

	// SessionRequest is the body of POST /v1/sessions.
	SessionRequest struct {
		User     host.UserName   `json:"user"`
		Language host.LanguageID `json:"language"`
	}

	// SessionResponse carries the channel pair allocated for a session.
	SessionResponse struct {
		Input  host.ChannelID `json:"input"`
		Output host.ChannelID `json:"output"`
	}

	// StatusResponse is the body of GET /v1/status and of control responses.
	StatusResponse struct {
		State         string `json:"state"`
		Busy          bool   `json:"busy"`
		Paused        bool   `json:"paused"`
		Version       string `json:"version,omitempty"`
		LastError     string `json:"last_error,omitempty"`
		LastErrorKind string `json:"last_error_kind,omitempty"`
		Service       string `json:"service"`
	}

	// ErrorResponse is the body of every non-2xx response.
	ErrorResponse struct {
		Error string `json:"error"`
		Kind  string `json:"kind,omitempty"`
	}
)

var _ Runtime = (*host.Host)(nil)

// String returns the string representation of the EndpointPath.
func (e EndpointPath) String() string { return string(e) }

// Validate returns nil if the EndpointPath is non-empty.
func (e EndpointPath) Validate() error {
	if e == "" {
		return &InvalidEndpointError{Value: e}
	}
	return nil
}

// Validate returns nil if the Action is a known control action.
func (a Action) Validate() error {
	switch a {
	case ActionStart, ActionStop:
		return nil
	default:
		return fmt.Errorf("%w %q (valid: start, stop)", ErrInvalidAction, string(a))
	}
}

// Validate checks the fields the Server depends on.
func (c Config) Validate() error {
	if err := c.Endpoint.Validate(); err != nil {
		return err
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("%w: rate %v, burst %d: both must be positive", ErrInvalidRate, c.RateLimit, c.RateBurst)
	}
	return nil
}

// Error implements the error interface for InvalidEndpointError.
func (e *InvalidEndpointError) Error() string {
	return fmt.Sprintf("invalid endpoint %q: must not be empty", e.Value)
}

// Unwrap returns ErrInvalidEndpoint for errors.Is() compatibility.
func (e *InvalidEndpointError) Unwrap() error { return ErrInvalidEndpoint }
