// SPDX-License-Identifier: MPL-2.0

package host

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// DefaultStopTimeout bounds Close when the configuration leaves it unset.
const DefaultStopTimeout = 10 * time.Second

var (
	// ErrInvalidUserName is the sentinel error wrapped by InvalidUserNameError.
	ErrInvalidUserName = errors.New("invalid user name")
	// ErrInvalidChannelID is the sentinel error wrapped by InvalidChannelIDError.
	ErrInvalidChannelID = errors.New("invalid channel id")
	// ErrInvalidLanguageID is the sentinel error wrapped by InvalidLanguageIDError.
	ErrInvalidLanguageID = errors.New("invalid language id")
	// ErrInvalidLibraryPath is the sentinel error wrapped by InvalidLibraryPathError.
	ErrInvalidLibraryPath = errors.New("invalid library path")
	// ErrInvalidSession is the sentinel error wrapped by InvalidSessionError.
	ErrInvalidSession = errors.New("invalid session")
)

type (
	// UserName identifies the user a session belongs to.
	UserName string

	// ChannelID names one endpoint of a session's communication channel pair.
	ChannelID string

	// LanguageID identifies the client language or locale of a session.
	LanguageID string

	// LibraryPath is the filesystem path of the runtime shared library.
	LibraryPath string

	// Handle is the opaque runtime instance returned by Runtime.Create.
	Handle uintptr

	// Session carries the parameters handed to the runtime by UserConnection.
	Session struct {
		User     UserName
		Input    ChannelID
		Output   ChannelID
		Language LanguageID
	}

	// CreateOptions are passed to the runtime's create entry point.
	CreateOptions struct {
		Service   string
		Resources string
		Options   map[string]string
	}

	// Config holds immutable Host configuration, resolved once at construction.
	Config struct {
		// Library is the runtime shared library, loaded anew on every start.
		Library LibraryPath
		// Resources is the runtime's companion resource directory.
		Resources string
		// Service is the service name reported to the runtime.
		Service string
		// Options is passed through to the runtime on create.
		Options map[string]string
		// StopTimeout bounds Close.
		StopTimeout time.Duration
	}

	// Runtime is the entry-point surface of a loaded runtime library.
	Runtime interface {
		// Create initializes a runtime instance.
		Create(opts CreateOptions) (Handle, error)
		// Run blocks until the runtime loop ends and returns its exit code.
		Run(h Handle) int
		// Shutdown asks the runtime loop to end. A request made before Run
		// has entered its loop should be latched so the loop ends at once;
		// the Host repeats the call until Run returns in case it is not.
		// Shutdown may be called more than once and must tolerate a loop
		// that has already returned.
		Shutdown(h Handle, force bool)
		// Accept hands a session to the runtime.
		Accept(h Handle, s Session) error
		// Destroy releases the runtime instance.
		Destroy(h Handle)
	}

	// Module is a loaded runtime library.
	Module interface {
		Path() string
		Runtime() Runtime
		// Version reports the runtime version, or "" if unknown.
		Version() string
		// Close unloads the library. The Module must not be used afterwards.
		Close() error
	}

	// Loader loads runtime libraries.
	Loader interface {
		Load(path string) (Module, error)
	}

	// InvalidUserNameError is returned when a UserName is empty or whitespace-only.
	InvalidUserNameError struct {
		Value UserName
	}

	// InvalidChannelIDError is returned when a ChannelID is empty or whitespace-only.
	InvalidChannelIDError struct {
		Value ChannelID
	}

	// InvalidLanguageIDError is returned when a LanguageID is empty or contains whitespace.
	InvalidLanguageIDError struct {
		Value LanguageID
	}

	// InvalidLibraryPathError is returned when a LibraryPath is empty or whitespace-only.
	InvalidLibraryPathError struct {
		Value LibraryPath
	}

	// InvalidSessionError collects field-level validation errors of a Session.
	// It wraps ErrInvalidSession for errors.Is() compatibility.
	InvalidSessionError struct {
		FieldErrors []error
	}
)

// String returns the string representation of the UserName.
func (u UserName) String() string { return string(u) }

// Validate returns nil if the UserName is non-empty and not whitespace-only.
// Inner spaces are allowed.
func (u UserName) Validate() error {
	if strings.TrimSpace(string(u)) == "" {
		return &InvalidUserNameError{Value: u}
	}
	return nil
}

// String returns the string representation of the ChannelID.
func (c ChannelID) String() string { return string(c) }

// Validate returns nil if the ChannelID is non-empty and not whitespace-only.
func (c ChannelID) Validate() error {
	if strings.TrimSpace(string(c)) == "" {
		return &InvalidChannelIDError{Value: c}
	}
	return nil
}

// String returns the string representation of the LanguageID.
func (l LanguageID) String() string { return string(l) }

// Validate returns nil if the LanguageID is a single non-empty token.
func (l LanguageID) Validate() error {
	if l == "" || strings.ContainsFunc(string(l), unicode.IsSpace) {
		return &InvalidLanguageIDError{Value: l}
	}
	return nil
}

// String returns the string representation of the LibraryPath.
func (p LibraryPath) String() string { return string(p) }

// Validate returns nil if the LibraryPath is non-empty and not whitespace-only.
func (p LibraryPath) Validate() error {
	if strings.TrimSpace(string(p)) == "" {
		return &InvalidLibraryPathError{Value: p}
	}
	return nil
}

// Validate checks every field and returns an *InvalidSessionError listing
// the failures, or nil.
func (s Session) Validate() error {
	var errs []error
	if err := s.User.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Input.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Output.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Language.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidSessionError{FieldErrors: errs}
	}
	return nil
}

// DefaultConfig returns a Config with every field except Library filled in.
func DefaultConfig() Config {
	return Config{
		Service:     "langhost",
		StopTimeout: DefaultStopTimeout,
	}
}

// Validate checks the configuration fields the Host depends on.
func (c Config) Validate() error {
	return c.Library.Validate()
}

func (c Config) createOptions() CreateOptions {
	return CreateOptions{
		Service:   c.Service,
		Resources: c.Resources,
		Options:   c.Options,
	}
}

// Error implements the error interface for InvalidUserNameError.
func (e *InvalidUserNameError) Error() string {
	return fmt.Sprintf("invalid user name %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidUserName for errors.Is() compatibility.
func (e *InvalidUserNameError) Unwrap() error { return ErrInvalidUserName }

// Error implements the error interface for InvalidChannelIDError.
func (e *InvalidChannelIDError) Error() string {
	return fmt.Sprintf("invalid channel id %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidChannelID for errors.Is() compatibility.
func (e *InvalidChannelIDError) Unwrap() error { return ErrInvalidChannelID }

// Error implements the error interface for InvalidLanguageIDError.
func (e *InvalidLanguageIDError) Error() string {
	return fmt.Sprintf("invalid language id %q: must be a non-empty token", e.Value)
}

// Unwrap returns ErrInvalidLanguageID for errors.Is() compatibility.
func (e *InvalidLanguageIDError) Unwrap() error { return ErrInvalidLanguageID }

// Error implements the error interface for InvalidLibraryPathError.
func (e *InvalidLibraryPathError) Error() string {
	return fmt.Sprintf("invalid library path %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidLibraryPath for errors.Is() compatibility.
func (e *InvalidLibraryPathError) Unwrap() error { return ErrInvalidLibraryPath }

// Error implements the error interface for InvalidSessionError.
func (e *InvalidSessionError) Error() string {
	return fmt.Sprintf("invalid session: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidSession followed by the field errors.
func (e *InvalidSessionError) Unwrap() []error {
	return append([]error{ErrInvalidSession}, e.FieldErrors...)
}
