package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind represents the category of a failure surfaced by an analysis
type Kind int

const (
	// KindInternal - unexpected internal state
	KindInternal Kind = iota
	// KindInvalidIdentifier - malformed repository input, user-correctable
	KindInvalidIdentifier
	// KindNotFoundOrPrivate - upstream 404, ambiguous between missing and private
	KindNotFoundOrPrivate
	// KindAccessDenied - repository is private and no credential was supplied
	KindAccessDenied
	// KindRateLimited - upstream quota exhausted
	KindRateLimited
	// KindUpstreamUnavailable - transport failure or unexpected upstream status
	KindUpstreamUnavailable
	// KindTimeout - caller cancelled or the deadline expired
	KindTimeout
)

// Error represents a structured error with context
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is matches another *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// RequiresAuth reports whether retrying with a credential may succeed.
// A 404 is treated this way too because the upstream returns the same
// status for missing and private repositories.
func (e *Error) RequiresAuth() bool {
	switch e.Kind {
	case KindNotFoundOrPrivate, KindAccessDenied, KindRateLimited:
		return true
	default:
		return false
	}
}

// DetailedString returns a detailed error message with context
func (e *Error) DetailedString() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s\n", e.Kind, e.Message))

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("Context:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, e.Context[k]))
		}
	}

	return sb.String()
}

func (k Kind) String() string {
	switch k {
	case KindInvalidIdentifier:
		return "INVALID_IDENTIFIER"
	case KindNotFoundOrPrivate:
		return "NOT_FOUND_OR_PRIVATE"
	case KindAccessDenied:
		return "ACCESS_DENIED"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindUpstreamUnavailable:
		return "UPSTREAM_UNAVAILABLE"
	case KindTimeout:
		return "TIMEOUT"
	default:
		return "INTERNAL"
	}
}

// New creates a new error with the given kind and message
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a kind and message
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// Convenience constructors. Messages match what end users are shown.

// InvalidIdentifier creates an identifier validation error
func InvalidIdentifier(input string) *Error {
	return New(KindInvalidIdentifier, "Invalid repository URL format").WithContext("input", input)
}

// NotFoundOrPrivate wraps an upstream 404
func NotFoundOrPrivate(err error) *Error {
	return Wrap(err, KindNotFoundOrPrivate,
		"Repository not found. It may be private - please sign in with GitHub to access private repositories.")
}

// AccessDenied signals a private repository requested without a credential
func AccessDenied() *Error {
	return New(KindAccessDenied, "This is a private repository. Please sign in with GitHub to access it.")
}

// RateLimited wraps an upstream quota error
func RateLimited(err error) *Error {
	return Wrap(err, KindRateLimited, "Rate limit exceeded. Please sign in with GitHub for higher rate limits.")
}

// UpstreamUnavailable wraps a transport or unexpected status error
func UpstreamUnavailable(err error, message string) *Error {
	return Wrap(err, KindUpstreamUnavailable, message)
}

// UpstreamUnavailablef wraps a transport error with formatting
func UpstreamUnavailablef(err error, format string, args ...interface{}) *Error {
	return Wrap(err, KindUpstreamUnavailable, fmt.Sprintf(format, args...))
}

// Timeout wraps a context cancellation
func Timeout(err error) *Error {
	return Wrap(err, KindTimeout, "Analysis cancelled before completion")
}

// Internalf creates an internal error with formatting
func Internalf(format string, args ...interface{}) *Error {
	return New(KindInternal, fmt.Sprintf(format, args...))
}

// GetKind returns the kind of an error, looking through wrapping
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind checks whether err carries the given kind anywhere in its chain
func IsKind(err error, kind Kind) bool {
	return err != nil && GetKind(err) == kind
}

// RequiresAuth reports whether err suggests authenticating and retrying
func RequiresAuth(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.RequiresAuth()
	}
	return false
}
