// Package apierr defines the error kinds surfaced by the credential and tracking
// services and their fixed HTTP status classification.
//
// Services return *Error values; handlers call Respond to translate them into a
// JSON body of the form {"error": "...", "kind": "..."}. Errors that are not
// *Error are treated as Unknown: they are logged with the request id and the
// client only sees a generic message.
package apierr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies a failure independently of the component that produced it.
type Kind string

const (
	NotFound        Kind = "NOT_FOUND"
	AlreadyExists   Kind = "ALREADY_EXISTS"
	Expired         Kind = "EXPIRED"
	RateLimited     Kind = "RATE_LIMITED"
	Blacklisted     Kind = "BLACKLISTED"
	PolicyViolation Kind = "POLICY_VIOLATION"
	Unauthorized    Kind = "UNAUTHORIZED"
	Incorrect       Kind = "INCORRECT"
	Conflict        Kind = "CONFLICT"
	InvalidArgument Kind = "INVALID_ARGUMENT"
	Unknown         Kind = "UNKNOWN"
)

// ContextKey is the gin context key under which Respond stores the Kind it
// answered with, for middleware that runs after the handler.
const ContextKey = "error_kind"

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists, Conflict:
		return http.StatusConflict
	case Expired:
		return http.StatusGone
	case RateLimited:
		return http.StatusTooManyRequests
	case Blacklisted:
		return http.StatusForbidden
	case PolicyViolation:
		return http.StatusUnprocessableEntity
	case Unauthorized, Incorrect:
		return http.StatusUnauthorized
	case InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Err, when set, is the underlying cause and is
// never shown to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so callers can write
// errors.Is(err, apierr.New(apierr.Expired, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New returns an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with fmt formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err as Unknown with a context message.
func Wrap(err error, message string) *Error {
	return &Error{Kind: Unknown, Message: message, Err: err}
}

// KindOf returns the kind of err, or Unknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Respond writes err to the client and aborts the request.
func Respond(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) || e.Kind == Unknown {
		c.Set(ContextKey, Unknown)
		requestID, _ := c.Get("request_id")
		slog.ErrorContext(c.Request.Context(), "unhandled request error",
			"error", err,
			"path", c.FullPath(),
			"request_id", requestID,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"kind":  Unknown,
		})
		return
	}
	c.Set(ContextKey, e.Kind)
	c.AbortWithStatusJSON(e.Kind.Status(), gin.H{
		"error": e.Message,
		"kind":  e.Kind,
	})
}
