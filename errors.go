package lintas

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error types reported in ClientError.Type.
const (
	ErrorTypeCanceled     = "Canceled"
	ErrorTypeBusiness     = "Business"
	ErrorTypeUnauthorized = "Unauthorized"
	ErrorTypeBadRequest   = "BadRequest"
	ErrorTypeForbidden    = "Forbidden"
	ErrorTypeNotFound     = "NotFound"
	ErrorTypeServer       = "Server"
	ErrorTypeHTTP         = "HTTP"
	ErrorTypeNetwork      = "Network"
	ErrorTypeRateLimit    = "RateLimit"
	ErrorTypeParse        = "Parse"
	ErrorTypeValidation   = "Validation"
)

// Sentinel errors for common failure scenarios. A *ClientError matches the
// sentinel of its category through errors.Is.
var (
	// ErrCanceled is matched by requests abandoned through the registry or the caller's context.
	ErrCanceled = errors.New("lintas: request canceled")

	// ErrUnauthorized is matched by HTTP 401 responses and envelope code 401.
	ErrUnauthorized = errors.New("lintas: unauthorized")

	// ErrBusiness is matched by envelope responses that report a failure.
	ErrBusiness = errors.New("lintas: business error")

	// ErrHTTPStatus is matched by any non-2xx response that is not 401.
	ErrHTTPStatus = errors.New("lintas: unexpected http status")

	// ErrNetworkUnreachable is matched when no response was received.
	ErrNetworkUnreachable = errors.New("lintas: server unreachable")

	// ErrRateLimited is returned when the client side limiter refuses a request.
	ErrRateLimited = errors.New("lintas: rate limited")

	// ErrMalformedLine wraps the decode error of a single NDJSON line.
	ErrMalformedLine = errors.New("lintas: malformed ndjson line")

	// ErrInvalidConfig is matched by configuration validation failures.
	ErrInvalidConfig = errors.New("lintas: invalid configuration")
)

// ClientError is the single error shape returned by the client.
type ClientError struct {
	Type       string
	Message    string
	Cause      error
	RequestID  string
	Method     string
	URL        string
	Endpoint   string
	StatusCode int
	// Code is the business code carried by an envelope response.
	Code      int
	Body      []byte
	Timestamp time.Time
	Duration  time.Duration
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another *ClientError of the same Type, or the sentinel of e's category.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return sentinelFor(e.Type) == target && target != nil
}

// Canceled reports whether the error is a cancellation.
func (e *ClientError) Canceled() bool {
	return e != nil && e.Type == ErrorTypeCanceled
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *ClientError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.Endpoint != "" {
		info += fmt.Sprintf("Endpoint: %s\n", e.Endpoint)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if e.Code != 0 {
		info += fmt.Sprintf("Business Code: %d\n", e.Code)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

func sentinelFor(errorType string) error {
	switch errorType {
	case ErrorTypeCanceled:
		return ErrCanceled
	case ErrorTypeUnauthorized:
		return ErrUnauthorized
	case ErrorTypeBusiness:
		return ErrBusiness
	case ErrorTypeBadRequest, ErrorTypeForbidden, ErrorTypeNotFound, ErrorTypeServer, ErrorTypeHTTP:
		return ErrHTTPStatus
	case ErrorTypeNetwork:
		return ErrNetworkUnreachable
	case ErrorTypeRateLimit:
		return ErrRateLimited
	case ErrorTypeParse:
		return ErrMalformedLine
	case ErrorTypeValidation:
		return ErrInvalidConfig
	default:
		return nil
	}
}

// IsCanceled reports whether err is a cancellation, either classified by the
// client or raised by a context.
func IsCanceled(err error) bool {
	return err != nil && (errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled))
}

// IsUnauthorized reports whether err asks for re-authentication.
func IsUnauthorized(err error) bool {
	return err != nil && errors.Is(err, ErrUnauthorized)
}

// Classification is the outcome of Classify.
type Classification struct {
	Type       string
	Message    string
	StatusCode int
}

// Classify maps a transport outcome to an error category and a user facing
// message. It is a pure function: status is only consulted when responded is
// true, and canceled takes precedence over everything else.
func Classify(status int, responded, canceled bool) Classification {
	if canceled {
		return Classification{Type: ErrorTypeCanceled, Message: "request canceled"}
	}
	if !responded {
		return Classification{Type: ErrorTypeNetwork, Message: "unable to reach the server"}
	}

	c := Classification{StatusCode: status}
	switch status {
	case http.StatusBadRequest:
		c.Type, c.Message = ErrorTypeBadRequest, "invalid request parameters"
	case http.StatusUnauthorized:
		c.Type, c.Message = ErrorTypeUnauthorized, "unauthorized, please log in again"
	case http.StatusForbidden:
		c.Type, c.Message = ErrorTypeForbidden, "access denied"
	case http.StatusNotFound:
		c.Type, c.Message = ErrorTypeNotFound, "requested resource does not exist"
	case http.StatusInternalServerError:
		c.Type, c.Message = ErrorTypeServer, "internal server error"
	default:
		c.Type, c.Message = ErrorTypeHTTP, fmt.Sprintf("request failed (%d)", status)
	}
	return c
}
