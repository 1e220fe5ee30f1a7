package lintas

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestClientError(t *testing.T) {
	// Test error without cause
	err := &ClientError{
		Type:    ErrorTypeNetwork,
		Message: "unable to reach the server",
	}

	expectedMsg := "Network: unable to reach the server"
	if err.Error() != expectedMsg {
		t.Errorf("Expected '%s', got '%s'", expectedMsg, err.Error())
	}

	// Test error with cause and request id
	cause := errors.New("underlying error")
	errWithCause := &ClientError{
		Type:      ErrorTypeServer,
		Message:   "internal server error",
		Cause:     cause,
		RequestID: "req-1",
	}

	expectedMsgWithCause := "[req-1] Server: internal server error (underlying error)"
	if errWithCause.Error() != expectedMsgWithCause {
		t.Errorf("Expected '%s', got '%s'", expectedMsgWithCause, errWithCause.Error())
	}
}

func TestClientErrorUnwrap(t *testing.T) {
	cause := errors.New("original error")
	err := &ClientError{
		Type:    ErrorTypeNetwork,
		Message: "test message",
		Cause:   cause,
	}

	if err.Unwrap() != cause {
		t.Errorf("Expected unwrapped error to be %v, got %v", cause, err.Unwrap())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}

	noCause := &ClientError{Type: ErrorTypeNetwork}
	if noCause.Unwrap() != nil {
		t.Errorf("Expected unwrapped error to be nil, got %v", noCause.Unwrap())
	}
}

func TestClientErrorSentinels(t *testing.T) {
	testCases := []struct {
		errorType string
		sentinel  error
	}{
		{ErrorTypeCanceled, ErrCanceled},
		{ErrorTypeUnauthorized, ErrUnauthorized},
		{ErrorTypeBusiness, ErrBusiness},
		{ErrorTypeBadRequest, ErrHTTPStatus},
		{ErrorTypeForbidden, ErrHTTPStatus},
		{ErrorTypeNotFound, ErrHTTPStatus},
		{ErrorTypeServer, ErrHTTPStatus},
		{ErrorTypeHTTP, ErrHTTPStatus},
		{ErrorTypeNetwork, ErrNetworkUnreachable},
		{ErrorTypeRateLimit, ErrRateLimited},
		{ErrorTypeValidation, ErrInvalidConfig},
	}

	for _, tc := range testCases {
		t.Run(tc.errorType, func(t *testing.T) {
			var err error = &ClientError{Type: tc.errorType, Message: "m"}
			if !errors.Is(err, tc.sentinel) {
				t.Errorf("Expected %s to match %v", tc.errorType, tc.sentinel)
			}
			if !errors.Is(err, &ClientError{Type: tc.errorType}) {
				t.Errorf("Expected %s to match a ClientError of the same type", tc.errorType)
			}
		})
	}

	if errors.Is(&ClientError{Type: ErrorTypeNetwork}, ErrCanceled) {
		t.Error("Network error must not match ErrCanceled")
	}
}

func TestIsCanceled(t *testing.T) {
	if !IsCanceled(&ClientError{Type: ErrorTypeCanceled}) {
		t.Error("Canceled ClientError should be canceled")
	}
	if !IsCanceled(fmt.Errorf("wrapped: %w", context.Canceled)) {
		t.Error("context.Canceled should be canceled")
	}
	if IsCanceled(&ClientError{Type: ErrorTypeBusiness}) {
		t.Error("Business error should not be canceled")
	}
	if IsCanceled(nil) {
		t.Error("nil should not be canceled")
	}
	if !IsUnauthorized(&ClientError{Type: ErrorTypeUnauthorized}) {
		t.Error("Unauthorized ClientError should be unauthorized")
	}
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name      string
		status    int
		responded bool
		canceled  bool
		wantType  string
		wantMsg   string
	}{
		{"canceled wins", 500, true, true, ErrorTypeCanceled, "request canceled"},
		{"canceled without response", 0, false, true, ErrorTypeCanceled, "request canceled"},
		{"no response", 0, false, false, ErrorTypeNetwork, "unable to reach the server"},
		{"status ignored without response", 404, false, false, ErrorTypeNetwork, "unable to reach the server"},
		{"400", 400, true, false, ErrorTypeBadRequest, "invalid request parameters"},
		{"401", 401, true, false, ErrorTypeUnauthorized, "unauthorized, please log in again"},
		{"403", 403, true, false, ErrorTypeForbidden, "access denied"},
		{"404", 404, true, false, ErrorTypeNotFound, "requested resource does not exist"},
		{"500", 500, true, false, ErrorTypeServer, "internal server error"},
		{"502", 502, true, false, ErrorTypeHTTP, "request failed (502)"},
		{"418", 418, true, false, ErrorTypeHTTP, "request failed (418)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.status, tc.responded, tc.canceled)
			if got.Type != tc.wantType {
				t.Errorf("Expected type %s, got %s", tc.wantType, got.Type)
			}
			if got.Message != tc.wantMsg {
				t.Errorf("Expected message %q, got %q", tc.wantMsg, got.Message)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if Classify(503, true, false) != Classify(503, true, false) {
			t.Fatal("Classify must be a pure function")
		}
	}
}

func TestClientErrorDebugInfo(t *testing.T) {
	err := &ClientError{
		Type:       ErrorTypeNotFound,
		Message:    "requested resource does not exist",
		RequestID:  "req-9",
		Method:     "GET",
		URL:        "http://localhost/api/x",
		StatusCode: 404,
		Timestamp:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:   15 * time.Millisecond,
	}

	info := err.DebugInfo()
	for _, want := range []string{
		"Error Type: NotFound",
		"Request ID: req-9",
		"Method: GET",
		"URL: http://localhost/api/x",
		"Status Code: 404",
		"Timestamp: 2024-01-02T03:04:05Z",
		"Duration: 15ms",
	} {
		if !strings.Contains(info, want) {
			t.Errorf("DebugInfo missing %q:\n%s", want, info)
		}
	}

	var nilErr *ClientError
	if nilErr.DebugInfo() != "Error: <nil>" {
		t.Errorf("unexpected nil DebugInfo: %q", nilErr.DebugInfo())
	}
}
