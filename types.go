package lintas

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
)

// Middleware represents a middleware function
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Option represents a configuration option
type Option func(*Client)

// BusyIndicator is toggled around requests issued with ShowLoading.
type BusyIndicator interface {
	Begin(requestID string)
	End(requestID string)
}

// ErrorNotifier surfaces failures of requests issued with ShowError.
// Cancellations are never reported.
type ErrorNotifier interface {
	Notify(ctx context.Context, err *ClientError)
}

// ErrorNotifierFunc adapts a function to ErrorNotifier.
type ErrorNotifierFunc func(ctx context.Context, err *ClientError)

// Notify implements ErrorNotifier.
func (f ErrorNotifierFunc) Notify(ctx context.Context, err *ClientError) { f(ctx, err) }

// UnauthorizedHandler is called for HTTP 401 and envelope code 401, whatever
// ShowError says, so the application can send the user back to login.
type UnauthorizedHandler func(ctx context.Context, err *ClientError)

// RequestConfig holds the per-call settings.
type RequestConfig struct {
	// ShowLoading toggles the BusyIndicator for this call. Default true.
	ShowLoading bool
	// ShowError routes failures to the ErrorNotifier. Default true.
	ShowError bool
	// RequestID keys the cancellation handle. Defaults to the request path.
	RequestID string
	// ReturnRaw skips envelope unwrapping. Default false.
	ReturnRaw bool
	// Query is merged into the URL query string.
	Query url.Values
	// Header is applied after client-wide headers.
	Header http.Header
	// Filename names a download when the server sends no Content-Disposition.
	Filename string
}

// RequestOption adjusts one call.
type RequestOption func(*RequestConfig)

func newRequestConfig(opts []RequestOption) *RequestConfig {
	cfg := &RequestConfig{
		ShowLoading: true,
		ShowError:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithRequestID sets the correlation id used for cancellation.
func WithRequestID(id string) RequestOption {
	return func(c *RequestConfig) { c.RequestID = id }
}

// WithReturnRaw returns the body without envelope unwrapping.
func WithReturnRaw() RequestOption {
	return func(c *RequestConfig) { c.ReturnRaw = true }
}

// WithoutLoading keeps the BusyIndicator untouched.
func WithoutLoading() RequestOption {
	return func(c *RequestConfig) { c.ShowLoading = false }
}

// WithoutErrorNotification keeps failures away from the ErrorNotifier.
// They are still returned.
func WithoutErrorNotification() RequestOption {
	return func(c *RequestConfig) { c.ShowError = false }
}

// WithQuery adds query parameters.
func WithQuery(values url.Values) RequestOption {
	return func(c *RequestConfig) {
		if c.Query == nil {
			c.Query = url.Values{}
		}
		for k, vs := range values {
			for _, v := range vs {
				c.Query.Add(k, v)
			}
		}
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(c *RequestConfig) {
		if c.Header == nil {
			c.Header = http.Header{}
		}
		c.Header.Set(key, value)
	}
}

// WithFilename sets the fallback download filename.
func WithFilename(name string) RequestOption {
	return func(c *RequestConfig) { c.Filename = name }
}

// Result is a normalized response.
type Result struct {
	StatusCode int
	Header     http.Header
	// Data is the payload: the envelope's data member, or the body itself.
	Data json.RawMessage
}

// Decode unmarshals Data into v. An empty payload leaves v untouched.
func (r *Result) Decode(v any) error {
	if r == nil || len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return &ClientError{Type: ErrorTypeParse, Message: "failed to decode response", Cause: err, StatusCode: r.StatusCode}
	}
	return nil
}

// Text returns Data as a string. A JSON string payload is unquoted.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Data, &s); err == nil {
		return s
	}
	return string(r.Data)
}

// As decodes the payload of a facade call into T.
//
//	conv, err := lintas.As[Conversation](client.Post(ctx, "/conversations", body))
func As[T any](res *Result, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	err = res.Decode(&out)
	return out, err
}

// Download is a binary response, never passed through the normalizer.
type Download struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Form is a multipart/form-data payload.
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

// FormFile is one file part of a Form.
type FormFile struct {
	Field    string
	Filename string
	Content  io.Reader
}
