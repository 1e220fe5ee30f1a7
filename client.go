package lintas

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	contentTypeJSON = "application/json"
	defaultTimeout  = 10 * time.Second
	maxErrorBody    = 64 * 1024
)

// Client is an HTTP client for JSON and NDJSON backends. Every call runs
// under a cancellation handle keyed by its request id, so re-issuing an id
// abandons the earlier call and related calls can be canceled by prefix.
// It is safe for concurrent use.
type Client struct {
	httpClient      *http.Client
	streamClient    *http.Client
	baseURL         string
	timeout         time.Duration
	headerMu        sync.RWMutex
	headers         http.Header
	credentials     CredentialStore
	middleware      []Middleware
	registry        *RequestRegistry
	limiter         *rate.Limiter
	tracer          trace.Tracer
	metrics         *MetricsCollector
	debug           *DebugConfig
	logger          Logger
	notifier        ErrorNotifier
	busy            BusyIndicator
	onUnauthorized  UnauthorizedHandler
	validationError error
}

// New constructs a Client using the provided functional options. A best effort
// validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		timeout: defaultTimeout,
		headers: http.Header{
			"Content-Type": []string{contentTypeJSON},
			"Accept":       []string{contentTypeJSON},
		},
		middleware: []Middleware{},
		registry:   NewRequestRegistry(),
		debug:      DefaultDebugConfig(),
		logger:     NopLogger(),
	}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	// Fall back to defaults for what failed validation so the client stays usable.
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if client.logger == nil {
		client.logger = NopLogger()
	}
	if client.debug == nil {
		client.debug = DefaultDebugConfig()
	}

	if client.tracer != nil {
		client.middleware = append([]Middleware{TracingMiddleware(client.tracer)}, client.middleware...)
	}
	if client.notifier == nil {
		client.notifier = &logNotifier{logger: client.logger}
	}
	// Streams run until the server closes them; only the caller's context
	// bounds them.
	client.streamClient = &http.Client{
		Transport:     client.httpClient.Transport,
		CheckRedirect: client.httpClient.CheckRedirect,
		Jar:           client.httpClient.Jar,
	}
	if client.metrics != nil {
		metrics := client.metrics
		client.registry.SetCancelListener(func(scope, _ string) {
			metrics.RecordCancellation(scope)
		})
	}

	return client
}

// Registry exposes the request registry.
func (c *Client) Registry() *RequestRegistry {
	return c.registry
}

// CancelRequest cancels the live request registered under id.
func (c *Client) CancelRequest(id string) bool {
	ok := c.registry.Cancel(id)
	c.observeRegistry()
	return ok
}

// CancelRequestsByPrefix cancels every live request whose id starts with prefix.
func (c *Client) CancelRequestsByPrefix(prefix string) []string {
	ids := c.registry.CancelByPrefix(prefix)
	c.observeRegistry()
	if len(ids) > 0 && c.debugEnabled(c.debug.LogCancellations) {
		c.logger.Debug("Canceled requests by prefix", "prefix", prefix, "count", len(ids))
	}
	return ids
}

// CancelRequestsByURL cancels every live request keyed by a path starting
// with urlPrefix. Requests without an explicit id are keyed by their path.
func (c *Client) CancelRequestsByURL(urlPrefix string) []string {
	return c.CancelRequestsByPrefix(urlPrefix)
}

// CancelAllRequests cancels every live request.
func (c *Client) CancelAllRequests() int {
	n := c.registry.CancelAll()
	c.observeRegistry()
	return n
}

// SetHeaders sets client-wide headers sent with every request.
func (c *Client) SetHeaders(headers map[string]string) {
	c.headerMu.Lock()
	defer c.headerMu.Unlock()
	for k, v := range headers {
		c.headers.Set(k, v)
	}
}

// SetToken sets a client-wide bearer token. A token from the CredentialStore
// takes precedence.
func (c *Client) SetToken(token string) {
	c.SetHeaders(map[string]string{"Authorization": "Bearer " + token})
}

// ClearToken removes the client-wide bearer token.
func (c *Client) ClearToken() {
	c.headerMu.Lock()
	c.headers.Del("Authorization")
	c.headerMu.Unlock()
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// requestSpec describes one transport call.
type requestSpec struct {
	method      string
	path        string
	body        []byte
	contentType string
	accept      string
	cfg         *RequestConfig
}

// callInfo stamps errors and metrics of one call.
type callInfo struct {
	id       string
	method   string
	url      string
	endpoint string
	start    time.Time
}

type rawResponse struct {
	info   callInfo
	status int
	header http.Header
	body   []byte
}

// do runs one buffered request: register, send, read, classify transport
// and HTTP status failures. Envelope handling is left to the caller.
func (c *Client) do(ctx context.Context, spec requestSpec) (*rawResponse, error) {
	cfg := spec.cfg
	h, req, info, err := c.prepare(ctx, spec)
	if err != nil {
		return nil, err
	}
	defer c.settle(h)

	if cfg.ShowLoading && c.busy != nil {
		c.busy.Begin(info.id)
		defer c.busy.End(info.id)
	}

	c.metrics.RecordRequestStart(info.method, info.endpoint)
	defer c.metrics.RecordRequestEnd(info.method, info.endpoint)

	if c.debugEnabled(c.debug.LogRequests) {
		c.logger.Debug("Starting request", "requestID", info.id, "method", info.method, "url", info.url)
	}

	if err := c.wait(h); err != nil {
		return nil, c.fail(ctx, cfg, info, err)
	}

	resp, err := c.executeMiddleware(c.httpClient, req)
	if err != nil {
		return nil, c.fail(ctx, cfg, info, c.transportError(h, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(ctx, cfg, info, c.transportError(h, err))
	}
	c.metrics.RecordRequest(info.method, info.endpoint, resp.StatusCode, time.Since(info.start))

	if c.debugEnabled(c.debug.LogRequests) {
		c.logger.Debug("Request completed", "requestID", info.id, "status", resp.StatusCode, "duration", time.Since(info.start))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(ctx, cfg, info, statusError(resp.StatusCode, body))
	}

	return &rawResponse{info: info, status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// prepare registers the handle and builds the request bound to it.
func (c *Client) prepare(ctx context.Context, spec requestSpec) (*Handle, *http.Request, callInfo, error) {
	cfg := spec.cfg
	target, err := c.resolveURL(spec.path, cfg.Query)
	if err != nil {
		return nil, nil, callInfo{}, &ClientError{Type: ErrorTypeValidation, Message: "invalid request url", Cause: err, URL: spec.path}
	}

	id := cfg.RequestID
	if id == "" {
		id = spec.path
	}

	h := c.registry.Register(ctx, id)
	c.observeRegistry()

	var body io.Reader
	if spec.body != nil {
		body = bytes.NewReader(spec.body)
	}
	req, err := http.NewRequestWithContext(h.Context(), spec.method, target, body)
	if err != nil {
		c.settle(h)
		return nil, nil, callInfo{}, &ClientError{Type: ErrorTypeValidation, Message: "failed to create request", Cause: err, RequestID: id, URL: target}
	}
	c.applyHeaders(ctx, req, spec)

	info := callInfo{
		id:       id,
		method:   spec.method,
		url:      target,
		endpoint: getEndpointFromRequest(req),
		start:    time.Now(),
	}
	return h, req, info, nil
}

func (c *Client) settle(h *Handle) {
	h.Release()
	c.observeRegistry()
}

func (c *Client) observeRegistry() {
	if c.metrics != nil {
		c.metrics.RecordRegisteredRequests(c.registry.Len())
	}
}

func (c *Client) applyHeaders(ctx context.Context, req *http.Request, spec requestSpec) {
	c.headerMu.RLock()
	for k, vs := range c.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	c.headerMu.RUnlock()

	if spec.contentType != "" {
		req.Header.Set("Content-Type", spec.contentType)
	}
	if spec.accept != "" {
		req.Header.Set("Accept", spec.accept)
	}

	if c.credentials != nil {
		token, err := c.credentials.Token(ctx)
		if err != nil {
			c.logger.Warn("Credential lookup failed, sending request without token", "error", err)
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	for k, vs := range spec.cfg.Header {
		req.Header[k] = append([]string(nil), vs...)
	}
}

func (c *Client) resolveURL(path string, query url.Values) (string, error) {
	target := path
	if u, err := url.Parse(path); err != nil || !u.IsAbs() {
		if c.baseURL != "" {
			target = strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
		}
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) wait(h *Handle) *ClientError {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(h.Context()); err != nil {
		if h.Context().Err() != nil {
			return contextError(h.Context())
		}
		return &ClientError{Type: ErrorTypeRateLimit, Message: "rate limit exceeded", Cause: err}
	}
	return nil
}

func (c *Client) executeMiddleware(httpClient *http.Client, req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return httpClient.Do(req)
	}

	current := RoundTripperFunc(httpClient.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

// transportError classifies a failure that produced no usable response.
func (c *Client) transportError(h *Handle, err error) *ClientError {
	if h.Context().Err() != nil {
		return contextError(h.Context())
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ClientError{Type: ErrorTypeNetwork, Message: "request timed out", Cause: err}
	}
	cls := Classify(0, false, false)
	return &ClientError{Type: cls.Type, Message: cls.Message, Cause: err}
}

func statusError(status int, body []byte) *ClientError {
	cls := Classify(status, true, false)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &ClientError{Type: cls.Type, Message: cls.Message, StatusCode: status, Body: body}
}

// fail stamps ce with call details, records it and runs the side effects:
// the unauthorized hook, then the notifier when ShowError is set.
// Cancellations only get a debug log.
func (c *Client) fail(ctx context.Context, cfg *RequestConfig, info callInfo, ce *ClientError) *ClientError {
	ce.RequestID = info.id
	ce.Method = info.method
	ce.URL = info.url
	ce.Endpoint = info.endpoint
	ce.Timestamp = time.Now()
	ce.Duration = time.Since(info.start)

	c.metrics.RecordError(ce.Type, info.method, info.endpoint)

	if ce.Canceled() {
		if c.debugEnabled(c.debug.LogCancellations) {
			c.logger.Debug("Request canceled", "requestID", info.id, "cause", ce.Cause)
		}
		return ce
	}

	if ce.Type == ErrorTypeUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized(ctx, ce)
	}
	if cfg.ShowError {
		c.notifier.Notify(ctx, ce)
	}
	return ce
}

func (c *Client) debugEnabled(category bool) bool {
	return c.debug != nil && c.debug.Enabled && category
}

// logNotifier is the default ErrorNotifier.
type logNotifier struct {
	logger Logger
}

func (n *logNotifier) Notify(_ context.Context, err *ClientError) {
	n.logger.Error("Request failed",
		"requestID", err.RequestID,
		"type", err.Type,
		"message", err.Message,
		"status", err.StatusCode,
		"url", err.URL,
	)
}

func getEndpointFromRequest(req *http.Request) string {
	if req.URL == nil {
		return "unknown"
	}

	host := req.URL.Host
	path := req.URL.Path

	var builder strings.Builder
	builder.WriteString(host)

	if path != "" && path != "/" {
		builder.WriteString(path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
