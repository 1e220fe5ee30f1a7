package lintas

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// WithBaseURL sets the prefix joined to relative request paths.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = base
	}
}

// WithTimeout sets the request timeout. Streams are not subject to it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the transport client. Its Transport, CheckRedirect
// and Jar are shared with the stream client; a timeout set with WithTimeout
// is carried over.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
		if c.httpClient != nil && c.timeout != 0 {
			c.httpClient.Timeout = c.timeout
		}
	}
}

// WithHeaders sets client-wide headers, replacing defaults with the same name.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.headers.Set(k, v)
		}
	}
}

// WithCredentialStore sets where the bearer token is looked up for each request.
func WithCredentialStore(store CredentialStore) Option {
	return func(c *Client) {
		c.credentials = store
	}
}

// WithMiddleware appends to the chain. The first middleware is outermost.
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithRateLimit limits outgoing requests to r per second with the given burst.
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithRateLimiter sets a shared limiter, e.g. one used by several clients.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithTracer wraps every request in a client span.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// WithMetrics registers lintas_* collectors on the default Prometheus registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector uses collector, e.g. one built on a private registry.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDebug turns on debug logging of requests, responses, cancellations
// and streams. Nothing is printed without a Logger.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig selects which debug categories are logged.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets the logger for debug output, skipped stream lines and the
// default error notifier.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger logs to stderr through a zap development logger and turns
// on debug logging.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithErrorNotifier sets where failures of ShowError requests are reported.
// The default logs them at error level.
func WithErrorNotifier(notifier ErrorNotifier) Option {
	return func(c *Client) {
		c.notifier = notifier
	}
}

// WithBusyIndicator sets the indicator toggled around ShowLoading requests.
func WithBusyIndicator(busy BusyIndicator) Option {
	return func(c *Client) {
		c.busy = busy
	}
}

// WithUnauthorizedHandler sets the hook run on HTTP 401 or envelope code 401.
func WithUnauthorizedHandler(fn UnauthorizedHandler) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// ValidateConfiguration reports every problem with the options New was
// given. New runs it and keeps the result, see ValidationError.
func (c *Client) ValidateConfiguration() error {
	checks := []func() []string{
		c.checkTransport,
		c.checkRateLimit,
		c.checkCollaborators,
		c.checkBounds,
	}
	var problems []string
	for _, check := range checks {
		problems = append(problems, check()...)
	}
	if len(problems) == 0 {
		return nil
	}
	return &ClientError{
		Type:    ErrorTypeValidation,
		Message: "configuration validation failed",
		Cause:   fmt.Errorf("%s", strings.Join(problems, "; ")),
	}
}

func (c *Client) checkTransport() (problems []string) {
	if c.timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.baseURL == "" {
		return problems
	}
	u, err := url.Parse(c.baseURL)
	switch {
	case err != nil:
		problems = append(problems, fmt.Sprintf("baseURL is not a valid URL: %v", err))
	case u.Scheme != "http" && u.Scheme != "https":
		problems = append(problems, "baseURL scheme must be http or https")
	case u.Host == "":
		problems = append(problems, "baseURL must include a host")
	}
	return problems
}

func (c *Client) checkRateLimit() (problems []string) {
	if c.limiter == nil {
		return nil
	}
	if c.limiter.Limit() <= 0 {
		problems = append(problems, "rate limit must be positive")
	}
	if c.limiter.Burst() <= 0 {
		problems = append(problems, "rate limit burst must be positive")
	}
	return problems
}

// checkCollaborators catches nil values passed to the With* options.
func (c *Client) checkCollaborators() (problems []string) {
	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	}
	if c.logger == nil {
		problems = append(problems, "logger cannot be nil")
	}
	if c.debug == nil {
		problems = append(problems, "debug config cannot be nil")
	}
	for i, mw := range c.middleware {
		if mw == nil {
			problems = append(problems, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}
	return problems
}

func (c *Client) checkBounds() (problems []string) {
	if c.timeout > 10*time.Minute {
		problems = append(problems, "timeout > 10m keeps hung requests registered for too long")
	}
	if c.limiter != nil && c.limiter.Burst() > 1_000_000 {
		problems = append(problems, "rate limit burst > 1M disables limiting in practice")
	}
	return problems
}
