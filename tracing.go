package lintas

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware starts a client span per request and injects the trace
// context into the outgoing headers with the global propagator. A nil tracer
// uses the global provider.
func TracingMiddleware(tracer trace.Tracer) Middleware {
	if tracer == nil {
		tracer = otel.Tracer("github.com/ambiyansyah-risyal/lintas")
	}
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		ctx, span := tracer.Start(
			req.Context(),
			"lintas "+req.Method,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("url.full", req.URL.String()),
				attribute.String("server.address", req.URL.Host),
			),
		)
		defer span.End()

		req = req.WithContext(ctx)
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

		resp, err := next.RoundTrip(req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "request failed")
			return nil, err
		}

		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		if resp.StatusCode >= 400 {
			span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		}
		return resp, nil
	}
}
