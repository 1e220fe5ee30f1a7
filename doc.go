// Package lintas is an HTTP client for dashboard style JSON backends:
//
//   - Cancellable requests keyed by request id; re-issuing an id pre-empts the
//     earlier call, and related calls can be canceled by id prefix
//   - Response normalization of {code, data, message, success} envelopes
//   - Uniform error classification into a single *ClientError shape
//   - Incremental NDJSON stream consumption tolerant of chunk boundaries and
//     malformed lines
//   - Pluggable credential stores (static, env, file watched with fsnotify, Redis)
//   - Middleware chain, OpenTelemetry tracing, Prometheus metrics and zap logging
//
// Typical usage:
//
//	client := lintas.New(
//	    lintas.WithBaseURL("http://localhost:8080/api"),
//	    lintas.WithCredentialStore(lintas.EnvToken("LINTAS_TOKEN")),
//	)
//	res, err := client.Get(ctx, "/conversations", nil,
//	    lintas.WithRequestID(lintas.NewRequestID("conversations-list")))
//
// Failures of requests issued with the default options go to the
// ErrorNotifier (WithErrorNotifier); cancellations never do. The library logs
// nothing on its own: provide a Logger (e.g. via WithSimpleLogger) and enable
// debug flags selectively (WithDebug / WithDebugConfig).
package lintas
