package dashboard

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ambiyansyah-risyal/lintas"
)

const (
	evaluationPath   = "/eval-llm"
	evaluationPrefix = "eval-llm-"
)

// EvaluationService runs the streaming expert evaluation.
type EvaluationService struct {
	client  *lintas.Client
	baseURL string
}

// Stream posts config to the evaluation backend and calls fn once per
// evaluation result as it arrives. Redirects are followed. Without
// WithLLMBaseURL the client's base URL is used.
func (s *EvaluationService) Stream(ctx context.Context, config any, fn func(json.RawMessage) error, opts ...lintas.RequestOption) (lintas.StreamStats, error) {
	target := evaluationPath
	if s.baseURL != "" {
		target = strings.TrimRight(s.baseURL, "/") + evaluationPath
	}
	opts = append([]lintas.RequestOption{
		lintas.WithRequestID(lintas.NewRequestID("eval-llm")),
	}, opts...)
	return s.client.Stream(ctx, target, config, fn, opts...)
}

// StreamInto is Stream with each result decoded into T. A result that does
// not decode stops the stream.
func StreamInto[T any](ctx context.Context, s *EvaluationService, config any, fn func(T) error, opts ...lintas.RequestOption) (lintas.StreamStats, error) {
	return s.Stream(ctx, config, func(raw json.RawMessage) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return &lintas.ClientError{Type: lintas.ErrorTypeParse, Message: "failed to decode evaluation result", Cause: err}
		}
		return fn(v)
	}, opts...)
}

// Cancel cancels every running evaluation stream.
func (s *EvaluationService) Cancel() []string {
	return s.client.CancelRequestsByPrefix(evaluationPrefix)
}
