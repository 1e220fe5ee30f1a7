// Package dashboard wraps the monitoring dashboard backend: LLM queries,
// conversations, the prediction algorithms and the streaming expert
// evaluation. Every call runs through a *lintas.Client, so cancellation,
// normalization and error classification behave the same everywhere.
//
// Request ids are built from a per-service prefix, which is what the Cancel
// methods rely on:
//
//	ai-query-{model}-{uuid}
//	conversations-{id}-{op}-{uuid}
//	eval-llm-{uuid}
package dashboard

import (
	"net/url"
	"strconv"

	"github.com/ambiyansyah-risyal/lintas"
)

const (
	// DefaultPageLimit is sent when a paginated query leaves Limit at zero.
	DefaultPageLimit = 100
	// MaxPageLimit is the largest page the backend serves.
	MaxPageLimit = 500
)

// Service groups the endpoint wrappers.
type Service struct {
	client *lintas.Client

	AI            *AIService
	Conversations *ConversationService
	Algorithm1    *Algorithm1Service
	Algorithm3    *Algorithm3Service
	Evaluation    *EvaluationService
}

// Option configures a Service.
type Option func(*Service)

// WithLLMBaseURL sets the base URL of the evaluation backend, which is served
// apart from the main API.
func WithLLMBaseURL(base string) Option {
	return func(s *Service) {
		s.Evaluation.baseURL = base
	}
}

// New builds the wrappers on top of client.
func New(client *lintas.Client, opts ...Option) *Service {
	s := &Service{
		client:        client,
		AI:            &AIService{client: client},
		Conversations: &ConversationService{client: client},
		Algorithm1:    &Algorithm1Service{client: client},
		Algorithm3:    &Algorithm3Service{client: client},
		Evaluation:    &EvaluationService{client: client},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CancelAll cancels every request issued through the client.
func (s *Service) CancelAll() int {
	return s.client.CancelAllRequests()
}

// Pagination describes one page of a result set.
type Pagination struct {
	Total   int  `json:"total"`
	Skip    int  `json:"skip"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// Page is a paginated response.
type Page[T any] struct {
	Pagination Pagination `json:"pagination"`
	Data       []T        `json:"data"`
}

// PageParams selects a page. With GetAll set, Skip and Limit are not sent.
type PageParams struct {
	Skip   int
	Limit  int
	GetAll bool
}

func (p PageParams) apply(q url.Values) {
	if p.GetAll {
		q.Set("get_all", "true")
		return
	}
	limit := p.Limit
	switch {
	case limit <= 0:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	q.Set("skip", strconv.Itoa(max(p.Skip, 0)))
	q.Set("limit", strconv.Itoa(limit))
}

func setIfNotEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setIntPtr(q url.Values, key string, v *int) {
	if v != nil {
		q.Set(key, strconv.Itoa(*v))
	}
}

// localize defaults to true.
func setLocalize(q url.Values, v *bool) {
	localize := true
	if v != nil {
		localize = *v
	}
	q.Set("localize", strconv.FormatBool(localize))
}
