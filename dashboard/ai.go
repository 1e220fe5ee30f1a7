package dashboard

import (
	"context"
	"net/url"

	"github.com/ambiyansyah-risyal/lintas"
)

// Model names an LLM backend.
type Model string

// Known models.
const (
	ModelTop  Model = "top-llm"
	ModelSub1 Model = "sub-llm1"
	ModelSub2 Model = "sub-llm2"
	ModelSub3 Model = "sub-llm3"
	ModelSub4 Model = "sub-llm4"
	ModelSub5 Model = "sub-llm5"
)

const aiQueryPrefix = "ai-query-"

// AIResponse is the answer of one model.
type AIResponse struct {
	Response string `json:"response"`
	// Thinking is reserved; the backend does not send it yet.
	Thinking string `json:"thinking"`
}

// AIService queries the LLM backends.
type AIService struct {
	client *lintas.Client
}

// Query asks model a question. The backend answers with a bare body, which
// is returned as text.
func (s *AIService) Query(ctx context.Context, model Model, question string, opts ...lintas.RequestOption) (*AIResponse, error) {
	opts = append([]lintas.RequestOption{
		lintas.WithRequestID(lintas.NewRequestID("ai-query", string(model))),
		lintas.WithReturnRaw(),
	}, opts...)

	res, err := s.client.Get(ctx, "/llm/query/"+url.PathEscape(string(model)),
		url.Values{"user_question": {question}}, opts...)
	if err != nil {
		return nil, err
	}
	return &AIResponse{Response: res.Text()}, nil
}

// CancelModel cancels the in-flight queries to model.
func (s *AIService) CancelModel(model Model) []string {
	return s.client.CancelRequestsByPrefix(aiQueryPrefix + string(model) + "-")
}

// CancelAll cancels every in-flight model query. Other requests are left alone.
func (s *AIService) CancelAll() []string {
	return s.client.CancelRequestsByPrefix(aiQueryPrefix)
}
