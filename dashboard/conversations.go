package dashboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ambiyansyah-risyal/lintas"
)

const conversationsPath = "/conversations"

// Conversation is a chat thread with one model.
type Conversation struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Model        string `json:"model"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
	MessageCount int    `json:"messageCount"`
}

// Role of a message author.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message belongs to a conversation.
type Message struct {
	ID             int     `json:"id"`
	Role           Role    `json:"role"`
	Content        string  `json:"content"`
	Thinking       *string `json:"thinking,omitempty"`
	Model          *string `json:"model,omitempty"`
	Timestamp      string  `json:"timestamp"`
	ConversationID int     `json:"conversation_id"`
}

// NewMessage is the payload of AddMessage.
type NewMessage struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	Thinking string `json:"thinking,omitempty"`
	Model    string `json:"model,omitempty"`
}

// ConversationService manages conversations and their messages.
type ConversationService struct {
	client *lintas.Client
}

// conversationRequestID keys calls about one conversation under a shared prefix so
// CancelConversation reaches all of them.
func conversationRequestID(id int, op string) lintas.RequestOption {
	return lintas.WithRequestID(lintas.NewRequestID("conversations", strconv.Itoa(id), op))
}

// Create starts a conversation with model.
func (s *ConversationService) Create(ctx context.Context, title, model string, opts ...lintas.RequestOption) (*Conversation, error) {
	opts = append([]lintas.RequestOption{
		lintas.WithRequestID(lintas.NewRequestID("conversations", "create")),
	}, opts...)
	body := map[string]string{"title": title, "model": model}
	return lintas.As[*Conversation](s.client.Post(ctx, conversationsPath, body, opts...))
}

// List returns every conversation.
func (s *ConversationService) List(ctx context.Context, opts ...lintas.RequestOption) ([]Conversation, error) {
	opts = append([]lintas.RequestOption{
		lintas.WithRequestID(lintas.NewRequestID("conversations", "list")),
		lintas.WithReturnRaw(),
	}, opts...)
	return lintas.As[[]Conversation](s.client.Get(ctx, conversationsPath, nil, opts...))
}

// Rename changes the title of conversation id.
func (s *ConversationService) Rename(ctx context.Context, id int, title string, opts ...lintas.RequestOption) (*Conversation, error) {
	opts = append([]lintas.RequestOption{conversationRequestID(id, "rename")}, opts...)
	body := map[string]string{"title": title}
	return lintas.As[*Conversation](s.client.Put(ctx, fmt.Sprintf("%s/%d", conversationsPath, id), body, opts...))
}

// Delete removes conversation id.
func (s *ConversationService) Delete(ctx context.Context, id int, opts ...lintas.RequestOption) error {
	opts = append([]lintas.RequestOption{conversationRequestID(id, "delete")}, opts...)
	_, err := s.client.Delete(ctx, fmt.Sprintf("%s/%d", conversationsPath, id), nil, opts...)
	return err
}

// Messages returns the messages of conversation id.
func (s *ConversationService) Messages(ctx context.Context, id int, opts ...lintas.RequestOption) ([]Message, error) {
	opts = append([]lintas.RequestOption{
		conversationRequestID(id, "messages"),
		lintas.WithReturnRaw(),
	}, opts...)
	return lintas.As[[]Message](s.client.Get(ctx, fmt.Sprintf("%s/%d/messages", conversationsPath, id), nil, opts...))
}

// AddMessage appends msg to conversation id.
func (s *ConversationService) AddMessage(ctx context.Context, id int, msg NewMessage, opts ...lintas.RequestOption) (*Message, error) {
	opts = append([]lintas.RequestOption{
		conversationRequestID(id, "add-message"),
		lintas.WithReturnRaw(),
	}, opts...)
	return lintas.As[*Message](s.client.Post(ctx, fmt.Sprintf("%s/%d/messages", conversationsPath, id), msg, opts...))
}

// CancelAll cancels every in-flight conversation request.
func (s *ConversationService) CancelAll() []string {
	return s.client.CancelRequestsByPrefix("conversations-")
}

// CancelConversation cancels the in-flight requests about conversation id.
func (s *ConversationService) CancelConversation(id int) []string {
	return s.client.CancelRequestsByPrefix("conversations-" + strconv.Itoa(id) + "-")
}
