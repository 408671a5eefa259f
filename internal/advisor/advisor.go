package advisor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
	"github.com/louisruiz/mt5-trading-analyzer/pkg/ratelimit"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// ReportSource provides the latest published risk report.
type ReportSource interface {
	Latest() *domain.RiskReport
}

// ConversationStore persists and retrieves conversation messages.
type ConversationStore interface {
	AppendMessage(ctx context.Context, chatID int64, role, content string) error
	RecentMessages(ctx context.Context, chatID int64, limit int) ([]domain.ConversationMessage, error)
	ClearConversation(ctx context.Context, chatID int64) error
}

// AdvisorService answers free-form questions about the account's risk using
// the latest report as grounding context.
type AdvisorService struct {
	tracer     trace.Tracer
	llm        LLMClient
	reports    ReportSource
	convStore  ConversationStore
	limiter    *ratelimit.Limiter
	model      string
	maxHistory int
}

func NewAdvisorService(
	tracer trace.Tracer,
	llm LLMClient,
	reports ReportSource,
	convStore ConversationStore,
	model string,
	maxHistory int,
) *AdvisorService {
	if maxHistory <= 0 {
		maxHistory = 20
	}
	return &AdvisorService{
		tracer:     tracer,
		llm:        llm,
		reports:    reports,
		convStore:  convStore,
		limiter:    ratelimit.New(5, 12*time.Second),
		model:      model,
		maxHistory: maxHistory,
	}
}

func (s *AdvisorService) Ask(ctx context.Context, chatID int64, userMessage string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.ask")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat_id", chatID))

	if s.convStore != nil {
		if err := s.convStore.AppendMessage(ctx, chatID, domain.RoleUser, userMessage); err != nil {
			log.Printf("failed to store user message: %v", err)
		}
	}

	report := s.reports.Latest()
	var known []string
	if report != nil {
		known = ReportSymbols(report)
	}
	mentioned := ExtractSymbols(userMessage, known)
	systemPrompt := BuildSystemPrompt(FormatRiskContext(report, mentioned))

	var history []domain.ConversationMessage
	if s.convStore != nil {
		var err error
		history, err = s.convStore.RecentMessages(ctx, chatID, s.maxHistory)
		if err != nil {
			log.Printf("failed to load conversation history: %v", err)
			history = nil
		}
	}
	// the store may not have persisted the question
	if len(history) == 0 || history[len(history)-1].Content != userMessage {
		history = append(history, domain.ConversationMessage{Role: domain.RoleUser, Content: userMessage})
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("advisor busy: %w", err)
	}
	reply, err := s.callLLM(ctx, s.buildMessages(systemPrompt, history))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("advisor unavailable: %w", err)
	}

	if s.convStore != nil {
		if err := s.convStore.AppendMessage(ctx, chatID, domain.RoleAssistant, reply); err != nil {
			log.Printf("failed to store assistant reply: %v", err)
		}
	}
	return reply, nil
}

// Forget drops the stored conversation of a chat. Without a store there is
// nothing to forget.
func (s *AdvisorService) Forget(ctx context.Context, chatID int64) error {
	if s.convStore == nil {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "advisor.forget")
	defer span.End()
	return s.convStore.ClearConversation(ctx, chatID)
}

func (s *AdvisorService) buildMessages(
	systemPrompt string,
	history []domain.ConversationMessage,
) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, msg := range history {
		switch msg.Role {
		case domain.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case domain.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}
	return messages
}

func (s *AdvisorService) callLLM(
	ctx context.Context,
	messages []openai.ChatCompletionMessageParamUnion,
) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.llm-call")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", s.model),
		attribute.Int("llm.message_count", len(messages)),
	)

	completion, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	reply := completion.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{client: client}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
