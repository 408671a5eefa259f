package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
	"github.com/louisruiz/mt5-trading-analyzer/pkg/ratelimit"

	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func reply(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestAskHappyPath(t *testing.T) {
	llm := &stubLLMClient{response: reply("Margin is comfortable")}
	store := &stubConvStore{}

	svc := NewAdvisorService(testTracer, llm, &stubReports{report: sampleReport()}, store, "gpt-4o-mini", 20)

	got, err := svc.Ask(context.Background(), 123, "How risky is EURUSD?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Margin is comfortable" {
		t.Fatalf("expected 'Margin is comfortable', got %q", got)
	}
	if len(store.messages) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(store.messages))
	}
	if store.messages[0].role != "user" || store.messages[1].role != "assistant" {
		t.Fatalf("unexpected stored roles: %s, %s", store.messages[0].role, store.messages[1].role)
	}
	// system prompt plus the persisted question
	if llm.calls != 1 || llm.lastMessages != 2 {
		t.Fatalf("expected one call with 2 messages, got %d calls, %d messages", llm.calls, llm.lastMessages)
	}
}

func TestAskLLMError(t *testing.T) {
	llm := &stubLLMClient{err: errors.New("api down")}
	store := &stubConvStore{}

	svc := NewAdvisorService(testTracer, llm, &stubReports{}, store, "gpt-4o-mini", 20)

	if _, err := svc.Ask(context.Background(), 123, "What should I cut?"); err == nil {
		t.Fatal("expected error from LLM failure")
	}
	if len(store.messages) != 1 || store.messages[0].role != "user" {
		t.Fatalf("expected user message to be stored despite LLM error, got %d messages", len(store.messages))
	}
}

func TestAskEmptyChoices(t *testing.T) {
	llm := &stubLLMClient{response: &openai.ChatCompletion{}}
	svc := NewAdvisorService(testTracer, llm, &stubReports{}, nil, "gpt-4o-mini", 20)

	if _, err := svc.Ask(context.Background(), 1, "hi"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestAskConversationStoreFailureNonFatal(t *testing.T) {
	llm := &stubLLMClient{response: reply("response")}
	store := &stubConvStore{appendErr: errors.New("db down"), recentErr: errors.New("db down")}

	svc := NewAdvisorService(testTracer, llm, &stubReports{report: sampleReport()}, store, "gpt-4o-mini", 20)

	got, err := svc.Ask(context.Background(), 123, "test")
	if err != nil {
		t.Fatalf("store failure should be non-fatal, got: %v", err)
	}
	if got != "response" {
		t.Fatalf("expected 'response', got %q", got)
	}
	if llm.lastMessages != 2 {
		t.Fatalf("question should be sent even when history fails, got %d messages", llm.lastMessages)
	}
}

func TestAskWithoutReport(t *testing.T) {
	llm := &stubLLMClient{response: reply("no data yet")}
	svc := NewAdvisorService(testTracer, llm, &stubReports{}, &stubConvStore{}, "gpt-4o-mini", 20)

	got, err := svc.Ask(context.Background(), 999, "Hello")
	if err != nil {
		t.Fatalf("missing report should be non-fatal, got: %v", err)
	}
	if got != "no data yet" {
		t.Fatalf("expected 'no data yet', got %q", got)
	}
}

func TestAskHistoryIsReplayed(t *testing.T) {
	llm := &stubLLMClient{response: reply("ok")}
	store := &stubConvStore{}
	svc := NewAdvisorService(testTracer, llm, &stubReports{}, store, "gpt-4o-mini", 20)

	for _, q := range []string{"first", "second"} {
		if _, err := svc.Ask(context.Background(), 7, q); err != nil {
			t.Fatalf("ask %q: %v", q, err)
		}
	}
	// system + first + ok + second
	if llm.lastMessages != 4 {
		t.Fatalf("expected 4 messages on the second call, got %d", llm.lastMessages)
	}
}

func TestForgetClearsHistory(t *testing.T) {
	llm := &stubLLMClient{response: reply("ok")}
	store := &stubConvStore{}
	svc := NewAdvisorService(testTracer, llm, &stubReports{}, store, "gpt-4o-mini", 20)

	if _, err := svc.Ask(context.Background(), 7, "first"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if _, err := svc.Ask(context.Background(), 8, "other chat"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if err := svc.Forget(context.Background(), 7); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, err := svc.Ask(context.Background(), 7, "again"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	// system + again
	if llm.lastMessages != 2 {
		t.Fatalf("expected a fresh conversation, got %d messages", llm.lastMessages)
	}
	if len(store.messages) != 4 {
		t.Fatalf("expected the other chat to be kept, got %d stored messages", len(store.messages))
	}

	noStore := NewAdvisorService(testTracer, llm, &stubReports{}, nil, "gpt-4o-mini", 20)
	if err := noStore.Forget(context.Background(), 7); err != nil {
		t.Fatalf("forget without store: %v", err)
	}
}

func TestAskRateLimited(t *testing.T) {
	llm := &stubLLMClient{response: reply("ok")}
	svc := NewAdvisorService(testTracer, llm, &stubReports{}, nil, "gpt-4o-mini", 20)
	svc.limiter = ratelimit.New(1, time.Hour)

	if _, err := svc.Ask(context.Background(), 1, "one"); err != nil {
		t.Fatalf("first ask: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := svc.Ask(ctx, 1, "two"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error while rate limited, got %v", err)
	}
	if llm.calls != 1 {
		t.Fatalf("expected 1 LLM call, got %d", llm.calls)
	}
}

func TestAskDefaultMaxHistory(t *testing.T) {
	svc := NewAdvisorService(testTracer, &stubLLMClient{}, &stubReports{}, &stubConvStore{}, "gpt-4o-mini", 0)
	if svc.maxHistory != 20 {
		t.Fatalf("expected default maxHistory=20, got %d", svc.maxHistory)
	}
}

func sampleReport() *domain.RiskReport {
	r := &domain.RiskReport{
		Cycle:        3,
		Account:      domain.AccountInfo{Login: 5001, Currency: "USD", Balance: 10000, Equity: 10250, Margin: 800},
		EquityPoints: 120,
		Positions:    2,
		Score: domain.RiskScore{
			Score:     42.5,
			Band:      domain.BandMedium,
			Available: true,
			Components: []domain.RiskComponent{
				{Name: domain.MetricMarginPct, RawValue: 7.8, Threshold: 50, Weight: 0.2, Available: true},
			},
		},
		VaR: domain.VaRReport{Results: []domain.VaRResult{
			{Method: domain.VaRHistorical, Horizon: "1m", Confidence: 0.95, Value: 0.092, ExpectedShortfall: 0.11},
		}},
		Exposure: domain.ExposureReport{
			MarginPct: 7.8, LongPct: 60, ShortPct: 40, TopSector: "forex", TopSectorPct: 60,
			Allocations: []domain.SymbolAllocation{
				{Symbol: "EURUSD", Notional: 100000, Pct: 60},
				{Symbol: "XAUUSD", Notional: 66000, Pct: 40},
			},
		},
		Alerts: []domain.Alert{{Severity: domain.SeverityWarning, Message: "VaR above threshold"}},
	}
	r.SetAvailability(domain.SectionScore, nil)
	r.SetAvailability(domain.SectionVaR, nil)
	r.SetAvailability(domain.SectionExposure, nil)
	r.SetAvailability(domain.SectionDrawdown, errors.New("insufficient data: 1 points"))
	return r
}

// --- stubs ---

type stubLLMClient struct {
	response     *openai.ChatCompletion
	err          error
	calls        int
	lastMessages int
}

func (s *stubLLMClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	s.calls++
	s.lastMessages = len(params.Messages)
	return s.response, s.err
}

type stubReports struct {
	report *domain.RiskReport
}

func (s *stubReports) Latest() *domain.RiskReport { return s.report }

type storedMsg struct {
	chatID  int64
	role    string
	content string
}

type stubConvStore struct {
	messages  []storedMsg
	appendErr error
	recentErr error
}

func (s *stubConvStore) AppendMessage(ctx context.Context, chatID int64, role, content string) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.messages = append(s.messages, storedMsg{chatID: chatID, role: role, content: content})
	return nil
}

func (s *stubConvStore) ClearConversation(ctx context.Context, chatID int64) error {
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.chatID != chatID {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	return nil
}

func (s *stubConvStore) RecentMessages(ctx context.Context, chatID int64, limit int) ([]domain.ConversationMessage, error) {
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	var msgs []domain.ConversationMessage
	for _, m := range s.messages {
		if m.chatID == chatID {
			msgs = append(msgs, domain.ConversationMessage{
				Role:      m.role,
				Content:   m.content,
				CreatedAt: time.Now(),
			})
		}
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}
