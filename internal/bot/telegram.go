package bot

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/alerts"
	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	tele "gopkg.in/telebot.v3"
)

type ReportSource interface {
	Latest() *domain.RiskReport
	AlertHistory() *alerts.History
}

type RefreshTrigger interface {
	TriggerNow() bool
}

type Advisor interface {
	Ask(ctx context.Context, chatID int64, question string) (string, error)
	Forget(ctx context.Context, chatID int64) error
}

type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

var newTeleBot = tele.NewBot

// Notifier pushes alerts to the configured chat. It satisfies
// service.AlertNotifier.
type Notifier struct {
	bot    sender
	chatID int64
}

func (n *Notifier) NotifyAlerts(ctx context.Context, list []domain.Alert) error {
	if n == nil || n.chatID == 0 {
		return nil
	}
	msg, ok := FormatPush(list)
	if !ok {
		return nil
	}
	_, err := n.bot.Send(tele.ChatID(n.chatID), msg)
	return err
}

// StartTelegramBot registers the command handlers and starts long polling.
// It returns nil when no token is configured.
func StartTelegramBot(token string, chatID int64, reports ReportSource, trigger RefreshTrigger, advisor Advisor) *Notifier {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	b, err := newTeleBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		log.Printf("Warning: failed to create Telegram bot: %v", err)
		return nil
	}

	for cmd, fn := range commands(reports, trigger, advisor) {
		fn := fn
		b.Handle(cmd, func(c tele.Context) error {
			return c.Send(fn(c.Chat().ID, c.Args()))
		})
	}

	log.Println("Telegram bot started")
	go b.Start()
	return &Notifier{bot: b, chatID: chatID}
}

type command func(chatID int64, args []string) string

func commands(reports ReportSource, trigger RefreshTrigger, advisor Advisor) map[string]command {
	return map[string]command{
		"/ping":     func(int64, []string) string { return "pong" },
		"/risk":     func(int64, []string) string { return FormatRisk(reports.Latest()) },
		"/var":      func(int64, []string) string { return FormatVaR(reports.Latest()) },
		"/drawdown": func(int64, []string) string { return FormatDrawdown(reports.Latest()) },
		"/leverage": func(int64, []string) string { return FormatLeverage(reports.Latest()) },
		"/alerts":   func(int64, []string) string { return FormatAlerts(reports.AlertHistory().Recent(10)) },
		"/refresh": func(int64, []string) string {
			if trigger == nil {
				return "Manual refresh is not available."
			}
			if !trigger.TriggerNow() {
				return "A refresh is already running."
			}
			return "Refresh queued."
		},
		"/ask": func(chatID int64, args []string) string {
			if advisor == nil {
				return "The advisor is not configured."
			}
			q := strings.TrimSpace(strings.Join(args, " "))
			if q == "" {
				return "Usage: /ask why is my risk score high?"
			}
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			reply, err := advisor.Ask(ctx, chatID, q)
			if err != nil {
				return "Advisor error: " + err.Error()
			}
			return reply
		},
		"/forget": func(chatID int64, _ []string) string {
			if advisor == nil {
				return "The advisor is not configured."
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := advisor.Forget(ctx, chatID); err != nil {
				return "Could not clear the conversation: " + err.Error()
			}
			return "Conversation cleared."
		},
	}
}
