package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ConversationRepository stores advisor chat turns per chat id. Telegram
// chats use their own id; SSH sessions use a negative id derived from the key.
type ConversationRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewConversationRepository(pool PgxPool, tracer trace.Tracer) *ConversationRepository {
	return &ConversationRepository{pool: pool, tracer: tracer}
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, chatID int64, role, content string) error {
	ctx, span := r.tracer.Start(ctx, "conversation-repo.append-message")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat_id", chatID), attribute.String("role", role))

	if role != domain.RoleUser && role != domain.RoleAssistant {
		return fmt.Errorf("conversation role %q: %w", role, domain.ErrConfigurationInvalid)
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO conversations (chat_id, role, content) VALUES ($1, $2, $3)`,
		chatID, role, content,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// RecentMessages returns the last limit turns of a chat, oldest first.
func (r *ConversationRepository) RecentMessages(ctx context.Context, chatID int64, limit int) ([]domain.ConversationMessage, error) {
	ctx, span := r.tracer.Start(ctx, "conversation-repo.recent-messages")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT role, content, created_at
		 FROM conversations
		 WHERE chat_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		chatID, limit,
	)
	if err != nil {
		return nil, err
	}
	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ConversationMessage, error) {
		var (
			m  domain.ConversationMessage
			ts time.Time
		)
		err := row.Scan(&m.Role, &m.Content, &ts)
		m.CreatedAt = ts.UTC()
		return m, err
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

// ClearConversation forgets every stored turn of a chat.
func (r *ConversationRepository) ClearConversation(ctx context.Context, chatID int64) error {
	ctx, span := r.tracer.Start(ctx, "conversation-repo.clear")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE chat_id = $1`, chatID)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int64("deleted", tag.RowsAffected()))
	return nil
}
