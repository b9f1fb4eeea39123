package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumina-estetica/citabot/pkg/logging"
)

// TranscriptMessage is one stored turn of a conversation.
type TranscriptMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptStore persists conversation history to PostgreSQL, keyed by the
// booking session. History is observability data; writes are best effort and
// never fail a turn.
type TranscriptStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewTranscriptStore creates a transcript store.
func NewTranscriptStore(db *sql.DB, logger *logging.Logger) *TranscriptStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &TranscriptStore{db: db, logger: logger}
}

// EnsureConversation upserts the conversation row for a session.
func (s *TranscriptStore) EnsureConversation(ctx context.Context, sessionID, phone, channel string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, phone, channel, status, started_at)
		VALUES ($1, $2, $3, 'active', NOW())
		ON CONFLICT (id) DO NOTHING
	`, sessionID, phone, channel)
	if err != nil {
		return fmt.Errorf("conversation: ensure conversation: %w", err)
	}
	return nil
}

// AppendMessage stores one turn.
func (s *TranscriptStore) AppendMessage(ctx context.Context, sessionID, role, body string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, conversation_id, role, body, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, uuid.NewString(), sessionID, role, body)
	if err != nil {
		return fmt.Errorf("conversation: append message: %w", err)
	}
	return nil
}

// Messages returns the stored turns for a session, oldest first.
func (s *TranscriptStore) Messages(ctx context.Context, sessionID string) ([]TranscriptMessage, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, body, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("conversation: load messages: %w", err)
	}
	defer rows.Close()

	var out []TranscriptMessage
	for rows.Next() {
		var m TranscriptMessage
		if err := rows.Scan(&m.ID, &m.Role, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterate messages: %w", err)
	}
	return out, nil
}

// CloseConversation marks the conversation ended with a final status
// ("committed" or "cancelled").
func (s *TranscriptStore) CloseConversation(ctx context.Context, sessionID, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET status = $2, ended_at = NOW()
		WHERE id = $1
	`, sessionID, status)
	if err != nil {
		return fmt.Errorf("conversation: close conversation: %w", err)
	}
	return nil
}

// record writes both sides of a turn; failures are logged, never surfaced.
func (s *TranscriptStore) record(ctx context.Context, sessionID, phone, channel, userText, reply string) {
	if s == nil || s.db == nil {
		return
	}
	if err := s.EnsureConversation(ctx, sessionID, phone, channel); err != nil {
		s.logger.Warn("transcript write failed", "error", err, "session_id", sessionID)
		return
	}
	if err := s.AppendMessage(ctx, sessionID, "user", userText); err != nil {
		s.logger.Warn("transcript write failed", "error", err, "session_id", sessionID)
	}
	if err := s.AppendMessage(ctx, sessionID, "assistant", reply); err != nil {
		s.logger.Warn("transcript write failed", "error", err, "session_id", sessionID)
	}
}
