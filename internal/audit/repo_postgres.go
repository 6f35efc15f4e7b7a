package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresSchema creates the append-only call_events table.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS call_events (
  id               UUID PRIMARY KEY,
  type             TEXT NOT NULL,
  conversation_id  TEXT,
  provider         TEXT,
  provider_call_id TEXT,
  status           TEXT,
  actor_user_id    TEXT,
  actor_role       TEXT,
  ip_address       TEXT,
  message          TEXT,
  metadata         JSONB,
  created_at       TIMESTAMPTZ NOT NULL
)`

// PostgresRepo appends events to call_events.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO call_events (
  id, type, conversation_id, provider, provider_call_id, status,
  actor_user_id, actor_role, ip_address, message, metadata, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`
	var metadata any
	if e.Metadata != "" {
		metadata = e.Metadata
	}
	if _, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Type), e.ConversationID, e.Provider, e.ProviderCallID, e.Status,
		e.ActorUserID, e.ActorRole, e.IPAddress, e.Message, metadata, e.CreatedAt,
	); err != nil {
		return fmt.Errorf("audit: insert call event: %w", err)
	}
	return nil
}
