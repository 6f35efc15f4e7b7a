package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"telephony-bridge/internal/calls"
)

// PostgresSchema creates the table PostgresStore reads and writes.
// config holds provider credentials; restrict access to the table accordingly.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS call_configs (
  conversation_id TEXT PRIMARY KEY,
  provider        TEXT NOT NULL,
  config          JSONB NOT NULL,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, conversationID string, cfg *calls.Config) error {
	if err := checkSave(conversationID, cfg); err != nil {
		return err
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO call_configs (conversation_id, provider, config)
VALUES ($1, $2, $3)
ON CONFLICT (conversation_id)
DO UPDATE SET provider = EXCLUDED.provider, config = EXCLUDED.config, updated_at = now()
`
	if _, err := s.db.ExecContext(ctx, q, conversationID, string(cfg.Provider()), string(b)); err != nil {
		return fmt.Errorf("store: upsert call config: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, conversationID string) (*calls.Config, error) {
	const q = `
SELECT config
FROM call_configs
WHERE conversation_id = $1
`
	var raw []byte
	if err := s.db.QueryRowContext(ctx, q, conversationID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var cfg calls.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", conversationID, err)
	}
	return &cfg, nil
}
