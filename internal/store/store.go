// Package store persists call configurations keyed by conversation id.
package store

import (
	"context"
	"errors"

	"telephony-bridge/internal/calls"
)

var ErrNotFound = errors.New("store: call config not found")

// ConfigStore is read-your-writes for a single key. Save overwrites.
type ConfigStore interface {
	Save(ctx context.Context, conversationID string, cfg *calls.Config) error
	Get(ctx context.Context, conversationID string) (*calls.Config, error)
}

var errEmptyID = errors.New("store: conversation id required")

func checkSave(conversationID string, cfg *calls.Config) error {
	if conversationID == "" {
		return errEmptyID
	}
	if cfg == nil {
		return errors.New("store: nil config")
	}
	return nil
}
