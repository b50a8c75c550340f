package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Publisher announces collection results on the items NOTIFY channel.
type Publisher struct {
	pool *pgxpool.Pool
}

// NewPublisher creates a Publisher over the shared pool.
func NewPublisher(pool *pgxpool.Pool) *Publisher {
	return &Publisher{pool: pool}
}

// ItemsCollected announces that a sweep stored count new items for a
// source. pg_notify is fire-and-forget; callers treat failures as a lost
// wake, not a lost item.
func (p *Publisher) ItemsCollected(ctx context.Context, sourceID string, count int) error {
	payload, err := json.Marshal(ItemsCollected{SourceID: sourceID, Count: count})
	if err != nil {
		return fmt.Errorf("failed to marshal items announcement: %w", err)
	}
	if _, err := p.pool.Exec(ctx, "SELECT pg_notify($1, $2)", ItemsChannel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", ItemsChannel, err)
	}
	return nil
}
