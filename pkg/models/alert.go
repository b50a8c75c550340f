package models

import "time"

// Alert is an immutable ledger row recording one delivered (or attempted)
// notification. The dedup key makes re-sends within a UTC day no-ops.
type Alert struct {
	ID                int64          `json:"id"`
	AlertType         AlertType      `json:"alert_type"`
	ThemeID           *string        `json:"theme_id,omitempty"`
	Payload           map[string]any `json:"payload,omitempty"`
	TelegramMessageID *int           `json:"telegram_message_id,omitempty"`
	DedupKey          string         `json:"dedup_key"`
	SentAt            time.Time      `json:"sent_at"`
}

// PipelineRun is an audit row for one stage sweep; read-only once finished.
type PipelineRun struct {
	ID             int64      `json:"id"`
	Stage          string     `json:"stage"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	ItemsProcessed int        `json:"items_processed"`
	ItemsErrored   int        `json:"items_errored"`
}
