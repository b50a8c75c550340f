package models

import (
	"time"

	"github.com/google/uuid"
)

// Item is a collected artifact (article, PDF, search hit) moving through
// the pipeline stages.
type Item struct {
	ID                    uuid.UUID      `json:"id"`
	SourceID              string         `json:"source_id"`
	URL                   string         `json:"url"`
	URLHash               string         `json:"url_hash"`
	ContentHash           *string        `json:"content_hash,omitempty"`
	Title                 string         `json:"title"`
	RawText               string         `json:"raw_text"`
	Language              *string        `json:"language,omitempty"`
	TextEN                *string        `json:"text_en,omitempty"`
	TranslationConfidence *float64       `json:"translation_confidence,omitempty"`
	PublishedAt           *time.Time     `json:"published_at,omitempty"`
	FetchedAt             time.Time      `json:"fetched_at"`
	PipelineStatus        PipelineStatus `json:"pipeline_status"`
	PipelineError         *string        `json:"pipeline_error,omitempty"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// Text returns the best available text for downstream processing: the
// English translation when present and non-empty, otherwise the raw text.
func (i *Item) Text() string {
	if i.TextEN != nil && *i.TextEN != "" {
		return *i.TextEN
	}
	return i.RawText
}
