package models

import "time"

// WebhookEvent stores received provider webhook payloads with deduplication
// metadata. The unique (event_type, provider_event_id) index makes replayed
// deliveries no-ops.
type WebhookEvent struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time  `json:"created_at"`
	EventType       string     `gorm:"type:varchar(50);not null;uniqueIndex:ux_webhook_events_type_event,priority:1" json:"event_type"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_type_event,priority:2" json:"provider_event_id"`
	Payload         string     `gorm:"type:text;not null" json:"payload"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
