package models

import "time"

// WebhookEvent is the processed-event ledger. The primary key on the
// processor-assigned event id makes the insert the deduplication point:
// a duplicate delivery hits the unique constraint and is acknowledged
// without reapplying its effect.
type WebhookEvent struct {
	EventID     string     `gorm:"column:event_id;primaryKey"`
	Type        string     `gorm:"column:type;not null"`
	ReceivedAt  time.Time  `gorm:"column:received_at;not null"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
}
