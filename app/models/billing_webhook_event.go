package models

import "time"

// BillingWebhookEvent is the durable inbox for payment-provider webhooks.
// Every delivery is inserted before it is applied; the unique (provider,
// provider_event_id) pair makes redeliveries no-op inserts, so applying
// subscription state changes stays idempotent across provider retries.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_billing_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;default:'';index:ux_billing_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false;index" json:"signature_valid"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Processed reports whether the event has been applied to subscription state.
// Stored but unprocessed events (e.g. rejected for a bad signature) may be
// picked up again on redelivery.
func (e *BillingWebhookEvent) Processed() bool {
	return e.ProcessedAt != nil
}

// Failed reports whether processing ran but ended in an error.
func (e *BillingWebhookEvent) Failed() bool {
	return e.Processed() && e.ProcessingError != ""
}
