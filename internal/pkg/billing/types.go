package billing

import "time"

// CheckoutInput carries everything needed to start an upgrade checkout.
type CheckoutInput struct {
	UserID       uint
	PlanID       string
	BillingCycle string
	SuccessURL   string
	CancelURL    string
}

// BillingEvent is the provider-agnostic shape of an asynchronous billing
// notification after envelope parsing.
type BillingEvent struct {
	ID              string
	Type            string
	OccurredAt      time.Time
	CustomerRef     string
	SessionID       string
	PriceRef        string
	ProcessorStatus string
	UserID          string
	PlanID          string
	BillingCycle    string
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
