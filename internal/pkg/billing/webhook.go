package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Webhook event types the billing flow reacts to. Everything else is
// acknowledged and ignored.
const (
	EventCheckoutSessionCompleted   = "checkout.session.completed"
	EventCustomerSubscriptionUpdate = "customer.subscription.updated"
	EventCustomerSubscriptionDelete = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded    = "invoice.payment_succeeded"
	EventInvoicePaymentFailed       = "invoice.payment_failed"
)

func IsKnownEventType(eventType string) bool {
	switch eventType {
	case EventCheckoutSessionCompleted,
		EventCustomerSubscriptionUpdate,
		EventCustomerSubscriptionDelete,
		EventInvoicePaymentSucceeded,
		EventInvoicePaymentFailed:
		return true
	default:
		return false
	}
}

type webhookEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseStripeWebhookEvent turns a raw webhook payload into the normalized
// BillingEvent the orchestrator consumes. Payloads without an event id or
// type are rejected; unknown event types parse fine and carry only the
// envelope fields.
func ParseStripeWebhookEvent(payload []byte) (*BillingEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if strings.TrimSpace(envelope.ID) == "" {
		return nil, errors.New("webhook payload missing event id")
	}
	if strings.TrimSpace(envelope.Type) == "" {
		return nil, errors.New("webhook payload missing event type")
	}

	event := &BillingEvent{
		ID:   strings.TrimSpace(envelope.ID),
		Type: strings.TrimSpace(envelope.Type),
	}
	if envelope.Created > 0 {
		event.OccurredAt = time.Unix(envelope.Created, 0).UTC()
	}

	switch event.Type {
	case EventCheckoutSessionCompleted:
		var object struct {
			ID       string `json:"id"`
			Customer string `json:"customer"`
			Metadata struct {
				UserID       string `json:"userId"`
				PlanID       string `json:"planId"`
				BillingCycle string `json:"billingCycle"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal(envelope.Data.Object, &object); err != nil {
			return nil, fmt.Errorf("invalid checkout session object: %w", err)
		}
		event.SessionID = strings.TrimSpace(object.ID)
		event.CustomerRef = strings.TrimSpace(object.Customer)
		event.UserID = strings.TrimSpace(object.Metadata.UserID)
		event.PlanID = strings.TrimSpace(object.Metadata.PlanID)
		event.BillingCycle = strings.TrimSpace(object.Metadata.BillingCycle)

	case EventCustomerSubscriptionUpdate, EventCustomerSubscriptionDelete:
		var object struct {
			ID       string `json:"id"`
			Customer string `json:"customer"`
			Status   string `json:"status"`
			Items    struct {
				Data []struct {
					Price struct {
						ID string `json:"id"`
					} `json:"price"`
				} `json:"data"`
			} `json:"items"`
		}
		if err := json.Unmarshal(envelope.Data.Object, &object); err != nil {
			return nil, fmt.Errorf("invalid subscription object: %w", err)
		}
		event.CustomerRef = strings.TrimSpace(object.Customer)
		event.ProcessorStatus = strings.TrimSpace(object.Status)
		if len(object.Items.Data) > 0 {
			event.PriceRef = strings.TrimSpace(object.Items.Data[0].Price.ID)
		}

	case EventInvoicePaymentSucceeded, EventInvoicePaymentFailed:
		var object struct {
			Customer string `json:"customer"`
		}
		if err := json.Unmarshal(envelope.Data.Object, &object); err != nil {
			return nil, fmt.Errorf("invalid invoice object: %w", err)
		}
		event.CustomerRef = strings.TrimSpace(object.Customer)
	}

	return event, nil
}
