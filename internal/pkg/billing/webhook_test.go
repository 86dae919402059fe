package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func stripeSignatureHeader(payload []byte, secret string, ts time.Time) string {
	timestamp := fmt.Sprintf("%d", ts.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyStripeWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded"}`)
	secret := "whsec_test"
	now := time.Now()

	header := stripeSignatureHeader(payload, secret, now)
	if !VerifyStripeWebhookSignature(payload, header, secret, DefaultSignatureTolerance, now) {
		t.Fatalf("expected valid signature to verify")
	}
	if VerifyStripeWebhookSignature(payload, header, "whsec_other", DefaultSignatureTolerance, now) {
		t.Fatalf("expected wrong secret to fail")
	}
	if VerifyStripeWebhookSignature([]byte(`{"tampered":true}`), header, secret, DefaultSignatureTolerance, now) {
		t.Fatalf("expected tampered payload to fail")
	}
	if VerifyStripeWebhookSignature(payload, "", secret, DefaultSignatureTolerance, now) {
		t.Fatalf("expected empty header to fail")
	}
}

func TestVerifyStripeWebhookSignature_StaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_2"}`)
	secret := "whsec_test"
	signedAt := time.Now().Add(-time.Hour)

	header := stripeSignatureHeader(payload, secret, signedAt)
	if VerifyStripeWebhookSignature(payload, header, secret, DefaultSignatureTolerance, time.Now()) {
		t.Fatalf("expected stale timestamp to fail within tolerance")
	}
	if !VerifyStripeWebhookSignature(payload, header, secret, 0, time.Now()) {
		t.Fatalf("expected zero tolerance to skip the timestamp check")
	}
}

func TestParseStripeWebhookEvent_CheckoutCompleted(t *testing.T) {
	raw := []byte(`{
		"id": "evt_checkout",
		"type": "checkout.session.completed",
		"created": 1735689600,
		"data": {
			"object": {
				"id": "cs_test_123",
				"customer": "cus_abc",
				"metadata": { "userId": "42", "planId": "premium", "billingCycle": "monthly" }
			}
		}
	}`)

	ev, err := ParseStripeWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.ID != "evt_checkout" || ev.Type != EventCheckoutSessionCompleted {
		t.Fatalf("unexpected envelope: id=%q type=%q", ev.ID, ev.Type)
	}
	if ev.SessionID != "cs_test_123" || ev.CustomerRef != "cus_abc" {
		t.Fatalf("unexpected object refs: session=%q customer=%q", ev.SessionID, ev.CustomerRef)
	}
	if ev.UserID != "42" || ev.PlanID != "premium" || ev.BillingCycle != "monthly" {
		t.Fatalf("unexpected metadata: user=%q plan=%q cycle=%q", ev.UserID, ev.PlanID, ev.BillingCycle)
	}
	if ev.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set from created")
	}
}

func TestParseStripeWebhookEvent_SubscriptionUpdated(t *testing.T) {
	raw := []byte(`{
		"id": "evt_sub",
		"type": "customer.subscription.updated",
		"created": 1735689600,
		"data": {
			"object": {
				"id": "sub_1",
				"customer": "cus_abc",
				"status": "active",
				"items": { "data": [ { "price": { "id": "price_premium_monthly" } } ] }
			}
		}
	}`)

	ev, err := ParseStripeWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.CustomerRef != "cus_abc" || ev.PriceRef != "price_premium_monthly" || ev.ProcessorStatus != "active" {
		t.Fatalf("unexpected fields: customer=%q price=%q status=%q", ev.CustomerRef, ev.PriceRef, ev.ProcessorStatus)
	}
}

func TestParseStripeWebhookEvent_Invalid(t *testing.T) {
	if _, err := ParseStripeWebhookEvent([]byte("not json")); err == nil {
		t.Fatalf("expected error for invalid json")
	}
	if _, err := ParseStripeWebhookEvent([]byte(`{"type":"invoice.payment_failed"}`)); err == nil {
		t.Fatalf("expected error for missing event id")
	}
	if _, err := ParseStripeWebhookEvent([]byte(`{"id":"evt_x"}`)); err == nil {
		t.Fatalf("expected error for missing event type")
	}
}

func TestParseStripeWebhookEvent_UnknownTypeParses(t *testing.T) {
	raw := []byte(`{"id":"evt_y","type":"charge.refunded","created":1735689600,"data":{"object":{}}}`)
	ev, err := ParseStripeWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if IsKnownEventType(ev.Type) {
		t.Fatalf("expected charge.refunded to be unknown")
	}
}
