package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/recapfood/recap-food-api/app/models"
	"github.com/recapfood/recap-food-api/internal/pkg/plancatalog"
)

// PaymentProcessor is the provider surface the orchestrator talks to. The
// production implementation is StripeClient; tests inject fakes.
type PaymentProcessor interface {
	FindCustomerByEmail(ctx context.Context, email string) (*StripeCustomer, error)
	CreateCustomer(ctx context.Context, email string, userID uint) (*StripeCustomer, error)
	CreateCheckoutSession(ctx context.Context, params StripeCheckoutParams) (*StripeCheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*StripeCheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*StripePortalSession, error)
	CancelActiveSubscriptions(ctx context.Context, customerID string) error
}

// Service orchestrates checkout, portal, cancellation and webhook-driven
// subscription state transitions.
type Service struct {
	repo      Repository
	processor PaymentProcessor
}

// NewService creates a billing service from injected dependencies.
func NewService(repo Repository, processor PaymentProcessor) *Service {
	return &Service{repo: repo, processor: processor}
}

// NewServiceFromDB creates a billing service from a GORM DB handle using the
// Stripe client configured via environment.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewStripeClientFromEnv())
}

// StartCheckout resolves the requested plan to a provider price, ensures the
// user has a provider customer, and opens a checkout session. The returned
// string is the provider session id.
func (s *Service) StartCheckout(ctx context.Context, in CheckoutInput) (string, error) {
	const op = "billing.StartCheckout"

	if in.UserID == 0 {
		return "", validationError(op, "user id is required")
	}
	plan := plancatalog.ParsePlan(in.PlanID)
	if plan == plancatalog.PlanFree {
		return "", validationError(op, "plan is not purchasable")
	}
	cycle := normalizeCycle(in.BillingCycle)
	if cycle == models.BillingCycleUnknown {
		return "", validationError(op, "billing cycle must be monthly or yearly")
	}

	mapping, err := s.repo.FindPriceRefForPlan(models.BillingProviderStripe, string(plan), cycle)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", validationError(op, "no price configured for plan "+string(plan))
		}
		return "", upstreamError(op, err)
	}

	user, err := s.repo.GetUserByID(in.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", notFoundError(op, "user not found")
		}
		return "", upstreamError(op, err)
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", upstreamError(op, err)
	}

	session, err := s.processor.CreateCheckoutSession(ctx, StripeCheckoutParams{
		CustomerID:   customerID,
		PriceRef:     mapping.ProviderPriceRef,
		SuccessURL:   in.SuccessURL,
		CancelURL:    in.CancelURL,
		UserID:       in.UserID,
		PlanID:       string(plan),
		BillingCycle: cycle,
	})
	if err != nil {
		return "", upstreamError(op, err)
	}

	return session.ID, nil
}

// ensureCustomer returns the provider customer id for a user, minting and
// persisting the durable index entry on first contact. Lookup order: local
// index, provider by email, create at provider.
func (s *Service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	existing, err := s.repo.GetBillingCustomerByUser(user.ID, models.BillingProviderStripe)
	if err == nil {
		return existing.ProviderCustomerID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	customer, err := s.processor.FindCustomerByEmail(ctx, user.Email)
	if err != nil {
		return "", err
	}
	if customer == nil {
		customer, err = s.processor.CreateCustomer(ctx, user.Email, user.ID)
		if err != nil {
			return "", err
		}
	}

	record := &models.BillingCustomer{
		UserID:             user.ID,
		Provider:           models.BillingProviderStripe,
		ProviderCustomerID: customer.ID,
		Email:              user.Email,
	}
	if err := s.repo.UpsertBillingCustomer(record); err != nil {
		return "", err
	}
	return customer.ID, nil
}

// CompleteCheckout confirms a finished checkout session with the provider and
// activates the purchased plan. Called from the success landing; the webhook
// path performs the same activation idempotently.
func (s *Service) CompleteCheckout(ctx context.Context, sessionID string) (*models.Subscription, error) {
	const op = "billing.CompleteCheckout"

	if strings.TrimSpace(sessionID) == "" {
		return nil, validationError(op, "session id is required")
	}

	session, err := s.processor.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, upstreamError(op, err)
	}

	userID, err := parseUserID(session.Metadata["userId"])
	if err != nil {
		return nil, validationError(op, "checkout session carries no user id")
	}
	plan := plancatalog.ParsePlan(session.Metadata["planId"])
	if plan == plancatalog.PlanFree {
		return nil, validationError(op, "checkout session carries no purchasable plan")
	}

	if strings.TrimSpace(session.Customer) != "" {
		record := &models.BillingCustomer{
			UserID:             userID,
			Provider:           models.BillingProviderStripe,
			ProviderCustomerID: session.Customer,
		}
		if err := s.repo.UpsertBillingCustomer(record); err != nil {
			return nil, upstreamError(op, err)
		}
	}

	return s.activatePlan(userID, plan, session.Customer, time.Now())
}

// activatePlan writes the subscription record for a newly purchased plan.
func (s *Service) activatePlan(userID uint, plan plancatalog.Plan, customerRef string, now time.Time) (*models.Subscription, error) {
	const op = "billing.activatePlan"

	sub, err := s.repo.GetOrCreateSubscription(userID)
	if err != nil {
		return nil, upstreamError(op, err)
	}

	sub.Plan = string(plan)
	sub.Status = models.SubscriptionStatusActive
	sub.ExpiresAt = expiryForPlan(plan, now)
	if strings.TrimSpace(customerRef) != "" {
		sub.StripeCustomerID = customerRef
	}
	sub.LastEventAt = &now

	if err := s.repo.SaveSubscription(sub); err != nil {
		return nil, upstreamError(op, err)
	}
	return sub, nil
}

// StartPortal opens a provider billing portal session for the user and
// returns its URL.
func (s *Service) StartPortal(ctx context.Context, userID uint, returnURL string) (string, error) {
	const op = "billing.StartPortal"

	if userID == 0 {
		return "", validationError(op, "user id is required")
	}

	customer, err := s.repo.GetBillingCustomerByUser(userID, models.BillingProviderStripe)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", notFoundError(op, "no billing customer for user")
		}
		return "", upstreamError(op, err)
	}

	portal, err := s.processor.CreatePortalSession(ctx, customer.ProviderCustomerID, returnURL)
	if err != nil {
		return "", upstreamError(op, err)
	}
	return portal.URL, nil
}

// Cancel marks the user's subscription cancelled locally and asks the
// provider to stop renewals. The plan itself is kept until expiry; only the
// status flips.
func (s *Service) Cancel(ctx context.Context, userID uint) error {
	const op = "billing.Cancel"

	if userID == 0 {
		return validationError(op, "user id is required")
	}

	sub, err := s.repo.GetOrCreateSubscription(userID)
	if err != nil {
		return upstreamError(op, err)
	}
	if plancatalog.ParsePlan(sub.Plan) == plancatalog.PlanFree {
		return validationError(op, "free plan cannot be cancelled")
	}

	now := time.Now()
	sub.Status = models.SubscriptionStatusCancelled
	sub.LastEventAt = &now
	if err := s.repo.SaveSubscription(sub); err != nil {
		return upstreamError(op, err)
	}

	// Best effort: the authoritative cancellation arrives via webhook.
	if sub.StripeCustomerID != "" {
		if err := s.processor.CancelActiveSubscriptions(ctx, sub.StripeCustomerID); err != nil {
			log.Warnf("[Billing] processor cancel failed for customer %s: %v", sub.StripeCustomerID, err)
		}
	}
	return nil
}

// ApplyEvent applies a parsed webhook event to the local subscription state.
// Unknown customers and out-of-order events are acknowledged without writes.
func (s *Service) ApplyEvent(ctx context.Context, event *BillingEvent) error {
	const op = "billing.ApplyEvent"
	_ = ctx

	if event == nil {
		return validationError(op, "event is required")
	}
	if !IsKnownEventType(event.Type) {
		log.Debugf("[Billing] ignoring event %s of type %s", event.ID, event.Type)
		return nil
	}

	sub, err := s.resolveSubscription(event)
	if err != nil {
		return err
	}
	if sub == nil {
		log.Infof("[Billing] event %s references unknown customer %s, acknowledged without changes", event.ID, event.CustomerRef)
		return nil
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	if sub.LastEventAt != nil && occurredAt.Before(*sub.LastEventAt) {
		log.Infof("[Billing] event %s (%s) is older than last applied state, discarded", event.ID, event.Type)
		return nil
	}

	switch event.Type {
	case EventCheckoutSessionCompleted:
		plan := plancatalog.ParsePlan(event.PlanID)
		if plan == plancatalog.PlanFree {
			return validationError(op, "checkout event carries no purchasable plan")
		}
		_, err := s.activatePlan(sub.UserID, plan, event.CustomerRef, occurredAt)
		return err

	case EventCustomerSubscriptionUpdate:
		plan := s.resolvePlanFromPrice(event.PriceRef)
		sub.Plan = string(plan)
		if isEntitlingStatus(event.ProcessorStatus) {
			sub.Status = models.SubscriptionStatusActive
		} else {
			sub.Status = models.SubscriptionStatusPastDue
		}
		sub.ExpiresAt = expiryForPlan(plan, occurredAt)

	case EventCustomerSubscriptionDelete:
		sub.Plan = string(plancatalog.PlanFree)
		sub.Status = models.SubscriptionStatusCancelled
		sub.ExpiresAt = nil

	case EventInvoicePaymentSucceeded:
		sub.Status = models.SubscriptionStatusActive

	case EventInvoicePaymentFailed:
		sub.Status = models.SubscriptionStatusPastDue
	}

	sub.LastEventAt = &occurredAt
	if err := s.repo.SaveSubscription(sub); err != nil {
		return upstreamError(op, err)
	}
	return nil
}

// resolveSubscription locates the subscription an event targets. Checkout
// events carry the user id in metadata; everything else resolves through the
// customer index. A nil result means the customer is unknown.
func (s *Service) resolveSubscription(event *BillingEvent) (*models.Subscription, error) {
	const op = "billing.resolveSubscription"

	if event.Type == EventCheckoutSessionCompleted && event.UserID != "" {
		userID, err := parseUserID(event.UserID)
		if err != nil {
			return nil, validationError(op, "checkout event carries invalid user id")
		}
		sub, err := s.repo.GetOrCreateSubscription(userID)
		if err != nil {
			return nil, upstreamError(op, err)
		}
		return sub, nil
	}

	if strings.TrimSpace(event.CustomerRef) == "" {
		return nil, nil
	}

	customer, err := s.repo.GetBillingCustomerByProviderCustomerID(models.BillingProviderStripe, event.CustomerRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, upstreamError(op, err)
	}

	sub, err := s.repo.GetOrCreateSubscription(customer.UserID)
	if err != nil {
		return nil, upstreamError(op, err)
	}
	return sub, nil
}

// resolvePlanFromPrice maps a provider price ref to an internal plan via the
// mapping table, falling back to free when no active mapping exists.
func (s *Service) resolvePlanFromPrice(priceRef string) plancatalog.Plan {
	ref := strings.TrimSpace(priceRef)
	if ref == "" {
		return plancatalog.PlanFree
	}
	m, err := s.repo.FindActivePriceMapping(models.BillingProviderStripe, ref)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Billing] price mapping lookup failed for %s: %v", ref, err)
		}
		return plancatalog.PlanFree
	}
	return plancatalog.ParsePlan(m.InternalPlan)
}

// RecordWebhookEvent persists webhook payloads idempotently. The bool result
// reports whether the event was seen for the first time.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// NeedsProcessing reports whether a recorded webhook event still has to be
// applied. First deliveries always do; redeliveries only when the stored
// event was never processed, so a delivery rejected for a bad signature can
// be picked up again once the secret is fixed.
func NeedsProcessing(created bool, stored *models.BillingWebhookEvent) bool {
	if created {
		return true
	}
	return stored != nil && !stored.Processed()
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid user id")
	}
	return uint(id), nil
}
