package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/recapfood/recap-food-api/app/models"
)

type fakeRepo struct {
	users          map[uint]*models.User
	subs           map[uint]*models.Subscription
	customerByUser map[uint]*models.BillingCustomer
	customerByRef  map[string]*models.BillingCustomer
	mappings       []models.BillingPriceMapping
	saves          int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:          map[uint]*models.User{},
		subs:           map[uint]*models.Subscription{},
		customerByUser: map[uint]*models.BillingCustomer{},
		customerByRef:  map[string]*models.BillingCustomer{},
		mappings: []models.BillingPriceMapping{
			{Provider: "stripe", ProviderPriceRef: "price_premium_monthly", InternalPlan: "premium", BillingCycle: "monthly", IsActive: true},
			{Provider: "stripe", ProviderPriceRef: "price_enterprise_yearly", InternalPlan: "enterprise", BillingCycle: "yearly", IsActive: true},
		},
	}
}

func (r *fakeRepo) FindActivePriceMapping(provider, ref string) (*models.BillingPriceMapping, error) {
	for i := range r.mappings {
		m := &r.mappings[i]
		if m.Provider == provider && m.ProviderPriceRef == ref && m.IsActive {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) FindPriceRefForPlan(provider, plan, cycle string) (*models.BillingPriceMapping, error) {
	for i := range r.mappings {
		m := &r.mappings[i]
		if m.Provider == provider && m.InternalPlan == plan && m.BillingCycle == cycle && m.IsActive {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) UpsertBillingCustomer(c *models.BillingCustomer) error {
	r.customerByUser[c.UserID] = c
	r.customerByRef[c.ProviderCustomerID] = c
	return nil
}

func (r *fakeRepo) GetBillingCustomerByProviderCustomerID(provider, ref string) (*models.BillingCustomer, error) {
	if c, ok := r.customerByRef[ref]; ok && c.Provider == provider {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) GetBillingCustomerByUser(userID uint, provider string) (*models.BillingCustomer, error) {
	if c, ok := r.customerByUser[userID]; ok && c.Provider == provider {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) GetOrCreateSubscription(userID uint) (*models.Subscription, error) {
	if sub, ok := r.subs[userID]; ok {
		return sub, nil
	}
	sub := &models.Subscription{UserID: userID, Plan: "free", Status: "active"}
	r.subs[userID] = sub
	return sub, nil
}

func (r *fakeRepo) SaveSubscription(sub *models.Subscription) error {
	r.subs[sub.UserID] = sub
	r.saves++
	return nil
}

func (r *fakeRepo) GetUserByID(userID uint) (*models.User, error) {
	if u, ok := r.users[userID]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	return true, event, nil
}

func (r *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	return nil
}

type fakeProcessor struct {
	customers        map[string]*StripeCustomer
	createdCustomers int
	sessions         map[string]*StripeCheckoutSession
	cancelledFor     []string
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		customers: map[string]*StripeCustomer{},
		sessions:  map[string]*StripeCheckoutSession{},
	}
}

func (p *fakeProcessor) FindCustomerByEmail(ctx context.Context, email string) (*StripeCustomer, error) {
	if c, ok := p.customers[email]; ok {
		return c, nil
	}
	return nil, nil
}

func (p *fakeProcessor) CreateCustomer(ctx context.Context, email string, userID uint) (*StripeCustomer, error) {
	p.createdCustomers++
	c := &StripeCustomer{ID: "cus_new", Email: email}
	p.customers[email] = c
	return c, nil
}

func (p *fakeProcessor) CreateCheckoutSession(ctx context.Context, params StripeCheckoutParams) (*StripeCheckoutSession, error) {
	session := &StripeCheckoutSession{
		ID:       "cs_test_1",
		URL:      "https://checkout.example/cs_test_1",
		Customer: params.CustomerID,
		Status:   "open",
		Metadata: map[string]string{
			"userId":       "1",
			"planId":       params.PlanID,
			"billingCycle": params.BillingCycle,
		},
	}
	p.sessions[session.ID] = session
	return session, nil
}

func (p *fakeProcessor) GetCheckoutSession(ctx context.Context, sessionID string) (*StripeCheckoutSession, error) {
	if s, ok := p.sessions[sessionID]; ok {
		return s, nil
	}
	return nil, errors.New("no such session")
}

func (p *fakeProcessor) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*StripePortalSession, error) {
	return &StripePortalSession{ID: "bps_1", URL: "https://portal.example/" + customerID}, nil
}

func (p *fakeProcessor) CancelActiveSubscriptions(ctx context.Context, customerID string) error {
	p.cancelledFor = append(p.cancelledFor, customerID)
	return nil
}

func newTestService() (*Service, *fakeRepo, *fakeProcessor) {
	repo := newFakeRepo()
	processor := newFakeProcessor()
	repo.users[1] = &models.User{Email: "anna@example.com"}
	repo.users[1].ID = 1
	return NewService(repo, processor), repo, processor
}

func TestStartCheckout_RejectsFreePlan(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.StartCheckout(context.Background(), CheckoutInput{UserID: 1, PlanID: "free", BillingCycle: "monthly"})
	if err == nil || KindOf(err) != ErrKindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Unknown plan names normalize to free and are rejected the same way.
	_, err = svc.StartCheckout(context.Background(), CheckoutInput{UserID: 1, PlanID: "platinum", BillingCycle: "monthly"})
	if err == nil || KindOf(err) != ErrKindValidation {
		t.Fatalf("expected validation error for unknown plan, got %v", err)
	}
}

func TestStartCheckout_RejectsUnknownCycle(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.StartCheckout(context.Background(), CheckoutInput{UserID: 1, PlanID: "premium", BillingCycle: "weekly"})
	if err == nil || KindOf(err) != ErrKindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartCheckout_RejectsUnmappedPlanCycle(t *testing.T) {
	svc, _, _ := newTestService()

	// premium/yearly has no mapping in the fake repo.
	_, err := svc.StartCheckout(context.Background(), CheckoutInput{UserID: 1, PlanID: "premium", BillingCycle: "yearly"})
	if err == nil || KindOf(err) != ErrKindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartCheckout_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.StartCheckout(context.Background(), CheckoutInput{UserID: 99, PlanID: "premium", BillingCycle: "monthly"})
	if err == nil || KindOf(err) != ErrKindNotFound {
		t.Fatalf("expected not_found error, got %v", err)
	}
}

func TestStartCheckout_MintsCustomerIndex(t *testing.T) {
	svc, repo, processor := newTestService()

	sessionID, err := svc.StartCheckout(context.Background(), CheckoutInput{
		UserID: 1, PlanID: "premium", BillingCycle: "monthly",
		SuccessURL: "https://app.example/success", CancelURL: "https://app.example/cancel",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessionID != "cs_test_1" {
		t.Fatalf("unexpected session id %q", sessionID)
	}
	if processor.createdCustomers != 1 {
		t.Fatalf("expected one customer creation, got %d", processor.createdCustomers)
	}
	record, ok := repo.customerByUser[1]
	if !ok || record.ProviderCustomerID != "cus_new" {
		t.Fatalf("expected billing customer index entry to be minted, got %+v", record)
	}

	// Second checkout reuses the index instead of hitting the provider again.
	if _, err := svc.StartCheckout(context.Background(), CheckoutInput{
		UserID: 1, PlanID: "premium", BillingCycle: "monthly",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processor.createdCustomers != 1 {
		t.Fatalf("expected customer to be reused, got %d creations", processor.createdCustomers)
	}
}

func TestCompleteCheckout_ActivatesPlan(t *testing.T) {
	svc, repo, _ := newTestService()

	if _, err := svc.StartCheckout(context.Background(), CheckoutInput{
		UserID: 1, PlanID: "premium", BillingCycle: "monthly",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub, err := svc.CompleteCheckout(context.Background(), "cs_test_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Plan != "premium" || sub.Status != models.SubscriptionStatusActive {
		t.Fatalf("unexpected subscription: plan=%q status=%q", sub.Plan, sub.Status)
	}
	if sub.ExpiresAt == nil {
		t.Fatalf("expected expiry to be set")
	}
	if until := time.Until(*sub.ExpiresAt); until < 27*24*time.Hour || until > 32*24*time.Hour {
		t.Fatalf("expected expiry roughly one month out, got %v", until)
	}
	if sub.StripeCustomerID != "cus_new" {
		t.Fatalf("expected customer ref on subscription, got %q", sub.StripeCustomerID)
	}
	if repo.subs[1].Plan != "premium" {
		t.Fatalf("expected subscription to be persisted")
	}
}

func TestCompleteCheckout_UnknownSession(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CompleteCheckout(context.Background(), "cs_missing")
	if err == nil || KindOf(err) != ErrKindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestStartPortal(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.StartPortal(context.Background(), 1, "https://app.example/account")
	if err == nil || KindOf(err) != ErrKindNotFound {
		t.Fatalf("expected not_found before any checkout, got %v", err)
	}

	repo.customerByUser[1] = &models.BillingCustomer{UserID: 1, Provider: "stripe", ProviderCustomerID: "cus_abc"}

	url, err := svc.StartPortal(context.Background(), 1, "https://app.example/account")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://portal.example/cus_abc" {
		t.Fatalf("unexpected portal url %q", url)
	}
}

func TestCancel_KeepsPlanFlipsStatus(t *testing.T) {
	svc, repo, processor := newTestService()

	now := time.Now()
	expiry := now.AddDate(0, 1, 0)
	repo.subs[1] = &models.Subscription{
		UserID: 1, Plan: "premium", Status: models.SubscriptionStatusActive,
		ExpiresAt: &expiry, StripeCustomerID: "cus_abc", LastEventAt: &now,
	}

	if err := svc.Cancel(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub := repo.subs[1]
	if sub.Plan != "premium" {
		t.Fatalf("expected plan to be kept on cancel, got %q", sub.Plan)
	}
	if sub.Status != models.SubscriptionStatusCancelled {
		t.Fatalf("expected status cancelled, got %q", sub.Status)
	}
	if sub.ExpiresAt == nil {
		t.Fatalf("expected expiry to be kept")
	}
	if len(processor.cancelledFor) != 1 || processor.cancelledFor[0] != "cus_abc" {
		t.Fatalf("expected processor cancellation for cus_abc, got %v", processor.cancelledFor)
	}
}

func TestCancel_FreePlanRejected(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Cancel(context.Background(), 1)
	if err == nil || KindOf(err) != ErrKindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyEvent_UnknownCustomerIsAcknowledged(t *testing.T) {
	svc, repo, _ := newTestService()

	err := svc.ApplyEvent(context.Background(), &BillingEvent{
		ID:          "evt_1",
		Type:        EventInvoicePaymentFailed,
		OccurredAt:  time.Now(),
		CustomerRef: "cus_stranger",
	})
	if err != nil {
		t.Fatalf("expected unknown customer to be a no-op, got %v", err)
	}
	if repo.saves != 0 {
		t.Fatalf("expected no subscription writes, got %d", repo.saves)
	}
}

func TestApplyEvent_StaleEventDiscarded(t *testing.T) {
	svc, repo, _ := newTestService()

	applied := time.Now()
	repo.customerByRef["cus_abc"] = &models.BillingCustomer{UserID: 1, Provider: "stripe", ProviderCustomerID: "cus_abc"}
	repo.subs[1] = &models.Subscription{
		UserID: 1, Plan: "premium", Status: models.SubscriptionStatusActive, LastEventAt: &applied,
	}

	err := svc.ApplyEvent(context.Background(), &BillingEvent{
		ID:          "evt_old",
		Type:        EventCustomerSubscriptionDelete,
		OccurredAt:  applied.Add(-time.Hour),
		CustomerRef: "cus_abc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.subs[1].Plan != "premium" || repo.subs[1].Status != models.SubscriptionStatusActive {
		t.Fatalf("expected stale event to leave subscription untouched, got %+v", repo.subs[1])
	}
}

func TestApplyEvent_SubscriptionDeleted(t *testing.T) {
	svc, repo, _ := newTestService()

	applied := time.Now().Add(-time.Hour)
	expiry := time.Now().AddDate(0, 1, 0)
	repo.customerByRef["cus_abc"] = &models.BillingCustomer{UserID: 1, Provider: "stripe", ProviderCustomerID: "cus_abc"}
	repo.subs[1] = &models.Subscription{
		UserID: 1, Plan: "premium", Status: models.SubscriptionStatusActive,
		ExpiresAt: &expiry, LastEventAt: &applied,
	}

	err := svc.ApplyEvent(context.Background(), &BillingEvent{
		ID:          "evt_del",
		Type:        EventCustomerSubscriptionDelete,
		OccurredAt:  time.Now(),
		CustomerRef: "cus_abc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub := repo.subs[1]
	if sub.Plan != "free" || sub.Status != models.SubscriptionStatusCancelled || sub.ExpiresAt != nil {
		t.Fatalf("unexpected subscription after delete: %+v", sub)
	}
}

func TestApplyEvent_SubscriptionUpdatedMapsPrice(t *testing.T) {
	svc, repo, _ := newTestService()

	repo.customerByRef["cus_abc"] = &models.BillingCustomer{UserID: 1, Provider: "stripe", ProviderCustomerID: "cus_abc"}

	err := svc.ApplyEvent(context.Background(), &BillingEvent{
		ID:              "evt_up",
		Type:            EventCustomerSubscriptionUpdate,
		OccurredAt:      time.Now(),
		CustomerRef:     "cus_abc",
		PriceRef:        "price_enterprise_yearly",
		ProcessorStatus: "active",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub := repo.subs[1]
	if sub.Plan != "enterprise" || sub.Status != models.SubscriptionStatusActive {
		t.Fatalf("unexpected subscription: plan=%q status=%q", sub.Plan, sub.Status)
	}
	if sub.ExpiresAt == nil {
		t.Fatalf("expected expiry for enterprise plan")
	}
}

func TestApplyEvent_SubscriptionUpdatedPastDue(t *testing.T) {
	svc, repo, _ := newTestService()

	repo.customerByRef["cus_abc"] = &models.BillingCustomer{UserID: 1, Provider: "stripe", ProviderCustomerID: "cus_abc"}
	repo.subs[1] = &models.Subscription{
		UserID: 1, Plan: "premium", Status: models.SubscriptionStatusActive,
	}

	err := svc.ApplyEvent(context.Background(), &BillingEvent{
		ID:              "evt_due",
		Type:            EventCustomerSubscriptionUpdate,
		OccurredAt:      time.Now(),
		CustomerRef:     "cus_abc",
		PriceRef:        "price_premium_monthly",
		ProcessorStatus: "past_due",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub := repo.subs[1]
	if sub.Status != models.SubscriptionStatusPastDue {
		t.Fatalf("expected processor past_due to map to past_due, got %q", sub.Status)
	}
	if sub.Plan != "premium" {
		t.Fatalf("expected plan to stay premium, got %q", sub.Plan)
	}
}

func TestApplyEvent_PaymentSucceededRedelivery(t *testing.T) {
	svc, repo, _ := newTestService()

	applied := time.Now().Add(-time.Hour)
	expiry := time.Now().AddDate(0, 1, 0)
	repo.customerByRef["cus_abc"] = &models.BillingCustomer{UserID: 1, Provider: "stripe", ProviderCustomerID: "cus_abc"}
	repo.subs[1] = &models.Subscription{
		UserID: 1, Plan: "premium", Status: models.SubscriptionStatusPastDue,
		ExpiresAt: &expiry, LastEventAt: &applied,
	}

	event := &BillingEvent{
		ID: "evt_pay", Type: EventInvoicePaymentSucceeded, OccurredAt: time.Now(), CustomerRef: "cus_abc",
	}

	if err := svc.ApplyEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := *repo.subs[1]

	// At-least-once delivery: the identical event arrives again. The write is
	// an absolute set, so the resulting state must be unchanged.
	if err := svc.ApplyEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error on redelivery: %v", err)
	}

	second := repo.subs[1]
	if second.Plan != first.Plan || second.Status != first.Status {
		t.Fatalf("expected redelivery to be a no-op, got plan=%q status=%q", second.Plan, second.Status)
	}
	if second.ExpiresAt != first.ExpiresAt {
		t.Fatalf("expected expiry untouched by redelivery")
	}
	if second.LastEventAt == nil || !second.LastEventAt.Equal(*first.LastEventAt) {
		t.Fatalf("expected event timestamp unchanged, got %v", second.LastEventAt)
	}
}

func TestNeedsProcessing(t *testing.T) {
	if !NeedsProcessing(true, nil) {
		t.Fatalf("expected first deliveries to need processing")
	}

	stored := &models.BillingWebhookEvent{}
	if !NeedsProcessing(false, stored) {
		t.Fatalf("expected stored-but-unprocessed events to be retryable")
	}

	now := time.Now()
	stored.ProcessedAt = &now
	if NeedsProcessing(false, stored) {
		t.Fatalf("expected processed events to be reported as duplicates")
	}
	if NeedsProcessing(false, nil) {
		t.Fatalf("expected missing stored event to not be processable")
	}
}

func TestApplyEvent_UnmappedPriceFallsBackToFree(t *testing.T) {
	svc, repo, _ := newTestService()

	repo.customerByRef["cus_abc"] = &models.BillingCustomer{UserID: 1, Provider: "stripe", ProviderCustomerID: "cus_abc"}

	err := svc.ApplyEvent(context.Background(), &BillingEvent{
		ID:              "evt_up2",
		Type:            EventCustomerSubscriptionUpdate,
		OccurredAt:      time.Now(),
		CustomerRef:     "cus_abc",
		PriceRef:        "price_unmapped",
		ProcessorStatus: "active",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.subs[1].Plan != "free" {
		t.Fatalf("expected unmapped price to fall back to free, got %q", repo.subs[1].Plan)
	}
}

func TestApplyEvent_PaymentStatusTransitions(t *testing.T) {
	svc, repo, _ := newTestService()

	applied := time.Now().Add(-time.Hour)
	repo.customerByRef["cus_abc"] = &models.BillingCustomer{UserID: 1, Provider: "stripe", ProviderCustomerID: "cus_abc"}
	repo.subs[1] = &models.Subscription{
		UserID: 1, Plan: "premium", Status: models.SubscriptionStatusActive, LastEventAt: &applied,
	}

	if err := svc.ApplyEvent(context.Background(), &BillingEvent{
		ID: "evt_fail", Type: EventInvoicePaymentFailed, OccurredAt: time.Now(), CustomerRef: "cus_abc",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.subs[1].Status != models.SubscriptionStatusPastDue {
		t.Fatalf("expected past_due after failed payment, got %q", repo.subs[1].Status)
	}
	if repo.subs[1].Plan != "premium" {
		t.Fatalf("expected plan untouched by payment failure, got %q", repo.subs[1].Plan)
	}

	if err := svc.ApplyEvent(context.Background(), &BillingEvent{
		ID: "evt_ok", Type: EventInvoicePaymentSucceeded, OccurredAt: time.Now(), CustomerRef: "cus_abc",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.subs[1].Status != models.SubscriptionStatusActive {
		t.Fatalf("expected active after successful payment, got %q", repo.subs[1].Status)
	}
}

func TestApplyEvent_UnknownTypeIgnored(t *testing.T) {
	svc, repo, _ := newTestService()

	if err := svc.ApplyEvent(context.Background(), &BillingEvent{
		ID: "evt_z", Type: "charge.refunded", OccurredAt: time.Now(), CustomerRef: "cus_abc",
	}); err != nil {
		t.Fatalf("expected unknown type to be ignored, got %v", err)
	}
	if repo.saves != 0 {
		t.Fatalf("expected no writes for ignored event")
	}
}
