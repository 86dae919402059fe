package controllers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/recapfood/recap-food-api/app/models"
	"github.com/recapfood/recap-food-api/app/repository"
	"github.com/recapfood/recap-food-api/internal/pkg/billing"
	"github.com/recapfood/recap-food-api/internal/pkg/database"
	"github.com/recapfood/recap-food-api/internal/pkg/env"
	"github.com/recapfood/recap-food-api/internal/pkg/mail"
	"github.com/recapfood/recap-food-api/internal/pkg/plancatalog"
	"github.com/recapfood/recap-food-api/internal/pkg/session"
	"github.com/recapfood/recap-food-api/internal/pkg/usercontext"
)

// statusForBillingError maps billing error kinds to HTTP status codes.
func statusForBillingError(err error) int {
	switch billing.KindOf(err) {
	case billing.ErrKindValidation:
		return fiber.StatusBadRequest
	case billing.ErrKindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusBadGateway
	}
}

func billingErrorJSON(c *fiber.Ctx, err error) error {
	return c.Status(statusForBillingError(err)).JSON(fiber.Map{
		"error":   string(billing.KindOf(err)),
		"message": err.Error(),
	})
}

// HandleCreateCheckoutSession starts a checkout for a paid plan and returns
// the provider session id.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var body struct {
		PlanID       string `json:"planId"`
		BillingCycle string `json:"billingCycle"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation", "message": "invalid request body"})
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(c.Context(), 20*time.Second)
	defer cancel()

	sessionID, err := svc.StartCheckout(ctx, billing.CheckoutInput{
		UserID:       userCtx.UserID,
		PlanID:       body.PlanID,
		BillingCycle: body.BillingCycle,
		SuccessURL:   base + "/subscription/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:    base + "/subscription/cancel",
	})
	if err != nil {
		return billingErrorJSON(c, err)
	}

	return c.JSON(fiber.Map{"sessionId": sessionID})
}

// HandleGetCheckoutSession confirms a checkout session and returns the
// resulting subscription. Safe to call repeatedly; activation is idempotent.
func HandleGetCheckoutSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(c.Context(), 20*time.Second)
	defer cancel()

	sub, err := svc.CompleteCheckout(ctx, c.Params("id"))
	if err != nil {
		return billingErrorJSON(c, err)
	}

	_ = session.SetSessionValue(c, usercontext.KeyUserPlan, sub.Plan)
	return c.JSON(fiber.Map{
		"plan":       sub.Plan,
		"status":     sub.Status,
		"expires_at": formatTimePtr(sub.ExpiresAt),
	})
}

// HandleCreatePortalSession opens the provider billing portal for the user.
func HandleCreatePortalSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(c.Context(), 20*time.Second)
	defer cancel()

	url, err := svc.StartPortal(ctx, userCtx.UserID, base+"/subscription")
	if err != nil {
		return billingErrorJSON(c, err)
	}

	return c.JSON(fiber.Map{"url": url})
}

// HandleCancelSubscription cancels the user's paid subscription. The plan is
// kept until expiry; only the status changes.
func HandleCancelSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(c.Context(), 20*time.Second)
	defer cancel()

	if err := svc.Cancel(ctx, userCtx.UserID); err != nil {
		return billingErrorJSON(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// HandleGetSubscription returns the user's plan, status, limits and features.
func HandleGetSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	sub, err := models.GetOrCreateSubscription(database.GetDB(), userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	plan := plancatalog.ParsePlan(sub.Plan)
	limits := plancatalog.PlanLimits(plan)
	price, _ := plancatalog.Pricing(plan)

	var maxListings interface{}
	if limits.HasListingCap() {
		maxListings = limits.MaxListings
	}

	return c.JSON(fiber.Map{
		"plan":       string(plan),
		"status":     sub.Status,
		"expires_at": formatTimePtr(sub.ExpiresAt),
		"pricing": fiber.Map{
			"monthly": price.Monthly,
			"yearly":  price.Yearly,
		},
		"limits": fiber.Map{
			"max_listings":           maxListings,
			"max_photos_per_listing": limits.MaxPhotosPerListing,
		},
		"features": plancatalog.Features(plan),
	})
}

// HandleCheckoutSuccess is the browser landing after a completed checkout.
func HandleCheckoutSuccess(c *fiber.Ctx) error {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Missing checkout session"}).Redirect("/subscription")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(c.Context(), 20*time.Second)
	defer cancel()

	sub, err := svc.CompleteCheckout(ctx, sessionID)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Checkout could not be confirmed"}).Redirect("/subscription")
	}

	_ = session.SetSessionValue(c, usercontext.KeyUserPlan, sub.Plan)
	msg := fmt.Sprintf("Upgrade complete. Active plan: %s", sub.Plan)
	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": msg}).Redirect("/subscription")
}

// HandleCheckoutCancel is the browser landing after an abandoned checkout.
func HandleCheckoutCancel(c *fiber.Ctx) error {
	return flash.WithInfo(c, fiber.Map{"type": "info", "message": "Checkout cancelled"}).Redirect("/subscription")
}

// HandleStripeWebhook receives billing events. Events are persisted first,
// then applied; duplicates and unknown customers are acknowledged.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	event, err := billing.ParseStripeWebhookEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	signatureValid := billing.VerifyStripeWebhookSignature(rawBody, signature, secret, billing.DefaultSignatureTolerance, time.Now())
	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !billing.NeedsProcessing(created, stored) {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}
	// A bad signature leaves the stored event unprocessed so the provider's
	// retry can apply it once the secret is corrected.
	if !signatureValid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	applyErr := svc.ApplyEvent(ctx, event)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, applyErr)
	if applyErr != nil {
		return billingErrorJSON(c, applyErr)
	}

	return c.JSON(fiber.Map{"received": true})
}

// HandleEnterpriseContact forwards an enterprise sales inquiry by mail.
func HandleEnterpriseContact(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var body struct {
		Company string `json:"company"`
		Message string `json:"message"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation", "message": "invalid request body"})
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	salesAddress := env.GetEnv("ENTERPRISE_SALES_EMAIL", "sales@recapfood.example")
	subject := fmt.Sprintf("Enterprise inquiry from %s", user.Name)
	bodyText := fmt.Sprintf("User: %s <%s>\nCompany: %s\n\n%s", user.Name, user.Email, body.Company, body.Message)

	if err := mail.SendMail(salesAddress, subject, bodyText); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "mail_failed"})
	}

	return c.JSON(fiber.Map{"ok": true})
}
