package constants

// Static route constants
const (
	PublicRoute = "/"

	SubscriptionRoute        = "/subscription"
	SubscriptionSuccessRoute = "/subscription/success"

	StripeWebhookRoute = "/webhooks/stripe"
)
