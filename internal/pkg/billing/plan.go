package billing

import (
	"strings"
	"time"

	"github.com/recapfood/recap-food-api/app/models"
	"github.com/recapfood/recap-food-api/internal/pkg/plancatalog"
)

func normalizeCycle(cycle string) string {
	c := strings.ToLower(strings.TrimSpace(cycle))
	switch c {
	case models.BillingCycleMonthly, models.BillingCycleYearly:
		return c
	default:
		return models.BillingCycleUnknown
	}
}

// expiryForPlan computes the subscription expiry written on activation.
// Premium runs one calendar month, enterprise one calendar year; the billing
// cycle does not influence the expiry. Free carries no expiry.
func expiryForPlan(plan plancatalog.Plan, now time.Time) *time.Time {
	switch plancatalog.ParsePlan(string(plan)) {
	case plancatalog.PlanPremium:
		t := now.AddDate(0, 1, 0)
		return &t
	case plancatalog.PlanEnterprise:
		t := now.AddDate(1, 0, 0)
		return &t
	default:
		return nil
	}
}

// isEntitlingStatus reports whether a processor-side subscription status maps
// to a local active status. Anything else regresses to past_due.
func isEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.SubscriptionStatusActive, "trialing":
		return true
	default:
		return false
	}
}
