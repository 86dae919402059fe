package billing

import (
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/recapfood/recap-food-api/app/models"
	"github.com/recapfood/recap-food-api/internal/pkg/env"
	"github.com/recapfood/recap-food-api/internal/pkg/plancatalog"
)

// DefaultPriceMappings builds the standard Stripe price to plan mapping rows.
// Price refs are configurable via environment so staging and production can
// point at different Stripe prices.
func DefaultPriceMappings() []models.BillingPriceMapping {
	return []models.BillingPriceMapping{
		{
			Provider:         models.BillingProviderStripe,
			ProviderPriceRef: env.GetEnv("STRIPE_PRICE_PREMIUM_MONTHLY", "price_premium_monthly"),
			InternalPlan:     string(plancatalog.PlanPremium),
			BillingCycle:     models.BillingCycleMonthly,
			IsActive:         true,
		},
		{
			Provider:         models.BillingProviderStripe,
			ProviderPriceRef: env.GetEnv("STRIPE_PRICE_PREMIUM_YEARLY", "price_premium_yearly"),
			InternalPlan:     string(plancatalog.PlanPremium),
			BillingCycle:     models.BillingCycleYearly,
			IsActive:         true,
		},
		{
			Provider:         models.BillingProviderStripe,
			ProviderPriceRef: env.GetEnv("STRIPE_PRICE_ENTERPRISE_MONTHLY", "price_enterprise_monthly"),
			InternalPlan:     string(plancatalog.PlanEnterprise),
			BillingCycle:     models.BillingCycleMonthly,
			IsActive:         true,
		},
		{
			Provider:         models.BillingProviderStripe,
			ProviderPriceRef: env.GetEnv("STRIPE_PRICE_ENTERPRISE_YEARLY", "price_enterprise_yearly"),
			InternalPlan:     string(plancatalog.PlanEnterprise),
			BillingCycle:     models.BillingCycleYearly,
			IsActive:         true,
		},
	}
}

// SeedDefaultPriceMappings upserts the default price mappings at startup.
func SeedDefaultPriceMappings(db *gorm.DB) error {
	for _, mapping := range DefaultPriceMappings() {
		m := mapping
		if err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "provider"},
				{Name: "provider_price_ref"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"internal_plan",
				"billing_cycle",
				"is_active",
				"updated_at",
			}),
		}).Create(&m).Error; err != nil {
			return err
		}
	}
	log.Info("[Billing] price mappings seeded")
	return nil
}
