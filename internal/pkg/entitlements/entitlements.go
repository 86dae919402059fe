package entitlements

import (
	"github.com/recapfood/recap-food-api/app/models"
	"github.com/recapfood/recap-food-api/internal/pkg/plancatalog"
)

// CanListItems reports whether the subscription's plan may create listings at
// all. The check is plan-only: a past_due or cancelled premium subscription
// still passes until it is downgraded, matching the marketplace's observed
// behavior.
func CanListItems(sub *models.Subscription) bool {
	if sub == nil {
		return false
	}
	plan := plancatalog.ParsePlan(sub.Plan)
	return plan == plancatalog.PlanPremium || plan == plancatalog.PlanEnterprise
}

// CanAccessFeature reports whether the subscription's plan includes a feature
// tag. A missing subscription grants nothing.
func CanAccessFeature(sub *models.Subscription, feature plancatalog.Feature) bool {
	if sub == nil {
		return false
	}
	return plancatalog.HasFeature(plancatalog.ParsePlan(sub.Plan), feature)
}

// CanCreateListing reports whether a plan with the given number of active
// listings may create one more.
func CanCreateListing(plan plancatalog.Plan, currentListings int) bool {
	return plancatalog.PlanLimits(plan).AllowsListingCount(currentListings)
}

// CanAddPhoto reports whether a listing with the given number of photos may
// take one more under the plan's photo cap.
func CanAddPhoto(plan plancatalog.Plan, currentPhotos int) bool {
	return plancatalog.PlanLimits(plan).AllowsPhotoCount(currentPhotos)
}
