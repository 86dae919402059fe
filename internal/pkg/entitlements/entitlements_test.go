package entitlements

import (
	"testing"

	"github.com/recapfood/recap-food-api/app/models"
	"github.com/recapfood/recap-food-api/internal/pkg/plancatalog"
)

func TestCanListItemsIsStatusBlind(t *testing.T) {
	statuses := []string{
		models.SubscriptionStatusActive,
		models.SubscriptionStatusCancelled,
		models.SubscriptionStatusPastDue,
	}

	for _, status := range statuses {
		for _, tt := range []struct {
			plan string
			want bool
		}{
			{plan: "free", want: false},
			{plan: "premium", want: true},
			{plan: "enterprise", want: true},
		} {
			sub := &models.Subscription{Plan: tt.plan, Status: status}
			if got := CanListItems(sub); got != tt.want {
				t.Fatalf("CanListItems(plan=%q, status=%q) = %v, want %v", tt.plan, status, got, tt.want)
			}
		}
	}
}

func TestCanListItemsNilSubscription(t *testing.T) {
	if CanListItems(nil) {
		t.Fatalf("nil subscription must not list items")
	}
}

func TestCanAccessFeature(t *testing.T) {
	if CanAccessFeature(nil, plancatalog.FeatureBrowse) {
		t.Fatalf("nil subscription grants nothing")
	}

	free := &models.Subscription{Plan: "free"}
	premium := &models.Subscription{Plan: "premium"}
	enterprise := &models.Subscription{Plan: "enterprise"}

	if !CanAccessFeature(free, plancatalog.FeatureBrowse) {
		t.Fatalf("free plan must browse")
	}
	if CanAccessFeature(free, plancatalog.FeatureBasicAnalytics) {
		t.Fatalf("analytics is a paid feature")
	}
	if !CanAccessFeature(premium, plancatalog.FeatureBasicAnalytics) {
		t.Fatalf("premium plan must have basic analytics")
	}
	if !CanAccessFeature(enterprise, plancatalog.FeatureCustomBranding) {
		t.Fatalf("enterprise plan must have custom branding")
	}
}

func TestFeatureMonotonicityAcrossPlans(t *testing.T) {
	premium := &models.Subscription{Plan: "premium"}
	enterprise := &models.Subscription{Plan: "enterprise"}

	for _, f := range plancatalog.Features(plancatalog.PlanPremium) {
		if !CanAccessFeature(premium, f) {
			t.Fatalf("premium must access its own feature %q", f)
		}
		if !CanAccessFeature(enterprise, f) {
			t.Fatalf("enterprise must access premium feature %q", f)
		}
	}
}

func TestCanCreateListing(t *testing.T) {
	if CanCreateListing(plancatalog.PlanFree, 5) {
		t.Fatalf("free plan caps at 5 listings")
	}
	if !CanCreateListing(plancatalog.PlanFree, 4) {
		t.Fatalf("free plan allows the 5th listing")
	}
	if !CanCreateListing(plancatalog.PlanEnterprise, 1_000_000) {
		t.Fatalf("enterprise plan is uncapped")
	}
}

func TestCanAddPhoto(t *testing.T) {
	if CanAddPhoto(plancatalog.PlanFree, 3) {
		t.Fatalf("free plan caps at 3 photos per listing")
	}
	if !CanAddPhoto(plancatalog.PlanPremium, 9) {
		t.Fatalf("premium plan allows a 10th photo")
	}
}
