package plancatalog

import "strings"

// Plan identifies a subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

// UnlimitedListings is the sentinel for "no listing cap". Callers must not
// compare MaxListings against it directly; use Limits.AllowsListingCount or
// Limits.HasListingCap instead so the sentinel has a single interpretation.
const UnlimitedListings = -1

// ParsePlan normalizes a plan string; unknown values map to free.
func ParsePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPremium):
		return PlanPremium
	case string(PlanEnterprise):
		return PlanEnterprise
	default:
		return PlanFree
	}
}

// Rank orders plans: free < premium < enterprise.
func Rank(plan Plan) int {
	switch ParsePlan(string(plan)) {
	case PlanEnterprise:
		return 2
	case PlanPremium:
		return 1
	default:
		return 0
	}
}

// Price holds display pricing in whole USD.
type Price struct {
	Monthly int `json:"monthly"`
	Yearly  int `json:"yearly"`
}

var pricing = map[Plan]Price{
	PlanFree:       {Monthly: 0, Yearly: 0},
	PlanPremium:    {Monthly: 49, Yearly: 490},
	PlanEnterprise: {Monthly: 199, Yearly: 1990},
}

// Pricing returns the price pair for a plan. The bool is false for tags that
// are not part of the catalog.
func Pricing(plan Plan) (Price, bool) {
	p, ok := pricing[plan]
	return p, ok
}

// Limits describes per-plan usage caps and feature switches.
type Limits struct {
	MaxListings         int  `json:"max_listings"`
	MaxPhotosPerListing int  `json:"max_photos_per_listing"`
	Analytics           bool `json:"analytics"`
	PrioritySupport     bool `json:"priority_support"`
	BulkOperations      bool `json:"bulk_operations"`
	AIRecommendations   bool `json:"ai_recommendations"`
}

var limits = map[Plan]Limits{
	PlanFree: {
		MaxListings:         5,
		MaxPhotosPerListing: 3,
	},
	PlanPremium: {
		MaxListings:         50,
		MaxPhotosPerListing: 10,
		Analytics:           true,
		BulkOperations:      true,
		AIRecommendations:   true,
	},
	PlanEnterprise: {
		MaxListings:         UnlimitedListings,
		MaxPhotosPerListing: 20,
		Analytics:           true,
		PrioritySupport:     true,
		BulkOperations:      true,
		AIRecommendations:   true,
	},
}

// PlanLimits returns the limits for a plan; unknown tags get the free limits.
func PlanLimits(plan Plan) Limits {
	return limits[ParsePlan(string(plan))]
}

// HasListingCap reports whether the plan caps the number of active listings.
func (l Limits) HasListingCap() bool {
	return l.MaxListings != UnlimitedListings
}

// AllowsListingCount reports whether a user with the given number of active
// listings may create one more.
func (l Limits) AllowsListingCount(current int) bool {
	return !l.HasListingCap() || current < l.MaxListings
}

// AllowsPhotoCount reports whether a listing with the given number of photos
// may take one more.
func (l Limits) AllowsPhotoCount(current int) bool {
	return current < l.MaxPhotosPerListing
}
