package plancatalog

// Feature tags gate individual marketplace capabilities per plan.
type Feature string

const (
	FeatureBrowse            Feature = "browse"
	FeatureRequest           Feature = "request"
	FeatureListItems         Feature = "list_items"
	FeatureBasicAnalytics    Feature = "basic_analytics"
	FeaturePriorityMessaging Feature = "priority_messaging"
	FeatureAdvancedAnalytics Feature = "advanced_analytics"
	FeaturePrioritySupport   Feature = "priority_support"
	FeatureAPIAccess         Feature = "api_access"
	FeatureCustomBranding    Feature = "custom_branding"
)

// Feature sets are built cumulatively: each tier extends the one below it, so
// monotonicity holds by construction rather than by convention.
var (
	freeFeatures = []Feature{
		FeatureBrowse,
		FeatureRequest,
	}
	premiumFeatures = append(append([]Feature{}, freeFeatures...),
		FeatureListItems,
		FeatureBasicAnalytics,
		FeaturePriorityMessaging,
	)
	enterpriseFeatures = append(append([]Feature{}, premiumFeatures...),
		FeatureAdvancedAnalytics,
		FeaturePrioritySupport,
		FeatureAPIAccess,
		FeatureCustomBranding,
	)
)

// Features returns the full feature set for a plan.
func Features(plan Plan) []Feature {
	switch ParsePlan(string(plan)) {
	case PlanEnterprise:
		return enterpriseFeatures
	case PlanPremium:
		return premiumFeatures
	default:
		return freeFeatures
	}
}

// HasFeature reports whether the plan's feature set contains the given tag.
func HasFeature(plan Plan, feature Feature) bool {
	for _, f := range Features(plan) {
		if f == feature {
			return true
		}
	}
	return false
}
