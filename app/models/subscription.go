package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	BillingCycleMonthly = "monthly"
	BillingCycleYearly  = "yearly"
	BillingCycleUnknown = "unknown"
)

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusPastDue   = "past_due"
)

// Subscription mirrors a user's current plan, status and expiry. One row per
// user; created implicitly on first access with plan=free, never hard-deleted.
type Subscription struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Plan             string     `gorm:"type:varchar(50);not null;default:'free';index" json:"plan"`
	Status           string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	ExpiresAt        *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	StripeCustomerID string     `gorm:"type:varchar(191);default:'';index" json:"stripe_customer_id,omitempty"`
	LastEventAt      *time.Time `gorm:"type:timestamp;default:null" json:"-"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOrCreateSubscription returns the user's subscription, creating the
// default free/active row when none exists yet.
func GetOrCreateSubscription(db *gorm.DB, userID uint) (*Subscription, error) {
	var sub Subscription
	if err := db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			sub = Subscription{UserID: userID, Plan: "free", Status: SubscriptionStatusActive}
			if err := db.Create(&sub).Error; err != nil {
				return nil, err
			}
			return &sub, nil
		}
		return nil, err
	}
	return &sub, nil
}

// IsExpired reports whether a paid subscription has passed its expiry.
// Free subscriptions carry no expiry and never expire.
func (s *Subscription) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}
