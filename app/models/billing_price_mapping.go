package models

import "time"

// BillingPriceMapping maps provider-specific price references to internal
// plans and billing cycles. The table replaces substring matching on price
// identifiers with an explicit lookup.
type BillingPriceMapping struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Provider         string    `gorm:"type:varchar(20);not null;index:ux_billing_price_mappings_ref,unique,priority:1" json:"provider"`
	ProviderPriceRef string    `gorm:"type:varchar(191);not null;index:ux_billing_price_mappings_ref,unique,priority:2" json:"provider_price_ref"`
	InternalPlan     string    `gorm:"type:varchar(50);not null;default:'free';index" json:"internal_plan"`
	BillingCycle     string    `gorm:"type:varchar(16);not null;default:'unknown'" json:"billing_cycle"`
	IsActive         bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
