package models

import "time"

// ListingPhoto is a single photo attached to a food listing, stored in S3.
type ListingPhoto struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ListingID uint      `gorm:"not null;index" json:"listing_id"`
	ObjectKey string    `gorm:"type:varchar(255);not null" json:"-"`
	PublicURL string    `gorm:"type:varchar(255);default:''" json:"url"`
	Position  int       `gorm:"default:0" json:"position"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
