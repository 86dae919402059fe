package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ListingTypeSell   = "sell"
	ListingTypeDonate = "donate"
)

const (
	ListingStatusAvailable = "available"
	ListingStatusReserved  = "reserved"
	ListingStatusSold      = "sold"
	ListingStatusExpired   = "expired"
)

// FoodListing is a surplus-food offer, either for sale at a discount or as a
// donation.
type FoodListing struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UUID            string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	Title           string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Description     string         `gorm:"type:text" json:"description" validate:"max=2000"`
	Category        string         `gorm:"type:varchar(50);not null;index" json:"category" validate:"oneof=fruits vegetables dairy meat grains beverages prepared other"`
	ListingType     string         `gorm:"type:varchar(16);not null;default:'sell';index" json:"listing_type" validate:"oneof=sell donate"`
	Status          string         `gorm:"type:varchar(16);not null;default:'available';index" json:"status" validate:"oneof=available reserved sold expired"`
	OriginalPrice   float64        `gorm:"type:decimal(10,2);default:0" json:"original_price" validate:"gte=0"`
	DiscountedPrice float64        `gorm:"type:decimal(10,2);default:0" json:"discounted_price" validate:"gte=0"`
	Quantity        float64        `gorm:"type:decimal(10,3);default:1" json:"quantity" validate:"gt=0"`
	Unit            string         `gorm:"type:varchar(16);default:'pieces'" json:"unit" validate:"oneof=kg g l ml pieces packs"`
	ExpiryDate      *time.Time     `gorm:"type:timestamp;default:null" json:"expiry_date,omitempty"`
	Address         string         `gorm:"type:varchar(255);default:''" json:"address"`
	City            string         `gorm:"type:varchar(100);default:'';index" json:"city"`
	ZipCode         string         `gorm:"type:varchar(20);default:''" json:"zip_code"`
	Latitude        float64        `gorm:"type:decimal(10,7);default:0" json:"latitude"`
	Longitude       float64        `gorm:"type:decimal(10,7);default:0" json:"longitude"`
	ViewCount       int64          `gorm:"default:0" json:"view_count"`
	Photos          []ListingPhoto `gorm:"foreignKey:ListingID" json:"photos,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (l *FoodListing) Validate() error {
	v := validator.New()

	return v.Struct(l)
}

// BeforeCreate assigns the public UUID used in share links.
func (l *FoodListing) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == "" {
		l.UUID = uuid.New().String()
	}
	return nil
}

// IsDonation reports whether this listing is offered for free.
func (l *FoodListing) IsDonation() bool {
	return l.ListingType == ListingTypeDonate
}
