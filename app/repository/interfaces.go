package repository

import (
	"github.com/recapfood/recap-food-api/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
}

// ListingRepository defines the interface for food listing operations
type ListingRepository interface {
	Create(listing *models.FoodListing) error
	GetByID(id uint) (*models.FoodListing, error)
	GetByUUID(uuid string) (*models.FoodListing, error)
	GetByUserID(userID uint, offset, limit int) ([]models.FoodListing, error)
	Update(listing *models.FoodListing) error
	Delete(id uint) error
	Search(filter ListingFilter) ([]models.FoodListing, int64, error)
	CountActiveByUserID(userID uint) (int64, error)
	CountPhotos(listingID uint) (int64, error)
	AddPhoto(photo *models.ListingPhoto) error
	DeletePhotos(listingID uint) error
	UpdateViewCount(id uint) error
	MarkExpiredListings() (int64, error)
}

// ListingFilter carries search parameters for the public listing browse.
type ListingFilter struct {
	Query       string
	Category    string
	City        string
	ListingType string
	Status      string
	Offset      int
	Limit       int
}

// Repositories struct holds all repository instances
type Repositories struct {
	User    UserRepository
	Listing ListingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Listing: NewListingRepository(db),
	}
}
