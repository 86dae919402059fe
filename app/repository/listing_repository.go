package repository

import (
	"strings"
	"time"

	"github.com/recapfood/recap-food-api/app/models"
	"gorm.io/gorm"
)

// listingRepository implements the ListingRepository interface
type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new listing repository instance
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

// Create creates a new food listing in the database
func (r *listingRepository) Create(listing *models.FoodListing) error {
	return r.db.Create(listing).Error
}

// GetByID retrieves a listing by its internal ID
func (r *listingRepository) GetByID(id uint) (*models.FoodListing, error) {
	var listing models.FoodListing
	err := r.db.Preload("Photos").First(&listing, id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetByUUID retrieves a listing by its public UUID
func (r *listingRepository) GetByUUID(uuid string) (*models.FoodListing, error) {
	var listing models.FoodListing
	err := r.db.Preload("Photos").Where("uuid = ?", uuid).First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetByUserID retrieves a paginated list of a user's listings
func (r *listingRepository) GetByUserID(userID uint, offset, limit int) ([]models.FoodListing, error) {
	var listings []models.FoodListing
	err := r.db.Preload("Photos").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&listings).Error
	return listings, err
}

// Update updates an existing listing in the database
func (r *listingRepository) Update(listing *models.FoodListing) error {
	return r.db.Save(listing).Error
}

// Delete soft deletes a listing by its ID
func (r *listingRepository) Delete(id uint) error {
	return r.db.Delete(&models.FoodListing{}, id).Error
}

// Search returns listings matching the filter plus the total match count.
func (r *listingRepository) Search(filter ListingFilter) ([]models.FoodListing, int64, error) {
	query := r.db.Model(&models.FoodListing{})

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", pattern, pattern)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if filter.ListingType != "" {
		query = query.Where("listing_type = ?", filter.ListingType)
	}
	status := filter.Status
	if status == "" {
		status = models.ListingStatusAvailable
	}
	query = query.Where("status = ?", status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var listings []models.FoodListing
	err := query.Preload("Photos").
		Order("created_at DESC").
		Offset(filter.Offset).Limit(limit).
		Find(&listings).Error
	return listings, total, err
}

// CountActiveByUserID counts a user's listings that still occupy quota.
// Sold and expired listings no longer count against the plan limit.
func (r *listingRepository) CountActiveByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.FoodListing{}).
		Where("user_id = ? AND status IN ?", userID, []string{models.ListingStatusAvailable, models.ListingStatusReserved}).
		Count(&count).Error
	return count, err
}

// CountPhotos counts the photos attached to a listing
func (r *listingRepository) CountPhotos(listingID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ListingPhoto{}).
		Where("listing_id = ?", listingID).
		Count(&count).Error
	return count, err
}

// AddPhoto attaches a photo record to a listing
func (r *listingRepository) AddPhoto(photo *models.ListingPhoto) error {
	return r.db.Create(photo).Error
}

// DeletePhotos removes all photo records of a listing
func (r *listingRepository) DeletePhotos(listingID uint) error {
	return r.db.Where("listing_id = ?", listingID).Delete(&models.ListingPhoto{}).Error
}

// UpdateViewCount increments the view counter of a listing
func (r *listingRepository) UpdateViewCount(id uint) error {
	return r.db.Model(&models.FoodListing{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// MarkExpiredListings flips available listings past their expiry date to
// expired and returns how many rows changed.
func (r *listingRepository) MarkExpiredListings() (int64, error) {
	tx := r.db.Model(&models.FoodListing{}).
		Where("status = ? AND expiry_date IS NOT NULL AND expiry_date < ?", models.ListingStatusAvailable, time.Now()).
		Update("status", models.ListingStatusExpired)
	return tx.RowsAffected, tx.Error
}
