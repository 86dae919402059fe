package billing

import (
	"time"

	"github.com/recapfood/recap-food-api/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	FindActivePriceMapping(provider, providerPriceRef string) (*models.BillingPriceMapping, error)
	FindPriceRefForPlan(provider, internalPlan, billingCycle string) (*models.BillingPriceMapping, error)
	UpsertBillingCustomer(customer *models.BillingCustomer) error
	GetBillingCustomerByProviderCustomerID(provider, providerCustomerID string) (*models.BillingCustomer, error)
	GetBillingCustomerByUser(userID uint, provider string) (*models.BillingCustomer, error)
	GetOrCreateSubscription(userID uint) (*models.Subscription, error)
	SaveSubscription(sub *models.Subscription) error
	GetUserByID(userID uint) (*models.User, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindActivePriceMapping(provider, providerPriceRef string) (*models.BillingPriceMapping, error) {
	var m models.BillingPriceMapping
	err := r.db.
		Where("provider = ? AND provider_price_ref = ? AND is_active = ?", provider, providerPriceRef, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) FindPriceRefForPlan(provider, internalPlan, billingCycle string) (*models.BillingPriceMapping, error) {
	var m models.BillingPriceMapping
	err := r.db.
		Where("provider = ? AND internal_plan = ? AND billing_cycle = ? AND is_active = ?", provider, internalPlan, billingCycle, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) UpsertBillingCustomer(customer *models.BillingCustomer) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_customer_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"email",
			"updated_at",
		}),
	}).Create(customer).Error; err != nil {
		return err
	}

	return r.db.Where("provider = ? AND provider_customer_id = ?", customer.Provider, customer.ProviderCustomerID).
		First(customer).Error
}

func (r *gormRepository) GetBillingCustomerByProviderCustomerID(provider, providerCustomerID string) (*models.BillingCustomer, error) {
	var customer models.BillingCustomer
	err := r.db.Where("provider = ? AND provider_customer_id = ?", provider, providerCustomerID).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *gormRepository) GetBillingCustomerByUser(userID uint, provider string) (*models.BillingCustomer, error) {
	var customer models.BillingCustomer
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *gormRepository) GetOrCreateSubscription(userID uint) (*models.Subscription, error) {
	return models.GetOrCreateSubscription(r.db, userID)
}

func (r *gormRepository) SaveSubscription(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
