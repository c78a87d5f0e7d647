package repository

import (
	"context"
	"time"

	"commerce-billing-engine/internal/model"

	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*model.Subscription, error)
	FindActiveByCustomerAndProduct(ctx context.Context, tx *gorm.DB, customerID, productID string) (*model.Subscription, error)
	FindByCustomer(ctx context.Context, customerID string) ([]*model.Subscription, error)
	// FindDue returns ACTIVE subscriptions whose next billing date falls on or
	// before the given day (day precision).
	FindDue(ctx context.Context, day time.Time) ([]*model.Subscription, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status model.SubscriptionStatus) error
	UpdateNextBillingDate(ctx context.Context, tx *gorm.DB, id string, next time.Time) error
}

type subscriptionRepoImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepoImpl{db: db}
}

func (r *subscriptionRepoImpl) Create(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(sub).Error
}

func (r *subscriptionRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, id string) (*model.Subscription, error) {
	if tx == nil {
		tx = r.db
	}

	var sub model.Subscription
	err := tx.WithContext(ctx).
		Preload("Customer").
		Preload("Product").
		Preload("Periods", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_date ASC")
		}).
		Preload("Periods.Order").
		Where("id = ?", id).
		First(&sub).Error

	if err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *subscriptionRepoImpl) FindActiveByCustomerAndProduct(ctx context.Context, tx *gorm.DB, customerID, productID string) (*model.Subscription, error) {
	if tx == nil {
		tx = r.db
	}

	var sub model.Subscription
	err := tx.WithContext(ctx).
		Where("customer_id = ? AND product_id = ? AND status = ?",
			customerID, productID, model.SubscriptionStatusActive).
		First(&sub).Error

	if err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *subscriptionRepoImpl) FindByCustomer(ctx context.Context, customerID string) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Product").
		Preload("Periods").
		Preload("Periods.Order").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&subs).Error

	if err != nil {
		return nil, err
	}

	return subs, nil
}

func (r *subscriptionRepoImpl) FindDue(ctx context.Context, day time.Time) ([]*model.Subscription, error) {
	// next_billing_date truncated to day <= day, expressed as a range bound so
	// the status+next_billing_date index stays usable
	endOfDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()).AddDate(0, 0, 1)

	var subs []*model.Subscription
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Product").
		Where("status = ? AND next_billing_date < ?", model.SubscriptionStatusActive, endOfDay).
		Find(&subs).Error

	if err != nil {
		return nil, err
	}

	return subs, nil
}

func (r *subscriptionRepoImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status model.SubscriptionStatus) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ?", id).
		Update("status", status)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *subscriptionRepoImpl) UpdateNextBillingDate(ctx context.Context, tx *gorm.DB, id string, next time.Time) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ?", id).
		Update("next_billing_date", next)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
