package repository

import (
	"context"
	"errors"

	"commerce-billing-engine/internal/model"

	"gorm.io/gorm"
)

type PeriodRepository interface {
	Create(ctx context.Context, tx *gorm.DB, period *model.SubscriptionPeriod) error
	// FindByTransactionID resolves the period whose order carries a transaction
	// with the given provider transaction id. Returns (nil, nil) when the
	// transaction is not linked to any subscription period.
	FindByTransactionID(ctx context.Context, tx *gorm.DB, transactionID string) (*model.SubscriptionPeriod, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status model.PeriodStatus) error
}

type periodRepoImpl struct {
	db *gorm.DB
}

func NewPeriodRepository(db *gorm.DB) PeriodRepository {
	return &periodRepoImpl{db: db}
}

func (r *periodRepoImpl) Create(ctx context.Context, tx *gorm.DB, period *model.SubscriptionPeriod) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(period).Error
}

func (r *periodRepoImpl) FindByTransactionID(ctx context.Context, tx *gorm.DB, transactionID string) (*model.SubscriptionPeriod, error) {
	if tx == nil {
		tx = r.db
	}

	var period model.SubscriptionPeriod
	err := tx.WithContext(ctx).
		Joins("JOIN orders ON orders.id = subscription_periods.order_id").
		Joins("JOIN transactions ON transactions.order_id = orders.id").
		Where("transactions.transaction_id = ?", transactionID).
		Preload("Subscription").
		First(&period).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &period, nil
}

func (r *periodRepoImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status model.PeriodStatus) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).Model(&model.SubscriptionPeriod{}).
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
