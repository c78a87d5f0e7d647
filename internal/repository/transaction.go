package repository

import (
	"context"

	"commerce-billing-engine/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, transaction *model.Transaction) error
	FindByTransactionID(ctx context.Context, tx *gorm.DB, transactionID string) (*model.Transaction, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, transactionID string, status model.TransactionStatus) error
	// UpdateStatusFrom performs a compare-and-swap: the write only lands when
	// the row still holds the expected current status. Returns the number of
	// rows updated so callers can detect a lost race.
	UpdateStatusFrom(ctx context.Context, tx *gorm.DB, transactionID string, from, to model.TransactionStatus) (int64, error)
}

type transactionRepoImpl struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepoImpl{db: db}
}

func (r *transactionRepoImpl) Create(ctx context.Context, tx *gorm.DB, transaction *model.Transaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(transaction).Error
}

func (r *transactionRepoImpl) FindByTransactionID(ctx context.Context, tx *gorm.DB, transactionID string) (*model.Transaction, error) {
	if tx == nil {
		tx = r.db
	}

	var transaction model.Transaction
	err := tx.WithContext(ctx).
		Preload("Order").
		Preload("Order.Customer").
		Where("transaction_id = ?", transactionID).
		First(&transaction).Error

	if err != nil {
		return nil, err
	}

	return &transaction, nil
}

func (r *transactionRepoImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, transactionID string, status model.TransactionStatus) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).Model(&model.Transaction{}).
		Where("transaction_id = ?", transactionID).
		Update("status", status)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *transactionRepoImpl) UpdateStatusFrom(ctx context.Context, tx *gorm.DB, transactionID string, from, to model.TransactionStatus) (int64, error) {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).Model(&model.Transaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, from).
		Update("status", to)

	return result.RowsAffected, result.Error
}
