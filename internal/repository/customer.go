package repository

import (
	"context"

	"commerce-billing-engine/internal/model"

	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	// FindByID reads through tx when one is given so lookups inside an open
	// transaction see its uncommitted state.
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*model.Customer, error)
	FindByEmail(ctx context.Context, email string) (*model.Customer, error)
}

type customerRepoImpl struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepoImpl{db: db}
}

func (r *customerRepoImpl) Create(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *customerRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, id string) (*model.Customer, error) {
	if tx == nil {
		tx = r.db
	}

	var customer model.Customer
	err := tx.WithContext(ctx).
		Where("id = ?", id).
		First(&customer).Error

	if err != nil {
		return nil, err
	}

	return &customer, nil
}

func (r *customerRepoImpl) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&customer).Error

	if err != nil {
		return nil, err
	}

	return &customer, nil
}
