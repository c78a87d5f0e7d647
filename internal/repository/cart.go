package repository

import (
	"context"

	"commerce-billing-engine/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CartRepository interface {
	Create(ctx context.Context, cart *model.Cart) error
	FindByID(ctx context.Context, id string) (*model.Cart, error)
	FindOpenByCustomer(ctx context.Context, customerID string) (*model.Cart, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, cartID string, status model.CartStatus) error
	RecalculateTotal(ctx context.Context, cartID string) error
	AddItem(ctx context.Context, item *model.CartItem) error
	SaveItem(ctx context.Context, item *model.CartItem) error
	RemoveItem(ctx context.Context, item *model.CartItem) error
}

type cartRepoImpl struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepoImpl{db: db}
}

func (r *cartRepoImpl) Create(ctx context.Context, cart *model.Cart) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

func (r *cartRepoImpl) FindByID(ctx context.Context, id string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items").
		Preload("Items.Product").
		Where("id = ?", id).
		First(&cart).Error

	if err != nil {
		return nil, err
	}

	return &cart, nil
}

func (r *cartRepoImpl) FindOpenByCustomer(ctx context.Context, customerID string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Where("customer_id = ? AND status = ?", customerID, model.CartStatusOpen).
		First(&cart).Error

	if err != nil {
		return nil, err
	}

	return &cart, nil
}

func (r *cartRepoImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, cartID string, status model.CartStatus) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("status", status).Error
}

// RecalculateTotal recomputes the cart total from its live items.
func (r *cartRepoImpl) RecalculateTotal(ctx context.Context, cartID string) error {
	var items []model.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Find(&items).Error
	if err != nil {
		return err
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return r.db.WithContext(ctx).Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("total", total).Error
}

func (r *cartRepoImpl) AddItem(ctx context.Context, item *model.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *cartRepoImpl) SaveItem(ctx context.Context, item *model.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *cartRepoImpl) RemoveItem(ctx context.Context, item *model.CartItem) error {
	return r.db.WithContext(ctx).Delete(item).Error
}
