package service

import (
	"context"
	"errors"
	"fmt"

	"commerce-billing-engine/internal/dto"
	"commerce-billing-engine/internal/model"
	"commerce-billing-engine/internal/repository"

	"gorm.io/gorm"
)

type ProductService interface {
	Create(ctx context.Context, req *dto.CreateProductRequest) (*model.Product, error)
	FindOneOrFail(ctx context.Context, id string) (*model.Product, error)
	FindAll(ctx context.Context) ([]*model.Product, error)
}

type productServiceImpl struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productServiceImpl{productRepo: productRepo}
}

func (s *productServiceImpl) Create(ctx context.Context, req *dto.CreateProductRequest) (*model.Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("product name is required: %w", ErrBadRequest)
	}
	if !req.Price.IsPositive() {
		return nil, fmt.Errorf("product price must be positive: %w", ErrBadRequest)
	}

	product := &model.Product{
		Name:  req.Name,
		Price: req.Price,
		Type:  req.Type,
	}

	switch req.Type {
	case model.ProductTypeSingle:
		if req.Periodicity != "" {
			return nil, fmt.Errorf("single products cannot have periodicity: %w", ErrBadRequest)
		}
	case model.ProductTypeSubscription:
		periodicity := model.Periodicity(req.Periodicity)
		switch periodicity {
		case model.PeriodicityMonthly, model.PeriodicityQuarterly, model.PeriodicityYearly:
			product.Periodicity = &periodicity
		default:
			return nil, fmt.Errorf("invalid periodicity %q for subscription product: %w", req.Periodicity, ErrBadRequest)
		}
	default:
		return nil, fmt.Errorf("invalid product type %q: %w", req.Type, ErrBadRequest)
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("store product: %w", err)
	}

	return product, nil
}

func (s *productServiceImpl) FindOneOrFail(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return product, nil
}

func (s *productServiceImpl) FindAll(ctx context.Context) ([]*model.Product, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}
