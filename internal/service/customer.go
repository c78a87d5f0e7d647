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

type CustomerService interface {
	Create(ctx context.Context, req *dto.CreateCustomerRequest) (*model.Customer, error)
	FindOneOrFail(ctx context.Context, id string) (*model.Customer, error)
}

type customerServiceImpl struct {
	customerRepo repository.CustomerRepository
}

func NewCustomerService(customerRepo repository.CustomerRepository) CustomerService {
	return &customerServiceImpl{customerRepo: customerRepo}
}

func (s *customerServiceImpl) Create(ctx context.Context, req *dto.CreateCustomerRequest) (*model.Customer, error) {
	if req.Name == "" || req.Email == "" {
		return nil, fmt.Errorf("name and email are required: %w", ErrBadRequest)
	}

	existing, err := s.customerRepo.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find customer by email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("customer with email %s already exists: %w", req.Email, ErrConflict)
	}

	customer := &model.Customer{
		Name:  req.Name,
		Email: req.Email,
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("store customer: %w", err)
	}

	return customer, nil
}

func (s *customerServiceImpl) FindOneOrFail(ctx context.Context, id string) (*model.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return customer, nil
}
