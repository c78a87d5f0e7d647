package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"commerce-billing-engine/internal/dto"
	"commerce-billing-engine/internal/model"
	"commerce-billing-engine/internal/repository"

	"gorm.io/gorm"
)

// CartService owns the cart lifecycle and is the checkout entry point into
// the order/transaction ledger.
type CartService interface {
	OpenCart(ctx context.Context, customerID string) (*dto.CartResponse, error)
	GetOpenCart(ctx context.Context, customerID string) (*dto.CartResponse, error)
	AddItem(ctx context.Context, customerID, productID string, quantity int) (*dto.CartResponse, error)
	RemoveItem(ctx context.Context, customerID, itemID string) (*dto.CartResponse, error)
	CloseCart(ctx context.Context, cartID string) (*dto.CartResponse, error)
	Checkout(ctx context.Context, cartID, customerID string, paymentMethod model.PaymentMethod) (*dto.CheckoutResponse, error)
}

type cartServiceImpl struct {
	logger       *slog.Logger
	cartRepo     repository.CartRepository
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
	orderSvc     OrderService
}

func NewCartService(
	logger *slog.Logger,
	cartRepo repository.CartRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	orderSvc OrderService,
) CartService {
	return &cartServiceImpl{
		logger:       logger,
		cartRepo:     cartRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		orderSvc:     orderSvc,
	}
}

func (s *cartServiceImpl) OpenCart(ctx context.Context, customerID string) (*dto.CartResponse, error) {
	cart, err := s.getOrCreateOpenCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return mapCartToResponse(cart), nil
}

func (s *cartServiceImpl) GetOpenCart(ctx context.Context, customerID string) (*dto.CartResponse, error) {
	cart, err := s.cartRepo.FindOpenByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("open cart: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("find open cart: %w", err)
	}
	return mapCartToResponse(cart), nil
}

func (s *cartServiceImpl) getOrCreateOpenCart(ctx context.Context, customerID string) (*model.Cart, error) {
	cart, err := s.cartRepo.FindOpenByCustomer(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find open cart: %w", err)
	}

	if _, err := s.customerRepo.FindByID(ctx, nil, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}

	cart = &model.Cart{
		CustomerID: customerID,
		Status:     model.CartStatusOpen,
	}
	if err := s.cartRepo.Create(ctx, cart); err != nil {
		return nil, fmt.Errorf("store cart: %w", err)
	}

	return cart, nil
}

func (s *cartServiceImpl) AddItem(ctx context.Context, customerID, productID string, quantity int) (*dto.CartResponse, error) {
	if quantity <= 0 {
		quantity = 1
	}

	cart, err := s.getOrCreateOpenCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("find product: %w", err)
	}

	if err := validateProductForCart(product, quantity); err != nil {
		return nil, err
	}

	var existing *model.CartItem
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			existing = &cart.Items[i]
			break
		}
	}

	if existing != nil {
		if product.Type == model.ProductTypeSubscription {
			return nil, fmt.Errorf("subscription product already in cart, each subscription can only be added once: %w", ErrBadRequest)
		}
		existing.Quantity += quantity
		if err := s.cartRepo.SaveItem(ctx, existing); err != nil {
			return nil, fmt.Errorf("update cart item: %w", err)
		}
	} else {
		if product.Type == model.ProductTypeSubscription {
			quantity = 1
		}
		item := &model.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  quantity,
			Price:     product.Price,
		}
		if err := s.cartRepo.AddItem(ctx, item); err != nil {
			return nil, fmt.Errorf("store cart item: %w", err)
		}
	}

	return s.refreshCart(ctx, cart.ID)
}

func validateProductForCart(product *model.Product, quantity int) error {
	if product.Type == model.ProductTypeSubscription && product.Periodicity == nil {
		return fmt.Errorf("subscription product must have periodicity defined: %w", ErrBadRequest)
	}
	if product.Type == model.ProductTypeSingle && product.Periodicity != nil {
		return fmt.Errorf("single products cannot have periodicity: %w", ErrBadRequest)
	}
	if product.Type == model.ProductTypeSubscription && quantity > 1 {
		return fmt.Errorf("subscription products can only have quantity of 1: %w", ErrBadRequest)
	}
	return nil
}

func (s *cartServiceImpl) RemoveItem(ctx context.Context, customerID, itemID string) (*dto.CartResponse, error) {
	cart, err := s.cartRepo.FindOpenByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("open cart: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("find open cart: %w", err)
	}

	var item *model.CartItem
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			item = &cart.Items[i]
			break
		}
	}
	if item == nil {
		return nil, fmt.Errorf("item not found in cart: %w", ErrNotFound)
	}

	if err := s.cartRepo.RemoveItem(ctx, item); err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}

	return s.refreshCart(ctx, cart.ID)
}

func (s *cartServiceImpl) CloseCart(ctx context.Context, cartID string) (*dto.CartResponse, error) {
	cart, err := s.cartRepo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
		}
		return nil, fmt.Errorf("find cart: %w", err)
	}

	// closing twice is a no-op
	if cart.Status == model.CartStatusClosed {
		return mapCartToResponse(cart), nil
	}

	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("cannot close a cart without items: %w", ErrBadRequest)
	}
	if !cart.Total.IsPositive() {
		return nil, fmt.Errorf("cannot close a cart with zero or negative total: %w", ErrBadRequest)
	}

	if err := s.cartRepo.UpdateStatus(ctx, nil, cart.ID, model.CartStatusClosed); err != nil {
		return nil, fmt.Errorf("close cart: %w", err)
	}
	cart.Status = model.CartStatusClosed

	return mapCartToResponse(cart), nil
}

func (s *cartServiceImpl) Checkout(ctx context.Context, cartID, customerID string, paymentMethod model.PaymentMethod) (*dto.CheckoutResponse, error) {
	if _, err := s.CloseCart(ctx, cartID); err != nil {
		return nil, err
	}

	order, subscriptionIDs, err := s.orderSvc.CreateOrder(ctx, customerID, cartID, paymentMethod)
	if err != nil {
		return nil, err
	}

	transactions := make([]dto.TransactionResponse, 0, len(order.Transactions))
	for _, t := range order.Transactions {
		transactions = append(transactions, dto.TransactionResponse{
			ID:            t.ID,
			TransactionID: t.TransactionID,
			Status:        t.Status,
			Amount:        t.Amount,
			Currency:      t.Currency,
			Message:       t.Message,
		})
	}

	return &dto.CheckoutResponse{
		OrderID:         order.ID,
		OrderStatus:     order.Status,
		OrderTotal:      order.Total,
		PaymentMethod:   order.PaymentMethod,
		Transactions:    transactions,
		SubscriptionIDs: subscriptionIDs,
	}, nil
}

func (s *cartServiceImpl) refreshCart(ctx context.Context, cartID string) (*dto.CartResponse, error) {
	if err := s.cartRepo.RecalculateTotal(ctx, cartID); err != nil {
		return nil, fmt.Errorf("recalculate cart total: %w", err)
	}

	cart, err := s.cartRepo.FindByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("reload cart: %w", err)
	}

	return mapCartToResponse(cart), nil
}

func mapCartToResponse(cart *model.Cart) *dto.CartResponse {
	items := make([]dto.CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		items = append(items, dto.CartItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: name,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}

	return &dto.CartResponse{
		ID:     cart.ID,
		Status: cart.Status,
		Total:  cart.Total,
		Items:  items,
	}
}
