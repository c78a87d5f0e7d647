package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"commerce-billing-engine/internal/client"
	"commerce-billing-engine/internal/model"
	"commerce-billing-engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const chargeCurrency = "BRL"

// OrderService is the order/transaction ledger. Every order or transaction
// status mutation in the system goes through it.
type OrderService interface {
	// CreateOrder runs the checkout charge cycle for a closed cart and returns
	// the updated order plus ids of any subscriptions created for subscription
	// line items.
	CreateOrder(ctx context.Context, customerID, cartID string, paymentMethod model.PaymentMethod) (*model.Order, []string, error)

	// CreateRecurringOrder records one recurring billing cycle as a fresh
	// order+transaction pair, never reusing an existing order.
	CreateRecurringOrder(ctx context.Context, tx *gorm.DB, customerID string, amount decimal.Decimal, paymentMethod model.PaymentMethod, charge *client.ChargeResponse) (*model.Order, *model.Transaction, error)

	FindOneOrFail(ctx context.Context, id string) (*model.Order, error)
	FindByCustomer(ctx context.Context, customerID string) ([]*model.Order, error)
	FindTransactionByTransactionID(ctx context.Context, transactionID string) (*model.Transaction, error)

	UpdateStatus(ctx context.Context, tx *gorm.DB, orderID string, status model.OrderStatus) error

	// UpdateTransactionStatus is the single choke point through which both the
	// checkout flow and the webhook reconciler push transaction status changes.
	// It always cascades into the subscription engine so linked subscriptions
	// never drift from transaction reality.
	UpdateTransactionStatus(ctx context.Context, tx *gorm.DB, transactionID string, status model.TransactionStatus) (*model.Transaction, error)

	// UpdateTransactionStatusFrom is the compare-and-swap variant used by the
	// webhook reconciler: the write only lands while the row still holds the
	// status the caller read. Returns false when a concurrent writer won.
	UpdateTransactionStatusFrom(ctx context.Context, tx *gorm.DB, transactionID string, from, to model.TransactionStatus) (bool, error)
}

type orderServiceImpl struct {
	db              *gorm.DB
	logger          *slog.Logger
	chargeClient    client.ChargeClient
	chargeTimeout   time.Duration
	customerRepo    repository.CustomerRepository
	orderRepo       repository.OrderRepository
	transactionRepo repository.TransactionRepository
	cartRepo        repository.CartRepository
	subscriptionSvc SubscriptionService
}

func NewOrderService(
	db *gorm.DB,
	logger *slog.Logger,
	chargeClient client.ChargeClient,
	chargeTimeout time.Duration,
	customerRepo repository.CustomerRepository,
	orderRepo repository.OrderRepository,
	transactionRepo repository.TransactionRepository,
	cartRepo repository.CartRepository,
	subscriptionSvc SubscriptionService,
) OrderService {
	return &orderServiceImpl{
		db:              db,
		logger:          logger,
		chargeClient:    chargeClient,
		chargeTimeout:   chargeTimeout,
		customerRepo:    customerRepo,
		orderRepo:       orderRepo,
		transactionRepo: transactionRepo,
		cartRepo:        cartRepo,
		subscriptionSvc: subscriptionSvc,
	}
}

func (s *orderServiceImpl) CreateOrder(ctx context.Context, customerID, cartID string, paymentMethod model.PaymentMethod) (*model.Order, []string, error) {
	customer, cart, err := s.validateOrderCreation(ctx, customerID, cartID)
	if err != nil {
		return nil, nil, err
	}

	order, err := s.findOrCreateOrder(ctx, customer, cart, paymentMethod)
	if err != nil {
		return nil, nil, err
	}

	if hasActiveTransaction(order) {
		return nil, nil, fmt.Errorf("order %s already has an active transaction: %w", order.ID, ErrConflict)
	}

	chargeResponse := s.charge(ctx, &client.ChargeRequest{
		Amount:        cart.Total,
		Currency:      chargeCurrency,
		PaymentMethod: paymentMethod,
		Reference:     cart.ID,
		CustomerEmail: customer.Email,
		CustomerName:  customer.Name,
	})

	var subscriptionIDs []string

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order.Status = chargeToOrderStatus[chargeResponse.Status]
		if err := s.orderRepo.Save(ctx, tx, order); err != nil {
			return fmt.Errorf("store order: %w", err)
		}

		transaction := &model.Transaction{
			TransactionID:  chargeResponse.TransactionID,
			Status:         chargeToTransactionStatus[chargeResponse.Status],
			Amount:         cart.Total,
			Currency:       chargeCurrency,
			Message:        chargeResponse.Message,
			ProcessingTime: chargeResponse.ProcessingTime,
			OrderID:        order.ID,
		}
		if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
			return fmt.Errorf("store transaction: %w", err)
		}
		order.Transactions = append(order.Transactions, *transaction)

		subscriptionIDs = s.createSubscriptionsForCart(ctx, tx, cart, customer, order, chargeResponse.Status)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return order, subscriptionIDs, nil
}

func (s *orderServiceImpl) validateOrderCreation(ctx context.Context, customerID, cartID string) (*model.Customer, *model.Cart, error) {
	customer, err := s.customerRepo.FindByID(ctx, nil, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("find customer: %w", err)
	}

	cart, err := s.cartRepo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("find cart: %w", err)
	}

	if cart.CustomerID != customerID {
		return nil, nil, fmt.Errorf("cart does not belong to customer: %w", ErrNotFound)
	}
	if cart.Status != model.CartStatusClosed {
		return nil, nil, fmt.Errorf("cart %s is not closed: %w", cartID, ErrBadRequest)
	}
	if len(cart.Items) == 0 {
		return nil, nil, fmt.Errorf("cart has no items: %w", ErrBadRequest)
	}
	if !cart.Total.IsPositive() {
		return nil, nil, fmt.Errorf("cart total must be positive: %w", ErrBadRequest)
	}

	return customer, cart, nil
}

// findOrCreateOrder makes checkout idempotent per cart: re-running checkout on
// the same cart reuses the existing order row instead of duplicating it.
func (s *orderServiceImpl) findOrCreateOrder(ctx context.Context, customer *model.Customer, cart *model.Cart, paymentMethod model.PaymentMethod) (*model.Order, error) {
	existing, err := s.orderRepo.FindByCartID(ctx, cart.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find order by cart: %w", err)
	}

	cartID := cart.ID
	return &model.Order{
		CustomerID:    customer.ID,
		CartID:        &cartID,
		Total:         cart.Total,
		Status:        model.OrderStatusPending,
		PaymentMethod: paymentMethod,
		Origin:        model.OrderOriginCart,
	}, nil
}

func hasActiveTransaction(order *model.Order) bool {
	for _, t := range order.Transactions {
		if t.Status == model.TransactionStatusProcessing || t.Status == model.TransactionStatusCreated {
			return true
		}
	}
	return false
}

// charge calls the provider under a deadline. A provider error or timeout is
// recorded as a failed charge, never surfaced as an infrastructure error.
func (s *orderServiceImpl) charge(ctx context.Context, req *client.ChargeRequest) *client.ChargeResponse {
	chargeCtx, cancel := context.WithTimeout(ctx, s.chargeTimeout)
	defer cancel()

	resp, err := s.chargeClient.Charge(chargeCtx, req)
	if err != nil {
		s.logger.Error("charge provider call failed",
			"reference", req.Reference, "error", err)
		return client.FailedChargeResponse(err)
	}
	return resp
}

func shouldCreateSubscriptions(cart *model.Cart, status client.ChargeStatus) bool {
	processable := status == client.ChargeStatusPaid ||
		status == client.ChargeStatusCreated ||
		status == client.ChargeStatusProcessing
	if !processable {
		return false
	}

	for _, item := range cart.Items {
		if item.Product != nil && item.Product.Type == model.ProductTypeSubscription {
			return true
		}
	}
	return false
}

// createSubscriptionsForCart creates one subscription per subscription line
// item. A failure creating one is logged and skipped, not fatal to the order.
func (s *orderServiceImpl) createSubscriptionsForCart(ctx context.Context, tx *gorm.DB, cart *model.Cart, customer *model.Customer, order *model.Order, status client.ChargeStatus) []string {
	ids := []string{}
	if !shouldCreateSubscriptions(cart, status) {
		return ids
	}

	for _, item := range cart.Items {
		if item.Product == nil || item.Product.Type != model.ProductTypeSubscription || item.Product.Periodicity == nil {
			continue
		}

		sub, err := s.subscriptionSvc.Create(ctx, tx, customer, item.Product, item.Price, *item.Product.Periodicity, order)
		if err != nil {
			s.logger.Warn("failed to create subscription for product",
				"product_id", item.ProductID, "order_id", order.ID, "error", err)
			continue
		}
		ids = append(ids, sub.ID)
	}

	return ids
}

func (s *orderServiceImpl) CreateRecurringOrder(ctx context.Context, tx *gorm.DB, customerID string, amount decimal.Decimal, paymentMethod model.PaymentMethod, charge *client.ChargeResponse) (*model.Order, *model.Transaction, error) {
	if _, err := s.customerRepo.FindByID(ctx, tx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("find customer: %w", err)
	}

	order := &model.Order{
		CustomerID:    customerID,
		Total:         amount,
		Status:        chargeToOrderStatus[charge.Status],
		PaymentMethod: paymentMethod,
		Origin:        model.OrderOriginSubscription,
	}
	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, nil, fmt.Errorf("store recurring order: %w", err)
	}

	transaction := &model.Transaction{
		TransactionID:  charge.TransactionID,
		Status:         chargeToTransactionStatus[charge.Status],
		Amount:         amount,
		Currency:       chargeCurrency,
		Message:        charge.Message,
		ProcessingTime: charge.ProcessingTime,
		OrderID:        order.ID,
	}
	if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
		return nil, nil, fmt.Errorf("store recurring transaction: %w", err)
	}

	return order, transaction, nil
}

func (s *orderServiceImpl) FindOneOrFail(ctx context.Context, id string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

func (s *orderServiceImpl) FindByCustomer(ctx context.Context, customerID string) ([]*model.Order, error) {
	return s.orderRepo.FindByCustomer(ctx, customerID)
}

func (s *orderServiceImpl) FindTransactionByTransactionID(ctx context.Context, transactionID string) (*model.Transaction, error) {
	transaction, err := s.transactionRepo.FindByTransactionID(ctx, nil, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return transaction, nil
}

func (s *orderServiceImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, orderID string, status model.OrderStatus) error {
	if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (s *orderServiceImpl) UpdateTransactionStatus(ctx context.Context, tx *gorm.DB, transactionID string, status model.TransactionStatus) (*model.Transaction, error) {
	if err := s.transactionRepo.UpdateStatus(ctx, tx, transactionID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
		}
		return nil, fmt.Errorf("update transaction status: %w", err)
	}

	if _, err := s.subscriptionSvc.FindAndUpdateSubscriptionByTransaction(ctx, tx, transactionID, status); err != nil {
		return nil, fmt.Errorf("cascade subscription update: %w", err)
	}

	return s.transactionRepo.FindByTransactionID(ctx, tx, transactionID)
}

func (s *orderServiceImpl) UpdateTransactionStatusFrom(ctx context.Context, tx *gorm.DB, transactionID string, from, to model.TransactionStatus) (bool, error) {
	affected, err := s.transactionRepo.UpdateStatusFrom(ctx, tx, transactionID, from, to)
	if err != nil {
		return false, fmt.Errorf("update transaction status: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := s.subscriptionSvc.FindAndUpdateSubscriptionByTransaction(ctx, tx, transactionID, to); err != nil {
		return false, fmt.Errorf("cascade subscription update: %w", err)
	}

	return true, nil
}
