package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"commerce-billing-engine/internal/model"
	"commerce-billing-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubscriptionUpdate reports what FindAndUpdateSubscriptionByTransaction
// changed for a transaction linked to a subscription period.
type SubscriptionUpdate struct {
	SubscriptionID     string
	PeriodStatus       model.PeriodStatus
	SubscriptionStatus model.SubscriptionStatus
}

type SubscriptionService interface {
	// Create opens a subscription for a customer/product pair. Conflicts when
	// an ACTIVE subscription for the pair already exists. The first billing
	// period is created immediately.
	Create(ctx context.Context, tx *gorm.DB, customer *model.Customer, product *model.Product, price decimal.Decimal, periodicity model.Periodicity, originOrder *model.Order) (*model.Subscription, error)

	// CreatePeriod appends one billing cycle's ledger entry, its status derived
	// from the funding order's status.
	CreatePeriod(ctx context.Context, tx *gorm.DB, sub *model.Subscription, order *model.Order, price decimal.Decimal) (*model.SubscriptionPeriod, error)

	UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status model.SubscriptionStatus) error
	UpdateNextBillingDate(ctx context.Context, tx *gorm.DB, id string) error

	// FindAndUpdateSubscriptionByTransaction keeps subscriptions in sync with
	// transaction status changes. Returns (nil, nil) when the transaction is
	// not linked to any subscription period.
	FindAndUpdateSubscriptionByTransaction(ctx context.Context, tx *gorm.DB, transactionID string, status model.TransactionStatus) (*SubscriptionUpdate, error)

	FindOneOrFail(ctx context.Context, id string) (*model.Subscription, error)
	FindByCustomer(ctx context.Context, customerID string) ([]*model.Subscription, error)
	// FindDueSubscriptions returns ACTIVE subscriptions due for billing today.
	FindDueSubscriptions(ctx context.Context) ([]*model.Subscription, error)
}

type subscriptionServiceImpl struct {
	logger           *slog.Logger
	subscriptionRepo repository.SubscriptionRepository
	periodRepo       repository.PeriodRepository
	now              func() time.Time
}

func NewSubscriptionService(
	logger *slog.Logger,
	subscriptionRepo repository.SubscriptionRepository,
	periodRepo repository.PeriodRepository,
) SubscriptionService {
	return &subscriptionServiceImpl{
		logger:           logger,
		subscriptionRepo: subscriptionRepo,
		periodRepo:       periodRepo,
		now:              time.Now,
	}
}

func (s *subscriptionServiceImpl) Create(ctx context.Context, tx *gorm.DB, customer *model.Customer, product *model.Product, price decimal.Decimal, periodicity model.Periodicity, originOrder *model.Order) (*model.Subscription, error) {
	existing, err := s.subscriptionRepo.FindActiveByCustomerAndProduct(ctx, tx, customer.ID, product.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find active subscription: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("customer already has an active subscription for product %s: %w", product.ID, ErrConflict)
	}

	now := s.now()
	sub := &model.Subscription{
		SubscriptionID:  generateSubscriptionID(),
		CustomerID:      customer.ID,
		ProductID:       product.ID,
		Price:           price,
		Periodicity:     periodicity,
		Status:          orderToSubscriptionStatus[originOrder.Status],
		NextBillingDate: nextBillingDate(now, periodicity),
		StartDate:       now,
		Description:     "Assinatura " + product.Name,
	}

	if err := s.subscriptionRepo.Create(ctx, tx, sub); err != nil {
		return nil, fmt.Errorf("store subscription: %w", err)
	}

	period, err := s.CreatePeriod(ctx, tx, sub, originOrder, price)
	if err != nil {
		return nil, err
	}
	sub.Periods = []model.SubscriptionPeriod{*period}

	return sub, nil
}

func (s *subscriptionServiceImpl) CreatePeriod(ctx context.Context, tx *gorm.DB, sub *model.Subscription, order *model.Order, price decimal.Decimal) (*model.SubscriptionPeriod, error) {
	now := s.now()
	billedAt := now

	period := &model.SubscriptionPeriod{
		SubscriptionID: sub.ID,
		StartDate:      now,
		EndDate:        periodEndDate(now, sub.Periodicity),
		Status:         orderToPeriodStatus[order.Status],
		OrderID:        order.ID,
		Price:          price,
		BilledAt:       &billedAt,
	}

	if err := s.periodRepo.Create(ctx, tx, period); err != nil {
		return nil, fmt.Errorf("store subscription period: %w", err)
	}

	return period, nil
}

func (s *subscriptionServiceImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status model.SubscriptionStatus) error {
	if err := s.subscriptionRepo.UpdateStatus(ctx, tx, id, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("subscription %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("update subscription status: %w", err)
	}
	return nil
}

func (s *subscriptionServiceImpl) UpdateNextBillingDate(ctx context.Context, tx *gorm.DB, id string) error {
	sub, err := s.subscriptionRepo.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("subscription %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("find subscription: %w", err)
	}

	next := nextBillingDate(s.now(), sub.Periodicity)
	if err := s.subscriptionRepo.UpdateNextBillingDate(ctx, tx, id, next); err != nil {
		return fmt.Errorf("update next billing date: %w", err)
	}
	return nil
}

func (s *subscriptionServiceImpl) FindAndUpdateSubscriptionByTransaction(ctx context.Context, tx *gorm.DB, transactionID string, status model.TransactionStatus) (*SubscriptionUpdate, error) {
	period, err := s.periodRepo.FindByTransactionID(ctx, tx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("find period by transaction: %w", err)
	}
	if period == nil {
		// transaction unrelated to any subscription, nothing to sync
		return nil, nil
	}

	periodStatus := transactionToPeriodStatus[status]
	subscriptionStatus := transactionToSubscriptionStatus[status]

	if err := s.periodRepo.UpdateStatus(ctx, tx, period.ID, periodStatus); err != nil {
		return nil, fmt.Errorf("update period status: %w", err)
	}

	if err := s.UpdateStatus(ctx, tx, period.SubscriptionID, subscriptionStatus); err != nil {
		return nil, err
	}

	// only a settled payment moves the billing horizon forward
	if status == model.TransactionStatusPaid {
		if err := s.UpdateNextBillingDate(ctx, tx, period.SubscriptionID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("subscription synced from transaction status",
		"transaction_id", transactionID,
		"subscription_id", period.SubscriptionID,
		"period_status", periodStatus,
		"subscription_status", subscriptionStatus)

	return &SubscriptionUpdate{
		SubscriptionID:     period.SubscriptionID,
		PeriodStatus:       periodStatus,
		SubscriptionStatus: subscriptionStatus,
	}, nil
}

func (s *subscriptionServiceImpl) FindOneOrFail(ctx context.Context, id string) (*model.Subscription, error) {
	sub, err := s.subscriptionRepo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("subscription %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return sub, nil
}

func (s *subscriptionServiceImpl) FindByCustomer(ctx context.Context, customerID string) ([]*model.Subscription, error) {
	return s.subscriptionRepo.FindByCustomer(ctx, customerID)
}

func (s *subscriptionServiceImpl) FindDueSubscriptions(ctx context.Context) ([]*model.Subscription, error) {
	return s.subscriptionRepo.FindDue(ctx, s.now())
}

func nextBillingDate(from time.Time, periodicity model.Periodicity) time.Time {
	switch periodicity {
	case model.PeriodicityMonthly:
		return from.AddDate(0, 1, 0)
	case model.PeriodicityQuarterly:
		return from.AddDate(0, 3, 0)
	case model.PeriodicityYearly:
		return from.AddDate(1, 0, 0)
	}
	return from
}

// periodEndDate computes the inclusive end of a billing period. Monthly
// periods end the day before the first of the month the +1-month date falls
// in (end-of-month inclusive); quarterly and yearly periods end the day
// before their anniversary.
func periodEndDate(start time.Time, periodicity model.Periodicity) time.Time {
	switch periodicity {
	case model.PeriodicityMonthly:
		d := start.AddDate(0, 1, 0)
		firstOfMonth := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
		return firstOfMonth.AddDate(0, 0, -1)
	case model.PeriodicityQuarterly:
		return start.AddDate(0, 3, -1)
	case model.PeriodicityYearly:
		return start.AddDate(1, 0, -1)
	}
	return start
}

func generateSubscriptionID() string {
	return "SUB_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
