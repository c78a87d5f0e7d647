package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"commerce-billing-engine/internal/client"
	"commerce-billing-engine/internal/model"

	"gorm.io/gorm"
)

// BillingResult is the per-subscription outcome of one recurring billing run.
type BillingResult struct {
	SubscriptionID string `json:"subscription_id"`
	Success        bool   `json:"success"`
	OrderID        string `json:"order_id,omitempty"`
	TransactionID  string `json:"transaction_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// RecurringBillingService drives one charge + ledger + period cycle per due
// subscription. Subscriptions are processed independently: one failure never
// aborts the rest of the batch.
type RecurringBillingService interface {
	ProcessDueSubscriptions(ctx context.Context) ([]BillingResult, error)
}

type recurringBillingServiceImpl struct {
	db              *gorm.DB
	logger          *slog.Logger
	chargeClient    client.ChargeClient
	chargeTimeout   time.Duration
	subscriptionSvc SubscriptionService
	orderSvc        OrderService
}

func NewRecurringBillingService(
	db *gorm.DB,
	logger *slog.Logger,
	chargeClient client.ChargeClient,
	chargeTimeout time.Duration,
	subscriptionSvc SubscriptionService,
	orderSvc OrderService,
) RecurringBillingService {
	return &recurringBillingServiceImpl{
		db:              db,
		logger:          logger,
		chargeClient:    chargeClient,
		chargeTimeout:   chargeTimeout,
		subscriptionSvc: subscriptionSvc,
		orderSvc:        orderSvc,
	}
}

func (s *recurringBillingServiceImpl) ProcessDueSubscriptions(ctx context.Context) ([]BillingResult, error) {
	due, err := s.subscriptionSvc.FindDueSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("find due subscriptions: %w", err)
	}

	s.logger.Info("found subscriptions due for billing", "count", len(due))

	results := make([]BillingResult, 0, len(due))
	for _, sub := range due {
		result, err := s.processSubscriptionBilling(ctx, sub)
		if err != nil {
			s.logger.Error("error processing billing for subscription",
				"subscription_id", sub.ID, "error", err)
			results = append(results, BillingResult{
				SubscriptionID: sub.ID,
				Success:        false,
				Error:          err.Error(),
			})
			continue
		}
		results = append(results, *result)
	}

	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	s.logger.Info("recurring billing completed",
		"processed", len(results),
		"successful", successful,
		"failed", len(results)-successful)

	return results, nil
}

// processSubscriptionBilling runs one billing cycle. The provider charge
// happens before the transaction opens; the database writes for the cycle are
// one atomic unit per subscription.
func (s *recurringBillingServiceImpl) processSubscriptionBilling(ctx context.Context, sub *model.Subscription) (*BillingResult, error) {
	s.logger.Info("processing billing for subscription", "subscription_id", sub.SubscriptionID)

	if sub.Customer == nil {
		return nil, fmt.Errorf("customer not loaded for subscription %s", sub.ID)
	}

	chargeCtx, cancel := context.WithTimeout(ctx, s.chargeTimeout)
	chargeResponse, err := s.chargeClient.Charge(chargeCtx, &client.ChargeRequest{
		Amount:        sub.Price,
		Currency:      chargeCurrency,
		PaymentMethod: model.PaymentMethodCard, // recurring cycles always bill the card
		Reference:     sub.SubscriptionID,
		CustomerEmail: sub.Customer.Email,
		CustomerName:  sub.Customer.Name,
	})
	cancel()
	if err != nil {
		s.logger.Error("charge provider call failed",
			"subscription_id", sub.SubscriptionID, "error", err)
		chargeResponse = client.FailedChargeResponse(err)
	}

	var result *BillingResult

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, transaction, err := s.orderSvc.CreateRecurringOrder(ctx, tx, sub.CustomerID, sub.Price, model.PaymentMethodCard, chargeResponse)
		if err != nil {
			return err
		}

		if _, err := s.subscriptionSvc.CreatePeriod(ctx, tx, sub, order, sub.Price); err != nil {
			return err
		}

		if chargeResponse.Status == client.ChargeStatusPaid {
			if err := s.subscriptionSvc.UpdateStatus(ctx, tx, sub.ID, model.SubscriptionStatusActive); err != nil {
				return err
			}
			if err := s.subscriptionSvc.UpdateNextBillingDate(ctx, tx, sub.ID); err != nil {
				return err
			}
		} else {
			// leave nextBillingDate untouched so the subscription stays due
			// and is retried on the next run
			if err := s.subscriptionSvc.UpdateStatus(ctx, tx, sub.ID, model.SubscriptionStatusPastDue); err != nil {
				return err
			}
		}

		result = &BillingResult{
			SubscriptionID: sub.ID,
			Success:        chargeResponse.Status == client.ChargeStatusPaid,
			OrderID:        order.ID,
			TransactionID:  transaction.TransactionID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
