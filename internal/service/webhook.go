package service

import (
	"context"
	"fmt"
	"log/slog"

	"commerce-billing-engine/internal/dto"
	"commerce-billing-engine/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// amountTolerance is the documented business rule for reconciling provider
// amounts against stored transactions, not a float artifact.
var amountTolerance = decimal.NewFromFloat(0.01)

var eventToTransactionStatus = map[dto.WebhookEventType]model.TransactionStatus{
	dto.WebhookEventPaymentSuccess: model.TransactionStatusPaid,
	dto.WebhookEventPaymentFailed:  model.TransactionStatusFailed,
	dto.WebhookEventPaymentPending: model.TransactionStatusProcessing,
}

var eventToOrderStatus = map[dto.WebhookEventType]model.OrderStatus{
	dto.WebhookEventPaymentSuccess: model.OrderStatusConfirmed,
	dto.WebhookEventPaymentFailed:  model.OrderStatusFailed,
	dto.WebhookEventPaymentPending: model.OrderStatusPending,
}

// WebhookService reconciles asynchronous payment notifications against the
// ledger. Processing is idempotent and safe under duplicated or out-of-order
// delivery.
type WebhookService interface {
	ProcessWebhook(ctx context.Context, payload *dto.WebhookPayload) error
}

type webhookServiceImpl struct {
	db       *gorm.DB
	logger   *slog.Logger
	orderSvc OrderService
}

func NewWebhookService(db *gorm.DB, logger *slog.Logger, orderSvc OrderService) WebhookService {
	return &webhookServiceImpl{
		db:       db,
		logger:   logger,
		orderSvc: orderSvc,
	}
}

func (s *webhookServiceImpl) ProcessWebhook(ctx context.Context, payload *dto.WebhookPayload) error {
	s.logger.Info("processing webhook event",
		"event", payload.Event, "transaction_id", payload.TransactionID)

	expectedStatus, ok := eventToTransactionStatus[payload.Event]
	if !ok {
		return fmt.Errorf("unknown webhook event type %q: %w", payload.Event, ErrBadRequest)
	}

	transaction, err := s.orderSvc.FindTransactionByTransactionID(ctx, payload.TransactionID)
	if err != nil {
		return s.fail(payload, err)
	}

	order, err := s.orderSvc.FindOneOrFail(ctx, payload.OrderID)
	if err != nil {
		return s.fail(payload, err)
	}

	if transaction.OrderID != order.ID {
		return s.fail(payload, fmt.Errorf("transaction %s does not belong to order %s: %w",
			payload.TransactionID, payload.OrderID, ErrBadRequest))
	}

	if err := validatePayloadConsistency(payload, transaction); err != nil {
		return s.fail(payload, err)
	}

	if transaction.Status == expectedStatus {
		s.logger.Warn("webhook already processed, skipping",
			"transaction_id", payload.TransactionID, "status", expectedStatus)
		return nil
	}

	if !transitionAllowed(transaction.Status, expectedStatus) {
		s.logger.Warn("regressive status transition dropped",
			"transaction_id", payload.TransactionID,
			"current", transaction.Status, "requested", expectedStatus)
		return nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// compare-and-swap against the status read above: if a concurrent
		// delivery got there first this webhook degrades to a no-op instead
		// of overwriting the winner
		applied, err := s.orderSvc.UpdateTransactionStatusFrom(ctx, tx, payload.TransactionID, transaction.Status, expectedStatus)
		if err != nil {
			return err
		}
		if !applied {
			s.logger.Warn("lost update race to a concurrent delivery, skipping",
				"transaction_id", payload.TransactionID)
			return nil
		}

		// a pending notification never demotes an order that is already confirmed
		if payload.Event == dto.WebhookEventPaymentPending && order.Status == model.OrderStatusConfirmed {
			return nil
		}

		return s.orderSvc.UpdateStatus(ctx, tx, order.ID, eventToOrderStatus[payload.Event])
	})
	if err != nil {
		return s.fail(payload, err)
	}

	s.logger.Info("webhook event processed",
		"event", payload.Event, "transaction_id", payload.TransactionID)
	return nil
}

func (s *webhookServiceImpl) fail(payload *dto.WebhookPayload, err error) error {
	s.logger.Error("error processing webhook event",
		"event", payload.Event,
		"transaction_id", payload.TransactionID,
		"order_id", payload.OrderID,
		"error", err)
	return err
}

// validatePayloadConsistency guards against forged or misrouted webhooks
// corrupting unrelated state: amount (0.01 tolerance), currency and customer
// must all match the stored transaction.
func validatePayloadConsistency(payload *dto.WebhookPayload, transaction *model.Transaction) error {
	diff := payload.Amount.Sub(transaction.Amount).Abs()
	if diff.GreaterThan(amountTolerance) {
		return fmt.Errorf("amount mismatch: payload has %s but transaction has %s: %w",
			payload.Amount, transaction.Amount, ErrBadRequest)
	}

	if payload.Currency != transaction.Currency {
		return fmt.Errorf("currency mismatch: payload has %s but transaction has %s: %w",
			payload.Currency, transaction.Currency, ErrBadRequest)
	}

	if transaction.Order == nil || payload.CustomerID != transaction.Order.CustomerID {
		return fmt.Errorf("customer mismatch for transaction %s: %w",
			payload.TransactionID, ErrBadRequest)
	}

	return nil
}
