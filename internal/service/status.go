package service

import (
	"commerce-billing-engine/internal/client"
	"commerce-billing-engine/internal/model"
)

// Fixed status-mapping tables. These are the contract between the charge
// provider, the order/transaction ledger and the subscription engine; change
// one row and the whole reconciliation story changes with it.

var chargeToOrderStatus = map[client.ChargeStatus]model.OrderStatus{
	client.ChargeStatusPaid:       model.OrderStatusConfirmed,
	client.ChargeStatusRefused:    model.OrderStatusFailed,
	client.ChargeStatusFailed:     model.OrderStatusFailed,
	client.ChargeStatusCreated:    model.OrderStatusPending,
	client.ChargeStatusProcessing: model.OrderStatusPending,
}

var chargeToTransactionStatus = map[client.ChargeStatus]model.TransactionStatus{
	client.ChargeStatusPaid:       model.TransactionStatusPaid,
	client.ChargeStatusRefused:    model.TransactionStatusRefused,
	client.ChargeStatusFailed:     model.TransactionStatusFailed,
	client.ChargeStatusCreated:    model.TransactionStatusCreated,
	client.ChargeStatusProcessing: model.TransactionStatusProcessing,
}

var orderToSubscriptionStatus = map[model.OrderStatus]model.SubscriptionStatus{
	model.OrderStatusConfirmed: model.SubscriptionStatusActive,
	model.OrderStatusPending:   model.SubscriptionStatusPending,
	model.OrderStatusFailed:    model.SubscriptionStatusCanceled,
	model.OrderStatusCancelled: model.SubscriptionStatusCanceled,
}

var orderToPeriodStatus = map[model.OrderStatus]model.PeriodStatus{
	model.OrderStatusConfirmed: model.PeriodStatusPaid,
	model.OrderStatusPending:   model.PeriodStatusPending,
	model.OrderStatusFailed:    model.PeriodStatusFailed,
	model.OrderStatusCancelled: model.PeriodStatusFailed,
}

var transactionToPeriodStatus = map[model.TransactionStatus]model.PeriodStatus{
	model.TransactionStatusPaid:       model.PeriodStatusPaid,
	model.TransactionStatusFailed:     model.PeriodStatusFailed,
	model.TransactionStatusRefused:    model.PeriodStatusFailed,
	model.TransactionStatusCreated:    model.PeriodStatusPending,
	model.TransactionStatusProcessing: model.PeriodStatusPending,
}

var transactionToSubscriptionStatus = map[model.TransactionStatus]model.SubscriptionStatus{
	model.TransactionStatusPaid:       model.SubscriptionStatusActive,
	model.TransactionStatusFailed:     model.SubscriptionStatusPastDue,
	model.TransactionStatusRefused:    model.SubscriptionStatusPastDue,
	model.TransactionStatusCreated:    model.SubscriptionStatusPending,
	model.TransactionStatusProcessing: model.SubscriptionStatusPending,
}

// allowedTransitions is the transition-validity guard for transaction status
// updates coming in through webhooks. PAID and REFUSED are sinks; anything not
// listed here is a stale or regressive delivery and must be dropped as a no-op.
var allowedTransitions = map[model.TransactionStatus][]model.TransactionStatus{
	model.TransactionStatusPaid:    {model.TransactionStatusPaid},
	model.TransactionStatusRefused: {model.TransactionStatusRefused},
	model.TransactionStatusProcessing: {
		model.TransactionStatusProcessing,
		model.TransactionStatusPaid,
		model.TransactionStatusFailed,
		model.TransactionStatusRefused,
	},
	model.TransactionStatusCreated: {
		model.TransactionStatusCreated,
		model.TransactionStatusProcessing,
		model.TransactionStatusPaid,
		model.TransactionStatusFailed,
		model.TransactionStatusRefused,
	},
	model.TransactionStatusFailed: {
		model.TransactionStatusFailed,
		model.TransactionStatusProcessing,
		model.TransactionStatusPaid,
		model.TransactionStatusRefused,
	},
}

func transitionAllowed(from, to model.TransactionStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
