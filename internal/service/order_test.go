package service

import (
	"context"
	"testing"
	"time"

	"commerce-billing-engine/internal/client"
	"commerce-billing-engine/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderRequiresClosedCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t)
	product := env.seedProduct(t, model.ProductTypeSingle, "19.90", nil)

	cart, err := env.cartSvc.AddItem(ctx, customer.ID, product.ID, 1)
	require.NoError(t, err)

	_, _, err = env.orderSvc.CreateOrder(ctx, customer.ID, cart.ID, model.PaymentMethodCard)
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestCreateOrderUnknownCustomerAndCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t)
	product := env.seedProduct(t, model.ProductTypeSingle, "19.90", nil)
	cartID := env.seedClosedCart(t, customer, product)

	_, _, err := env.orderSvc.CreateOrder(ctx, "missing-customer", cartID, model.PaymentMethodCard)
	require.ErrorIs(t, err, ErrNotFound)

	_, _, err = env.orderSvc.CreateOrder(ctx, customer.ID, "missing-cart", model.PaymentMethodCard)
	require.ErrorIs(t, err, ErrNotFound)

	other := env.seedCustomer(t)
	_, _, err = env.orderSvc.CreateOrder(ctx, other.ID, cartID, model.PaymentMethodCard)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateOrderPaidCharge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t)
	product := env.seedProduct(t, model.ProductTypeSingle, "49.90", nil)
	cartID := env.seedClosedCart(t, customer, product)

	env.charge.status = client.ChargeStatusPaid

	order, subIDs, err := env.orderSvc.CreateOrder(ctx, customer.ID, cartID, model.PaymentMethodCard)
	require.NoError(t, err)
	require.Empty(t, subIDs)

	require.Equal(t, model.OrderStatusConfirmed, order.Status)
	require.Equal(t, model.OrderOriginCart, order.Origin)
	require.True(t, order.Total.Equal(decimal.RequireFromString("49.90")))
	require.Len(t, order.Transactions, 1)
	require.Equal(t, model.TransactionStatusPaid, order.Transactions[0].Status)
	require.Equal(t, "BRL", order.Transactions[0].Currency)

	stored, err := env.orderSvc.FindOneOrFail(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusConfirmed, stored.Status)
}

func TestCreateOrderRefusedChargeAllowsRetryOnSameOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t)
	product := env.seedProduct(t, model.ProductTypeSingle, "30.00", nil)
	cartID := env.seedClosedCart(t, customer, product)

	env.charge.status = client.ChargeStatusRefused
	first, _, err := env.orderSvc.CreateOrder(ctx, customer.ID, cartID, model.PaymentMethodCard)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusFailed, first.Status)

	// retrying the same cart reuses the order row and appends a new transaction
	env.charge.status = client.ChargeStatusPaid
	second, _, err := env.orderSvc.CreateOrder(ctx, customer.ID, cartID, model.PaymentMethodCard)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, model.OrderStatusConfirmed, second.Status)

	stored, err := env.orderSvc.FindOneOrFail(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, stored.Transactions, 2)
}

func TestCreateOrderRejectsConcurrentDuplicateCharge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t)
	product := env.seedProduct(t, model.ProductTypeSingle, "30.00", nil)
	cartID := env.seedClosedCart(t, customer, product)

	env.charge.status = client.ChargeStatusProcessing
	_, _, err := env.orderSvc.CreateOrder(ctx, customer.ID, cartID, model.PaymentMethodCard)
	require.NoError(t, err)

	// the first charge is still in flight, a second checkout must not double-charge
	_, _, err = env.orderSvc.CreateOrder(ctx, customer.ID, cartID, model.PaymentMethodCard)
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, 1, env.charge.calls)
}

func TestCreateOrderProviderErrorRecordsFailedCharge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t)
	product := env.seedProduct(t, model.ProductTypeSingle, "30.00", nil)
	cartID := env.seedClosedCart(t, customer, product)

	env.charge.err = context.DeadlineExceeded

	order, _, err := env.orderSvc.CreateOrder(ctx, customer.ID, cartID, model.PaymentMethodCard)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusFailed, order.Status)
	require.Len(t, order.Transactions, 1)
	require.Equal(t, model.TransactionStatusFailed, order.Transactions[0].Status)
}

func TestCreateOrderWithSubscriptionItemCreatesSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t)
	product := env.seedSubscriptionProduct(t, "49.90", model.PeriodicityMonthly)
	cartID := env.seedClosedCart(t, customer, product)

	env.charge.status = client.ChargeStatusPaid

	before := time.Now()
	order, subIDs, err := env.orderSvc.CreateOrder(ctx, customer.ID, cartID, model.PaymentMethodCard)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusConfirmed, order.Status)
	require.Len(t, subIDs, 1)

	sub, err := env.subscriptionSvc.FindOneOrFail(ctx, subIDs[0])
	require.NoError(t, err)
	require.Equal(t, model.SubscriptionStatusActive, sub.Status)
	require.Equal(t, model.PeriodicityMonthly, sub.Periodicity)
	require.True(t, sub.Price.Equal(decimal.RequireFromString("49.90")))

	// first cycle is paid and the billing horizon sits one month out
	require.Len(t, sub.Periods, 1)
	require.Equal(t, model.PeriodStatusPaid, sub.Periods[0].Status)
	require.Equal(t, order.ID, sub.Periods[0].OrderID)

	wantNext := before.AddDate(0, 1, 0)
	require.WithinDuration(t, wantNext, sub.NextBillingDate, time.Minute)
}

func TestCreateOrderFailedChargeSkipsSubscriptions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t)
	product := env.seedSubscriptionProduct(t, "49.90", model.PeriodicityMonthly)
	cartID := env.seedClosedCart(t, customer, product)

	env.charge.status = client.ChargeStatusRefused

	order, subIDs, err := env.orderSvc.CreateOrder(ctx, customer.ID, cartID, model.PaymentMethodCard)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusFailed, order.Status)
	require.Empty(t, subIDs)

	subs, err := env.subscriptionSvc.FindByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Empty(t, subs)
}

func TestCreateOrderDuplicateSubscriptionIsSkippedNotFatal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t)
	product := env.seedSubscriptionProduct(t, "49.90", model.PeriodicityMonthly)
	env.seedSubscription(t, customer, product, model.SubscriptionStatusActive, time.Now().AddDate(0, 1, 0))

	cartID := env.seedClosedCart(t, customer, product)
	env.charge.status = client.ChargeStatusPaid

	// the duplicate subscription conflict is logged and skipped, the order
	// itself still goes through
	order, subIDs, err := env.orderSvc.CreateOrder(ctx, customer.ID, cartID, model.PaymentMethodCard)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusConfirmed, order.Status)
	require.Empty(t, subIDs)
}

func TestCreateRecurringOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t)
	amount := decimal.RequireFromString("49.90")

	charge := &client.ChargeResponse{
		Success:       true,
		TransactionID: "PSP_RECUR_1",
		Status:        client.ChargeStatusPaid,
		Message:       "ok",
	}

	order, transaction, err := env.orderSvc.CreateRecurringOrder(ctx, nil, customer.ID, amount, model.PaymentMethodCard, charge)
	require.NoError(t, err)

	require.Equal(t, model.OrderOriginSubscription, order.Origin)
	require.Equal(t, model.OrderStatusConfirmed, order.Status)
	require.Nil(t, order.CartID)
	require.Equal(t, "PSP_RECUR_1", transaction.TransactionID)
	require.Equal(t, model.TransactionStatusPaid, transaction.Status)

	_, _, err = env.orderSvc.CreateRecurringOrder(ctx, nil, "missing", amount, model.PaymentMethodCard, charge)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTransactionStatusCascadesToSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.seedCustomer(t)
	product := env.seedSubscriptionProduct(t, "49.90", model.PeriodicityMonthly)
	cartID := env.seedClosedCart(t, customer, product)

	env.charge.status = client.ChargeStatusProcessing
	order, subIDs, err := env.orderSvc.CreateOrder(ctx, customer.ID, cartID, model.PaymentMethodCard)
	require.NoError(t, err)
	require.Len(t, subIDs, 1)

	transactionID := order.Transactions[0].TransactionID

	updated, err := env.orderSvc.UpdateTransactionStatus(ctx, nil, transactionID, model.TransactionStatusPaid)
	require.NoError(t, err)
	require.Equal(t, model.TransactionStatusPaid, updated.Status)

	sub, err := env.subscriptionSvc.FindOneOrFail(ctx, subIDs[0])
	require.NoError(t, err)
	require.Equal(t, model.SubscriptionStatusActive, sub.Status)
	require.Equal(t, model.PeriodStatusPaid, sub.Periods[0].Status)
}
