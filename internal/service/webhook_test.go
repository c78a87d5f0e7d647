package service

import (
	"context"
	"testing"

	"commerce-billing-engine/internal/client"
	"commerce-billing-engine/internal/dto"
	"commerce-billing-engine/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// checkoutForWebhook drives a checkout whose charge ends in the given status
// and returns the order plus a payload template matching the stored transaction.
func checkoutForWebhook(t *testing.T, env *testEnv, status client.ChargeStatus, products ...*model.Product) (*model.Order, *dto.WebhookPayload, []string) {
	t.Helper()
	ctx := context.Background()

	customer := env.seedCustomer(t)
	if len(products) == 0 {
		products = []*model.Product{env.seedProduct(t, model.ProductTypeSingle, "49.90", nil)}
	}
	cartID := env.seedClosedCart(t, customer, products...)

	env.charge.status = status
	order, subIDs, err := env.orderSvc.CreateOrder(ctx, customer.ID, cartID, model.PaymentMethodCard)
	require.NoError(t, err)
	require.Len(t, order.Transactions, 1)

	payload := &dto.WebhookPayload{
		Event:         dto.WebhookEventPaymentSuccess,
		TransactionID: order.Transactions[0].TransactionID,
		OrderID:       order.ID,
		CustomerID:    customer.ID,
		Amount:        order.Transactions[0].Amount,
		Currency:      "BRL",
		PaymentMethod: "card",
	}

	return order, payload, subIDs
}

func TestProcessWebhookPaymentSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, payload, _ := checkoutForWebhook(t, env, client.ChargeStatusProcessing)

	require.NoError(t, env.webhookSvc.ProcessWebhook(ctx, payload))

	transaction, err := env.orderSvc.FindTransactionByTransactionID(ctx, payload.TransactionID)
	require.NoError(t, err)
	require.Equal(t, model.TransactionStatusPaid, transaction.Status)

	stored, err := env.orderSvc.FindOneOrFail(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusConfirmed, stored.Status)
}

func TestProcessWebhookUnknownEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, payload, _ := checkoutForWebhook(t, env, client.ChargeStatusProcessing)
	payload.Event = "payment_exploded"

	err := env.webhookSvc.ProcessWebhook(ctx, payload)
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestProcessWebhookUnknownTransactionAndOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, payload, _ := checkoutForWebhook(t, env, client.ChargeStatusProcessing)

	missing := *payload
	missing.TransactionID = "PSP_DOES_NOT_EXIST"
	require.ErrorIs(t, env.webhookSvc.ProcessWebhook(ctx, &missing), ErrNotFound)

	missing = *payload
	missing.OrderID = "no-such-order"
	require.ErrorIs(t, env.webhookSvc.ProcessWebhook(ctx, &missing), ErrNotFound)
}

func TestProcessWebhookCrossReferenceMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, payload, _ := checkoutForWebhook(t, env, client.ChargeStatusProcessing)
	other, _, _ := checkoutForWebhook(t, env, client.ChargeStatusProcessing)

	// transaction from one order pointed at another order
	payload.OrderID = other.ID
	require.ErrorIs(t, env.webhookSvc.ProcessWebhook(ctx, payload), ErrBadRequest)
}

func TestProcessWebhookPayloadConsistency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, payload, _ := checkoutForWebhook(t, env, client.ChargeStatusProcessing)

	t.Run("amount off by more than tolerance", func(t *testing.T) {
		bad := *payload
		bad.Amount = payload.Amount.Add(decimal.RequireFromString("1.00"))
		require.ErrorIs(t, env.webhookSvc.ProcessWebhook(ctx, &bad), ErrBadRequest)
	})

	t.Run("amount within tolerance passes", func(t *testing.T) {
		ok := *payload
		ok.Amount = payload.Amount.Add(decimal.RequireFromString("0.01"))
		require.NoError(t, env.webhookSvc.ProcessWebhook(ctx, &ok))
	})

	t.Run("currency mismatch", func(t *testing.T) {
		bad := *payload
		bad.Currency = "USD"
		require.ErrorIs(t, env.webhookSvc.ProcessWebhook(ctx, &bad), ErrBadRequest)
	})

	t.Run("customer mismatch", func(t *testing.T) {
		bad := *payload
		bad.CustomerID = "someone-else"
		require.ErrorIs(t, env.webhookSvc.ProcessWebhook(ctx, &bad), ErrBadRequest)
	})

	// the rejected payloads must not have mutated anything except the one
	// valid delivery above
	stored, err := env.orderSvc.FindOneOrFail(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusConfirmed, stored.Status)
}

func TestProcessWebhookDuplicateDeliveryIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, payload, _ := checkoutForWebhook(t, env, client.ChargeStatusProcessing)

	require.NoError(t, env.webhookSvc.ProcessWebhook(ctx, payload))
	// provider retries the exact same event
	require.NoError(t, env.webhookSvc.ProcessWebhook(ctx, payload))

	stored, err := env.orderSvc.FindOneOrFail(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusConfirmed, stored.Status)
	require.Len(t, stored.Transactions, 1)
}

func TestProcessWebhookRegressiveTransitionIsDropped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, payload, _ := checkoutForWebhook(t, env, client.ChargeStatusPaid)

	// a late pending event must not demote a settled transaction
	late := *payload
	late.Event = dto.WebhookEventPaymentPending
	require.NoError(t, env.webhookSvc.ProcessWebhook(ctx, &late))

	transaction, err := env.orderSvc.FindTransactionByTransactionID(ctx, payload.TransactionID)
	require.NoError(t, err)
	require.Equal(t, model.TransactionStatusPaid, transaction.Status)

	// nor a late failure
	late.Event = dto.WebhookEventPaymentFailed
	require.NoError(t, env.webhookSvc.ProcessWebhook(ctx, &late))

	stored, err := env.orderSvc.FindOneOrFail(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusConfirmed, stored.Status)
}

func TestProcessWebhookFailedRecoversToPaid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, payload, _ := checkoutForWebhook(t, env, client.ChargeStatusFailed)

	// a retried charge can still settle after an earlier failure
	require.NoError(t, env.webhookSvc.ProcessWebhook(ctx, payload))

	stored, err := env.orderSvc.FindOneOrFail(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusConfirmed, stored.Status)
}

func TestProcessWebhookPaymentFailedCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	product := env.seedSubscriptionProduct(t, "49.90", model.PeriodicityMonthly)
	order, payload, subIDs := checkoutForWebhook(t, env, client.ChargeStatusProcessing, product)
	require.Len(t, subIDs, 1)

	payload.Event = dto.WebhookEventPaymentFailed
	require.NoError(t, env.webhookSvc.ProcessWebhook(ctx, payload))

	transaction, err := env.orderSvc.FindTransactionByTransactionID(ctx, payload.TransactionID)
	require.NoError(t, err)
	require.Equal(t, model.TransactionStatusFailed, transaction.Status)

	stored, err := env.orderSvc.FindOneOrFail(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusFailed, stored.Status)

	sub, err := env.subscriptionSvc.FindOneOrFail(ctx, subIDs[0])
	require.NoError(t, err)
	require.Equal(t, model.SubscriptionStatusPastDue, sub.Status)
	require.Equal(t, model.PeriodStatusFailed, sub.Periods[0].Status)
}

func TestProcessWebhookPendingNeverDemotesConfirmedOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, payload, _ := checkoutForWebhook(t, env, client.ChargeStatusCreated)

	// order confirmed out of band while the transaction is still created
	require.NoError(t, env.orderSvc.UpdateStatus(ctx, nil, order.ID, model.OrderStatusConfirmed))

	payload.Event = dto.WebhookEventPaymentPending
	require.NoError(t, env.webhookSvc.ProcessWebhook(ctx, payload))

	transaction, err := env.orderSvc.FindTransactionByTransactionID(ctx, payload.TransactionID)
	require.NoError(t, err)
	require.Equal(t, model.TransactionStatusProcessing, transaction.Status)

	stored, err := env.orderSvc.FindOneOrFail(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusConfirmed, stored.Status)
}
