package client

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"commerce-billing-engine/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestChargeClient() *simulatedChargeClient {
	return &simulatedChargeClient{
		rng:   rand.New(rand.NewSource(1)),
		sleep: func(time.Duration) {},
	}
}

func TestSimulatedChargeAsyncMethodsStartCreated(t *testing.T) {
	c := newTestChargeClient()
	ctx := context.Background()

	for _, method := range []model.PaymentMethod{model.PaymentMethodPix, model.PaymentMethodSlipbank} {
		resp, err := c.Charge(ctx, &ChargeRequest{
			Amount:        decimal.RequireFromString("49.90"),
			Currency:      "BRL",
			PaymentMethod: method,
		})
		require.NoError(t, err)
		require.Equal(t, ChargeStatusCreated, resp.Status)
		require.True(t, resp.Success)
		require.NotEmpty(t, resp.TransactionID)
	}
}

func TestSimulatedChargeCardOutcomes(t *testing.T) {
	c := newTestChargeClient()
	ctx := context.Background()

	seen := map[ChargeStatus]bool{}
	for i := 0; i < 200; i++ {
		resp, err := c.Charge(ctx, &ChargeRequest{
			Amount:        decimal.RequireFromString("49.90"),
			Currency:      "BRL",
			PaymentMethod: model.PaymentMethodCard,
		})
		require.NoError(t, err)
		seen[resp.Status] = true

		switch resp.Status {
		case ChargeStatusPaid, ChargeStatusProcessing:
			require.True(t, resp.Success)
		case ChargeStatusRefused:
			require.False(t, resp.Success)
		default:
			t.Fatalf("unexpected card charge status %s", resp.Status)
		}
	}

	// 200 draws make all three outcomes certain for any sane seed
	require.True(t, seen[ChargeStatusPaid])
	require.True(t, seen[ChargeStatusRefused])
	require.True(t, seen[ChargeStatusProcessing])
}

func TestSimulatedChargeHonorsCancelledContext(t *testing.T) {
	c := newTestChargeClient()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Charge(ctx, &ChargeRequest{
		Amount:        decimal.RequireFromString("49.90"),
		Currency:      "BRL",
		PaymentMethod: model.PaymentMethodCard,
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFailedChargeResponse(t *testing.T) {
	resp := FailedChargeResponse(errors.New("connection refused"))

	require.False(t, resp.Success)
	require.Equal(t, ChargeStatusFailed, resp.Status)
	require.Contains(t, resp.Message, "connection refused")
	require.NotEmpty(t, resp.TransactionID)
}

func TestGeneratedTransactionIDsAreUnique(t *testing.T) {
	ids := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := generateTransactionID()
		require.Contains(t, id, "PSP_")
		require.False(t, ids[id])
		ids[id] = true
	}
}
