package client

import (
	"context"
	"fmt"
	"time"

	"commerce-billing-engine/internal/config"

	"github.com/braintree-go/braintree-go"
	"github.com/shopspring/decimal"
)

type braintreeChargeClient struct {
	gateway *braintree.Braintree
}

// NewBraintreeChargeClient initializes the Braintree SDK gateway behind the
// ChargeClient contract.
func NewBraintreeChargeClient(cfg *config.Braintree) ChargeClient {
	env := braintree.Sandbox
	if cfg.Environment == "production" {
		env = braintree.Production
	}

	gateway := braintree.New(
		env,
		cfg.MerchantID,
		cfg.PublicKey,
		cfg.PrivateKey,
	)

	return &braintreeChargeClient{
		gateway: gateway,
	}
}

func (c *braintreeChargeClient) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	// Braintree expects NewDecimal(unscaled, scale). For 2 decimal places:
	// 50.00 -> 5000 -> braintree.NewDecimal(5000, 2)
	cents := req.Amount.Mul(decimal.NewFromInt(100)).IntPart()
	btAmount := braintree.NewDecimal(cents, 2)

	started := time.Now()
	tx, err := c.gateway.Transaction().Create(ctx, &braintree.TransactionRequest{
		Type:    "sale",
		Amount:  btAmount,
		OrderId: req.Reference,
		Options: &braintree.TransactionOptions{
			SubmitForSettlement: true, // captures the funds immediately
		},
	})
	if err != nil {
		return nil, fmt.Errorf("transaction creation failed: %w", err)
	}

	status := mapBraintreeStatus(tx.Status)

	return &ChargeResponse{
		Success:        status != ChargeStatusRefused && status != ChargeStatusFailed,
		TransactionID:  tx.Id,
		Status:         status,
		Message:        tx.ProcessorResponseText,
		ProcessingTime: int(time.Since(started) / time.Millisecond),
	}, nil
}

func mapBraintreeStatus(status braintree.TransactionStatus) ChargeStatus {
	switch status {
	case braintree.TransactionStatusSettled, braintree.TransactionStatusSettling,
		braintree.TransactionStatusSubmittedForSettlement:
		return ChargeStatusPaid
	case braintree.TransactionStatusAuthorized, braintree.TransactionStatusSettlementPending:
		return ChargeStatusProcessing
	case braintree.TransactionStatusProcessorDeclined, braintree.TransactionStatusGatewayRejected:
		return ChargeStatusRefused
	case braintree.TransactionStatusAuthorizing:
		return ChargeStatusCreated
	default:
		return ChargeStatusFailed
	}
}
