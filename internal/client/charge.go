package client

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"commerce-billing-engine/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ChargeStatus string

const (
	ChargeStatusCreated    ChargeStatus = "created"
	ChargeStatusProcessing ChargeStatus = "processing"
	ChargeStatusPaid       ChargeStatus = "paid"
	ChargeStatusRefused    ChargeStatus = "refused"
	ChargeStatusFailed     ChargeStatus = "failed"
)

type ChargeRequest struct {
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod model.PaymentMethod
	Reference     string
	CustomerEmail string
	CustomerName  string
}

type ChargeResponse struct {
	Success        bool
	TransactionID  string
	Status         ChargeStatus
	Message        string
	ProcessingTime int // milliseconds
}

// ChargeClient is the payment-provider capability. Production wires the
// braintree implementation; the simulated one stands in for a real PSP.
type ChargeClient interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error)
}

// --- SIMULATED PROVIDER ---

type simulatedChargeClient struct {
	rng *rand.Rand
	// sleep is swapped out in tests to avoid real latency
	sleep func(time.Duration)
}

func NewSimulatedChargeClient() ChargeClient {
	return &simulatedChargeClient{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: time.Sleep,
	}
}

func (c *simulatedChargeClient) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	delay := time.Duration(c.rng.Intn(400)+100) * time.Millisecond
	c.sleep(delay)

	status := c.chargeStatus(req.PaymentMethod)

	return &ChargeResponse{
		Success:        status != ChargeStatusRefused && status != ChargeStatusFailed,
		TransactionID:  generateTransactionID(),
		Status:         status,
		Message:        statusMessage(status),
		ProcessingTime: int(delay / time.Millisecond),
	}, nil
}

func (c *simulatedChargeClient) chargeStatus(method model.PaymentMethod) ChargeStatus {
	// pix and slipbank settle asynchronously, the charge starts out created
	if method == model.PaymentMethodPix || method == model.PaymentMethodSlipbank {
		return ChargeStatusCreated
	}

	if method == model.PaymentMethodCard {
		switch r := c.rng.Float64(); {
		case r < 0.6:
			return ChargeStatusPaid
		case r < 0.8:
			return ChargeStatusRefused
		default:
			return ChargeStatusProcessing
		}
	}

	return ChargeStatusFailed
}

func statusMessage(status ChargeStatus) string {
	switch status {
	case ChargeStatusCreated:
		return "Charge created, awaiting payment"
	case ChargeStatusPaid:
		return "Payment processed successfully"
	case ChargeStatusRefused:
		return "Payment was refused by the payment provider"
	case ChargeStatusProcessing:
		return "Payment is being processed"
	case ChargeStatusFailed:
		return "Payment failed"
	}
	return "Unknown status"
}

func generateTransactionID() string {
	return "PSP_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// FailedChargeResponse synthesizes the response recorded when the provider
// call itself errors or times out.
func FailedChargeResponse(err error) *ChargeResponse {
	return &ChargeResponse{
		Success:       false,
		TransactionID: generateTransactionID(),
		Status:        ChargeStatusFailed,
		Message:       fmt.Sprintf("charge provider error: %v", err),
	}
}
