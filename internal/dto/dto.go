package dto

import (
	"time"

	"commerce-billing-engine/internal/model"

	"github.com/shopspring/decimal"
)

type WebhookEventType string

const (
	WebhookEventPaymentSuccess WebhookEventType = "payment_success"
	WebhookEventPaymentFailed  WebhookEventType = "payment_failed"
	WebhookEventPaymentPending WebhookEventType = "payment_pending"
)

type WebhookMetadata struct {
	SubscriptionID string `json:"subscription_id,omitempty"`
}

// WebhookPayload is one asynchronous payment-status notification from the
// payment provider. Deliveries may be duplicated or arrive out of order.
type WebhookPayload struct {
	Event         WebhookEventType `json:"event"`
	TransactionID string           `json:"transaction_id"`
	OrderID       string           `json:"order_id"`
	CustomerID    string           `json:"customer_id"`
	Amount        decimal.Decimal  `json:"amount"`
	Currency      string           `json:"currency"`
	PaymentMethod string           `json:"payment_method"`
	Timestamp     string           `json:"timestamp"`
	Metadata      *WebhookMetadata `json:"metadata,omitempty"`
}

type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CustomerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token,omitempty"`
}

type CreateProductRequest struct {
	Name        string            `json:"name"`
	Price       decimal.Decimal   `json:"price"`
	Type        model.ProductType `json:"type"`
	Periodicity string            `json:"periodicity,omitempty"`
}

type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CartItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type CartResponse struct {
	ID     string             `json:"id"`
	Status model.CartStatus   `json:"status"`
	Total  decimal.Decimal    `json:"total"`
	Items  []CartItemResponse `json:"items"`
}

type CheckoutRequest struct {
	PaymentMethod model.PaymentMethod `json:"payment_method"`
}

type TransactionResponse struct {
	ID            string                  `json:"id"`
	TransactionID string                  `json:"transaction_id"`
	Status        model.TransactionStatus `json:"status"`
	Amount        decimal.Decimal         `json:"amount"`
	Currency      string                  `json:"currency"`
	Message       string                  `json:"message,omitempty"`
}

type CheckoutResponse struct {
	OrderID         string                `json:"order_id"`
	OrderStatus     model.OrderStatus     `json:"order_status"`
	OrderTotal      decimal.Decimal       `json:"order_total"`
	PaymentMethod   model.PaymentMethod   `json:"payment_method"`
	Transactions    []TransactionResponse `json:"transactions"`
	SubscriptionIDs []string              `json:"subscription_ids,omitempty"`
}

type SubscriptionPeriodResponse struct {
	ID        string             `json:"id"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`
	Status    model.PeriodStatus `json:"status"`
	OrderID   string             `json:"order_id"`
	Price     decimal.Decimal    `json:"price"`
}

type SubscriptionResponse struct {
	ID              string                       `json:"id"`
	SubscriptionID  string                       `json:"subscription_id"`
	ProductID       string                       `json:"product_id"`
	Price           decimal.Decimal              `json:"price"`
	Periodicity     model.Periodicity            `json:"periodicity"`
	Status          model.SubscriptionStatus     `json:"status"`
	NextBillingDate time.Time                    `json:"next_billing_date"`
	Periods         []SubscriptionPeriodResponse `json:"periods,omitempty"`
}
