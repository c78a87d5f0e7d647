package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductType string

const (
	ProductTypeSingle       ProductType = "single"
	ProductTypeSubscription ProductType = "subscription"
)

type Periodicity string

const (
	PeriodicityMonthly   Periodicity = "monthly"
	PeriodicityQuarterly Periodicity = "quarterly"
	PeriodicityYearly    Periodicity = "yearly"
)

type CartStatus string

const (
	CartStatusOpen   CartStatus = "open"
	CartStatusClosed CartStatus = "closed"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodSlipbank PaymentMethod = "slipbank"
	PaymentMethodPix      PaymentMethod = "pix"
)

type OrderOrigin string

const (
	OrderOriginCart         OrderOrigin = "cart"
	OrderOriginSubscription OrderOrigin = "subscription"
)

type TransactionStatus string

const (
	TransactionStatusCreated    TransactionStatus = "created"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusPaid       TransactionStatus = "paid"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusRefused    TransactionStatus = "refused"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPending  SubscriptionStatus = "PENDING"
	SubscriptionStatusPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
)

type PeriodStatus string

const (
	PeriodStatusPending PeriodStatus = "pending"
	PeriodStatusPaid    PeriodStatus = "paid"
	PeriodStatusFailed  PeriodStatus = "failed"
)

type Customer struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"size:255;not null"`
	Email     string `gorm:"size:255;uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type Product struct {
	ID          string          `gorm:"primaryKey;size:36"`
	Name        string          `gorm:"size:255;not null"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Type        ProductType     `gorm:"size:32;index;not null"`
	Periodicity *Periodicity    `gorm:"size:32"` // required for subscription products, forbidden otherwise
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

type Cart struct {
	ID         string          `gorm:"primaryKey;size:36"`
	CustomerID string          `gorm:"size:36;index;not null"`
	Customer   *Customer       `gorm:"foreignKey:CustomerID"`
	Status     CartStatus      `gorm:"size:16;index;not null;default:open"`
	Total      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Items      []CartItem      `gorm:"foreignKey:CartID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

type CartItem struct {
	ID        string          `gorm:"primaryKey;size:36"`
	CartID    string          `gorm:"size:36;index;not null"`
	ProductID string          `gorm:"size:36;index;not null"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"` // unit price snapshotted when added
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Order is one purchase attempt, either from a cart checkout or from a
// recurring billing cycle. Its status is derived from charge outcomes only.
type Order struct {
	ID            string          `gorm:"primaryKey;size:36"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Status        OrderStatus     `gorm:"size:16;index;not null;default:pending"`
	PaymentMethod PaymentMethod   `gorm:"size:16;not null"`
	Origin        OrderOrigin     `gorm:"size:16;not null;default:cart"`
	CustomerID    string          `gorm:"size:36;index;not null"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID"`
	CartID        *string         `gorm:"size:36;index"` // nil for subscription-origin orders
	Cart          *Cart           `gorm:"foreignKey:CartID"`
	Transactions  []Transaction   `gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

// Transaction records one charge attempt against the payment provider.
// TransactionID is the provider-side id and the webhook idempotency key.
type Transaction struct {
	ID             string            `gorm:"primaryKey;size:36"`
	TransactionID  string            `gorm:"size:64;uniqueIndex;not null"`
	Status         TransactionStatus `gorm:"size:16;index;not null"`
	Amount         decimal.Decimal   `gorm:"type:decimal(10,2);not null"`
	Currency       string            `gorm:"size:3;not null;default:BRL"`
	Message        string            `gorm:"type:text"`
	ProcessingTime int               `gorm:"not null;default:0"` // provider latency in ms
	OrderID        string            `gorm:"size:36;index;not null"`
	Order          *Order            `gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

type Subscription struct {
	ID              string             `gorm:"primaryKey;size:36"`
	SubscriptionID  string             `gorm:"size:64;uniqueIndex;not null"`
	CustomerID      string             `gorm:"size:36;index:idx_sub_customer_status,priority:1;not null"`
	Customer        *Customer          `gorm:"foreignKey:CustomerID"`
	ProductID       string             `gorm:"size:36;index;not null"`
	Product         *Product           `gorm:"foreignKey:ProductID"`
	Price           decimal.Decimal    `gorm:"type:decimal(10,2);not null"` // snapshot, not the live product price
	Periodicity     Periodicity        `gorm:"size:32;not null"`
	Status          SubscriptionStatus `gorm:"size:16;index:idx_sub_customer_status,priority:2;index:idx_sub_status_billing,priority:1;not null;default:PENDING"`
	NextBillingDate time.Time          `gorm:"index:idx_sub_status_billing,priority:2;not null"`
	StartDate       time.Time
	Description     string               `gorm:"size:255"`
	Periods         []SubscriptionPeriod `gorm:"foreignKey:SubscriptionID"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// SubscriptionPeriod is one billing cycle's ledger entry. OrderID links the
// cycle to the order/transaction that funded (or failed to fund) it.
type SubscriptionPeriod struct {
	ID             string          `gorm:"primaryKey;size:36"`
	SubscriptionID string          `gorm:"size:36;index;not null"`
	Subscription   *Subscription   `gorm:"foreignKey:SubscriptionID"`
	StartDate      time.Time       `gorm:"not null"`
	EndDate        time.Time       `gorm:"not null"`
	Status         PeriodStatus    `gorm:"size:16;not null;default:pending"`
	OrderID        string          `gorm:"size:36;index;not null"`
	Order          *Order          `gorm:"foreignKey:OrderID"`
	Price          decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	BilledAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (p *SubscriptionPeriod) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
