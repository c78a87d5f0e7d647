package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"commerce-billing-engine/internal/client"
	"commerce-billing-engine/internal/model"
	"commerce-billing-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeChargeClient answers every charge with a scripted status so tests can
// drive each reconciliation path deterministically.
type fakeChargeClient struct {
	status client.ChargeStatus
	err    error
	calls  int
}

func (f *fakeChargeClient) Charge(ctx context.Context, req *client.ChargeRequest) (*client.ChargeResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &client.ChargeResponse{
		Success:        f.status == client.ChargeStatusPaid || f.status == client.ChargeStatusCreated || f.status == client.ChargeStatusProcessing,
		TransactionID:  fmt.Sprintf("PSP_TEST_%d_%s", f.calls, uuid.NewString()[:8]),
		Status:         f.status,
		Message:        "scripted charge",
		ProcessingTime: 5,
	}, nil
}

type testEnv struct {
	db     *gorm.DB
	charge *fakeChargeClient

	customerRepo     repository.CustomerRepository
	productRepo      repository.ProductRepository
	cartRepo         repository.CartRepository
	orderRepo        repository.OrderRepository
	transactionRepo  repository.TransactionRepository
	subscriptionRepo repository.SubscriptionRepository
	periodRepo       repository.PeriodRepository

	customerSvc     CustomerService
	productSvc      ProductService
	cartSvc         CartService
	orderSvc        OrderService
	subscriptionSvc SubscriptionService
	webhookSvc      WebhookService
	billingSvc      RecurringBillingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps the shared in-memory database alive and
	// serializes access, sqlite has no row locking
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, client.AutoMigrate(db))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	charge := &fakeChargeClient{status: client.ChargeStatusPaid}

	env := &testEnv{
		db:               db,
		charge:           charge,
		customerRepo:     repository.NewCustomerRepository(db),
		productRepo:      repository.NewProductRepository(db),
		cartRepo:         repository.NewCartRepository(db),
		orderRepo:        repository.NewOrderRepository(db),
		transactionRepo:  repository.NewTransactionRepository(db),
		subscriptionRepo: repository.NewSubscriptionRepository(db),
		periodRepo:       repository.NewPeriodRepository(db),
	}

	env.subscriptionSvc = NewSubscriptionService(log, env.subscriptionRepo, env.periodRepo)
	env.orderSvc = NewOrderService(
		db, log, charge, 5*time.Second,
		env.customerRepo, env.orderRepo, env.transactionRepo, env.cartRepo,
		env.subscriptionSvc,
	)
	env.cartSvc = NewCartService(log, env.cartRepo, env.customerRepo, env.productRepo, env.orderSvc)
	env.customerSvc = NewCustomerService(env.customerRepo)
	env.productSvc = NewProductService(env.productRepo)
	env.webhookSvc = NewWebhookService(db, log, env.orderSvc)
	env.billingSvc = NewRecurringBillingService(
		db, log, charge, 5*time.Second,
		env.subscriptionSvc, env.orderSvc,
	)

	return env
}

func (e *testEnv) seedCustomer(t *testing.T) *model.Customer {
	t.Helper()
	customer := &model.Customer{
		Name:  "Maria Silva",
		Email: fmt.Sprintf("maria+%s@example.com", uuid.NewString()[:8]),
	}
	require.NoError(t, e.customerRepo.Create(context.Background(), customer))
	return customer
}

func (e *testEnv) seedProduct(t *testing.T, productType model.ProductType, price string, periodicity *model.Periodicity) *model.Product {
	t.Helper()
	product := &model.Product{
		Name:        "Produto " + uuid.NewString()[:8],
		Price:       decimal.RequireFromString(price),
		Type:        productType,
		Periodicity: periodicity,
	}
	require.NoError(t, e.productRepo.Create(context.Background(), product))
	return product
}

func (e *testEnv) seedSubscriptionProduct(t *testing.T, price string, periodicity model.Periodicity) *model.Product {
	t.Helper()
	return e.seedProduct(t, model.ProductTypeSubscription, price, &periodicity)
}

// seedClosedCart builds a cart through the cart service and closes it, ready
// for checkout.
func (e *testEnv) seedClosedCart(t *testing.T, customer *model.Customer, products ...*model.Product) string {
	t.Helper()
	ctx := context.Background()

	var cartID string
	for _, p := range products {
		cart, err := e.cartSvc.AddItem(ctx, customer.ID, p.ID, 1)
		require.NoError(t, err)
		cartID = cart.ID
	}

	_, err := e.cartSvc.CloseCart(ctx, cartID)
	require.NoError(t, err)
	return cartID
}

func (e *testEnv) seedSubscription(t *testing.T, customer *model.Customer, product *model.Product, status model.SubscriptionStatus, nextBilling time.Time) *model.Subscription {
	t.Helper()
	sub := &model.Subscription{
		SubscriptionID:  generateSubscriptionID(),
		CustomerID:      customer.ID,
		ProductID:       product.ID,
		Price:           product.Price,
		Periodicity:     model.PeriodicityMonthly,
		Status:          status,
		NextBillingDate: nextBilling,
		StartDate:       time.Now().AddDate(0, -1, 0),
		Description:     "Assinatura " + product.Name,
	}
	if product.Periodicity != nil {
		sub.Periodicity = *product.Periodicity
	}
	require.NoError(t, e.subscriptionRepo.Create(context.Background(), nil, sub))
	return sub
}
