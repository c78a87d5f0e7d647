package server

import (
	"context"

	"commerce-billing-engine/internal/config"
	"commerce-billing-engine/internal/handler"
	internalmw "commerce-billing-engine/internal/middleware"
	"commerce-billing-engine/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Services struct {
	Customer     service.CustomerService
	Product      service.ProductService
	Cart         service.CartService
	Order        service.OrderService
	Subscription service.SubscriptionService
	Webhook      service.WebhookService
	Billing      service.RecurringBillingService
}

type Server struct {
	echo *echo.Echo
	cfg  *config.Config

	customerHandler     *handler.CustomerHandler
	productHandler      *handler.ProductHandler
	cartHandler         *handler.CartHandler
	orderHandler        *handler.OrderHandler
	subscriptionHandler *handler.SubscriptionHandler
	webhookHandler      *handler.WebhookHandler
}

func NewServer(cfg *config.Config, svcs Services) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:                e,
		cfg:                 cfg,
		customerHandler:     handler.NewCustomerHandler(svcs.Customer, cfg.JWTSecret),
		productHandler:      handler.NewProductHandler(svcs.Product),
		cartHandler:         handler.NewCartHandler(svcs.Cart),
		orderHandler:        handler.NewOrderHandler(svcs.Order),
		subscriptionHandler: handler.NewSubscriptionHandler(svcs.Subscription, svcs.Billing),
		webhookHandler:      handler.NewWebhookHandler(svcs.Webhook),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	api.POST("/customers", s.customerHandler.CreateCustomer)
	api.GET("/customers/:customerID", s.customerHandler.GetCustomer)

	api.POST("/products", s.productHandler.CreateProduct)
	api.GET("/products", s.productHandler.ListProducts)
	api.GET("/products/:productID", s.productHandler.GetProduct)

	// -------- customer-scoped, behind the bearer token --------
	auth := api.Group("", internalmw.CustomerAuth(s.cfg.JWTSecret))
	auth.POST("/carts", s.cartHandler.OpenCart)
	auth.GET("/carts/open", s.cartHandler.GetOpenCart)
	auth.POST("/carts/items", s.cartHandler.AddItem)
	auth.DELETE("/carts/items/:itemID", s.cartHandler.RemoveItem)
	auth.POST("/carts/:cartID/close", s.cartHandler.CloseCart)
	auth.POST("/carts/:cartID/checkout", s.cartHandler.Checkout)

	auth.GET("/orders", s.orderHandler.ListOrders)
	auth.GET("/orders/:orderID", s.orderHandler.GetOrder)

	auth.GET("/subscriptions", s.subscriptionHandler.ListSubscriptions)
	auth.GET("/subscriptions/:subscriptionID", s.subscriptionHandler.GetSubscription)

	// -------- provider webhooks / operations --------
	api.POST("/webhooks/payment", s.webhookHandler.PaymentWebhook,
		internalmw.WebhookAuth(s.cfg.WebhookSecret))
	api.POST("/billing/run", s.subscriptionHandler.TriggerBilling,
		internalmw.WebhookAuth(s.cfg.WebhookSecret))
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
