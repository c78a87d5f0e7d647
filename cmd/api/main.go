package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"commerce-billing-engine/internal/client"
	"commerce-billing-engine/internal/config"
	"commerce-billing-engine/internal/repository"
	"commerce-billing-engine/internal/scheduler"
	"commerce-billing-engine/internal/server"
	"commerce-billing-engine/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	db := client.InitMysqlClient(cfg.DatabaseURL)

	var chargeClient client.ChargeClient
	switch cfg.Charge.Provider {
	case "braintree":
		chargeClient = client.NewBraintreeChargeClient(&cfg.BrainTree)
	default:
		chargeClient = client.NewSimulatedChargeClient()
	}
	chargeTimeout := time.Duration(cfg.Charge.TimeoutSeconds) * time.Second

	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	periodRepo := repository.NewPeriodRepository(db)

	subscriptionService := service.NewSubscriptionService(logger, subscriptionRepo, periodRepo)
	orderService := service.NewOrderService(
		db, logger, chargeClient, chargeTimeout,
		customerRepo, orderRepo, transactionRepo, cartRepo,
		subscriptionService,
	)
	cartService := service.NewCartService(logger, cartRepo, customerRepo, productRepo, orderService)
	customerService := service.NewCustomerService(customerRepo)
	productService := service.NewProductService(productRepo)
	webhookService := service.NewWebhookService(db, logger, orderService)
	billingService := service.NewRecurringBillingService(
		db, logger, chargeClient, chargeTimeout,
		subscriptionService, orderService,
	)

	sched := scheduler.New(logger, billingService)
	if err := sched.Start(cfg.Billing.Cron); err != nil {
		logger.Error("failed to start billing scheduler", "error", err)
		os.Exit(1)
	}

	srv := server.NewServer(cfg, server.Services{
		Customer:     customerService,
		Product:      productService,
		Cart:         cartService,
		Order:        orderService,
		Subscription: subscriptionService,
		Webhook:      webhookService,
		Billing:      billingService,
	})

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	logger.Info("starting HTTP server", "address", serverAddr, "environment", cfg.Environment.Name)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info("signal received, starting graceful shutdown")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
