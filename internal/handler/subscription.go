package handler

import (
	"net/http"

	"commerce-billing-engine/internal/dto"
	"commerce-billing-engine/internal/middleware"
	"commerce-billing-engine/internal/model"
	"commerce-billing-engine/internal/service"

	"github.com/labstack/echo/v4"
)

type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	billingService      service.RecurringBillingService
}

func NewSubscriptionHandler(subscriptionService service.SubscriptionService, billingService service.RecurringBillingService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		billingService:      billingService,
	}
}

func (h *SubscriptionHandler) GetSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	subscription, err := h.subscriptionService.FindOneOrFail(ctx, c.Param("subscriptionID"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, mapSubscriptionToResponse(subscription))
}

func (h *SubscriptionHandler) ListSubscriptions(c echo.Context) error {
	ctx := c.Request().Context()

	subscriptions, err := h.subscriptionService.FindByCustomer(ctx, middleware.CustomerID(c))
	if err != nil {
		return httpError(err)
	}

	responses := make([]*dto.SubscriptionResponse, 0, len(subscriptions))
	for _, s := range subscriptions {
		responses = append(responses, mapSubscriptionToResponse(s))
	}

	return c.JSON(http.StatusOK, responses)
}

// TriggerBilling runs the recurring-billing batch on demand. The scheduler
// runs the same batch daily; this endpoint exists for operations and testing.
func (h *SubscriptionHandler) TriggerBilling(c echo.Context) error {
	ctx := c.Request().Context()

	results, err := h.billingService.ProcessDueSubscriptions(ctx)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"processed": len(results),
		"results":   results,
	})
}

func mapSubscriptionToResponse(s *model.Subscription) *dto.SubscriptionResponse {
	periods := make([]dto.SubscriptionPeriodResponse, 0, len(s.Periods))
	for _, p := range s.Periods {
		periods = append(periods, dto.SubscriptionPeriodResponse{
			ID:        p.ID,
			StartDate: p.StartDate,
			EndDate:   p.EndDate,
			Status:    p.Status,
			OrderID:   p.OrderID,
			Price:     p.Price,
		})
	}

	return &dto.SubscriptionResponse{
		ID:              s.ID,
		SubscriptionID:  s.SubscriptionID,
		ProductID:       s.ProductID,
		Price:           s.Price,
		Periodicity:     s.Periodicity,
		Status:          s.Status,
		NextBillingDate: s.NextBillingDate,
		Periods:         periods,
	}
}
