package handler

import (
	"net/http"

	"commerce-billing-engine/internal/dto"
	"commerce-billing-engine/internal/service"

	"github.com/labstack/echo/v4"
)

type WebhookHandler struct {
	webhookService service.WebhookService
}

func NewWebhookHandler(webhookService service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// PaymentWebhook receives asynchronous payment notifications. Handled events
// answer 200 so the provider stops retrying; rejected payloads answer with the
// mapped error status and the provider keeps the event in its retry queue.
func (h *WebhookHandler) PaymentWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	var payload dto.WebhookPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook payload")
	}

	if err := h.webhookService.ProcessWebhook(ctx, &payload); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "processed"})
}
