package handler

import (
	"net/http"

	"commerce-billing-engine/internal/middleware"
	"commerce-billing-engine/internal/service"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.orderService.FindOneOrFail(ctx, c.Param("orderID"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.orderService.FindByCustomer(ctx, middleware.CustomerID(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, orders)
}
