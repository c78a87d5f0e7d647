package handler

import (
	"net/http"

	"commerce-billing-engine/internal/dto"
	"commerce-billing-engine/internal/middleware"
	"commerce-billing-engine/internal/service"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	cartService service.CartService
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

func (h *CartHandler) OpenCart(c echo.Context) error {
	ctx := c.Request().Context()

	cart, err := h.cartService.OpenCart(ctx, middleware.CustomerID(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, cart)
}

func (h *CartHandler) GetOpenCart(c echo.Context) error {
	ctx := c.Request().Context()

	cart, err := h.cartService.GetOpenCart(ctx, middleware.CustomerID(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	cart, err := h.cartService.AddItem(ctx, middleware.CustomerID(c), req.ProductID, req.Quantity)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()

	cart, err := h.cartService.RemoveItem(ctx, middleware.CustomerID(c), c.Param("itemID"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) CloseCart(c echo.Context) error {
	ctx := c.Request().Context()

	cart, err := h.cartService.CloseCart(ctx, c.Param("cartID"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.cartService.Checkout(ctx, c.Param("cartID"), middleware.CustomerID(c), req.PaymentMethod)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, result)
}
