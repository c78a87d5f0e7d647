package handler

import (
	"net/http"
	"time"

	"commerce-billing-engine/internal/dto"
	"commerce-billing-engine/internal/middleware"
	"commerce-billing-engine/internal/service"

	"github.com/labstack/echo/v4"
)

const tokenTTL = 30 * 24 * time.Hour

type CustomerHandler struct {
	customerService service.CustomerService
	jwtSecret       string
}

func NewCustomerHandler(customerService service.CustomerService, jwtSecret string) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		jwtSecret:       jwtSecret,
	}
}

func (h *CustomerHandler) CreateCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateCustomerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	customer, err := h.customerService.Create(ctx, &req)
	if err != nil {
		return httpError(err)
	}

	token, err := middleware.GenerateToken(customer.ID, h.jwtSecret, tokenTTL)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, &dto.CustomerResponse{
		ID:    customer.ID,
		Name:  customer.Name,
		Email: customer.Email,
		Token: token,
	})
}

func (h *CustomerHandler) GetCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	customer, err := h.customerService.FindOneOrFail(ctx, c.Param("customerID"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, &dto.CustomerResponse{
		ID:    customer.ID,
		Name:  customer.Name,
		Email: customer.Email,
	})
}
