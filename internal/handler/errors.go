package handler

import (
	"errors"
	"net/http"

	"commerce-billing-engine/internal/service"

	"github.com/labstack/echo/v4"
)

// httpError translates the service error taxonomy into HTTP status codes.
// Unrecognized errors bubble up to echo's default 500 handling.
func httpError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrBadRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return err
	}
}
