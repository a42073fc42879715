package http

import (
	"errors"
	"net/http"

	"ordersaga/internal/core/domain/model/driver"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// statusOf maps an application error to the response status.
func statusOf(err error) int {
	switch {
	case errs.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrObjectNotFound), errors.Is(err, driver.ErrOfferNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInvalidStateTransition),
		errors.Is(err, order.ErrEventAlreadyApplied),
		errors.Is(err, order.ErrAssignmentExhausted),
		errors.Is(err, driver.ErrDriverBusy),
		errors.Is(err, ports.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, ports.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(ctx echo.Context, err error) error {
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.ErrorContext(ctx.Request().Context(), "request failed",
			"method", ctx.Request().Method, "path", ctx.Path(), "error", err)
		msg = http.StatusText(code)
	}
	return ctx.JSON(code, Error{Code: code, Message: msg})
}

func badRequest(ctx echo.Context, msg string) error {
	return ctx.JSON(http.StatusBadRequest, Error{Code: http.StatusBadRequest, Message: msg})
}
