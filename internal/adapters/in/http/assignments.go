package http

import (
	"net/http"

	"ordersaga/internal/core/application/usecases/commands"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// driverAction reads the order from the path and the acting driver from the body.
func driverAction(ctx echo.Context) (kernel.UUID, kernel.UUID, string, error) {
	orderID, err := pathOrderID(ctx)
	if err != nil {
		return kernel.UUID{}, kernel.UUID{}, "", err
	}
	var req DriverAction
	if err = ctx.Bind(&req); err != nil {
		return kernel.UUID{}, kernel.UUID{}, "", errs.NewValueIsInvalidErrorWithCause("request body", err)
	}
	driverID, err := kernel.ParseUUID("driver_id", req.DriverID)
	if err != nil {
		return kernel.UUID{}, kernel.UUID{}, "", err
	}
	return orderID, driverID, req.Reason, nil
}

// AcceptAssignment handles POST /api/v1/orders/{id}/assignment/accept.
//
//	@Summary	Driver accepts the offer
//	@Tags		assignment
//	@Accept		json
//	@Param		id		path	string			true	"Order ID"
//	@Param		body	body	DriverAction	true	"Driver"
//	@Success	204
//	@Failure	400	{object}	Error
//	@Failure	404	{object}	Error
//	@Failure	409	{object}	Error
//	@Router		/api/v1/orders/{id}/assignment/accept [post]
func (s *Server) AcceptAssignment(ctx echo.Context) error {
	orderID, driverID, _, err := driverAction(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	cmd, err := commands.NewAcceptAssignmentCommand(orderID, driverID)
	if err != nil {
		return s.fail(ctx, err)
	}
	if err = s.h.AcceptAssignment.Handle(ctx.Request().Context(), cmd); err != nil {
		return s.fail(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// RejectAssignment handles POST /api/v1/orders/{id}/assignment/reject.
//
//	@Summary	Driver rejects the offer
//	@Tags		assignment
//	@Accept		json
//	@Param		id		path	string			true	"Order ID"
//	@Param		body	body	DriverAction	true	"Driver and reason"
//	@Success	204
//	@Failure	400	{object}	Error
//	@Failure	409	{object}	Error
//	@Router		/api/v1/orders/{id}/assignment/reject [post]
func (s *Server) RejectAssignment(ctx echo.Context) error {
	orderID, driverID, reason, err := driverAction(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	cmd, err := commands.NewRejectAssignmentCommand(orderID, driverID, reason)
	if err != nil {
		return s.fail(ctx, err)
	}
	if err = s.h.RejectAssignment.Handle(ctx.Request().Context(), cmd); err != nil {
		return s.fail(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// CancelAssignment handles POST /api/v1/orders/{id}/assignment/cancel. The
// driver backs out after accepting and the search starts again.
//
//	@Summary	Driver cancels an accepted assignment
//	@Tags		assignment
//	@Accept		json
//	@Param		id		path	string			true	"Order ID"
//	@Param		body	body	DriverAction	true	"Driver and reason"
//	@Success	204
//	@Failure	400	{object}	Error
//	@Failure	409	{object}	Error
//	@Router		/api/v1/orders/{id}/assignment/cancel [post]
func (s *Server) CancelAssignment(ctx echo.Context) error {
	orderID, driverID, reason, err := driverAction(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	cmd, err := commands.NewCancelAssignmentCommand(orderID, driverID, reason)
	if err != nil {
		return s.fail(ctx, err)
	}
	if err = s.h.CancelAssignment.Handle(ctx.Request().Context(), cmd); err != nil {
		return s.fail(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// RetryAssignment handles POST /api/v1/orders/{id}/assignment/retry, the
// manual way out of an exhausted driver search.
//
//	@Summary	Restart the driver search
//	@Tags		assignment
//	@Accept		json
//	@Param		id		path	string			true	"Order ID"
//	@Param		body	body	RetryRequest	false	"Reason"
//	@Success	202
//	@Failure	404	{object}	Error
//	@Failure	409	{object}	Error
//	@Router		/api/v1/orders/{id}/assignment/retry [post]
func (s *Server) RetryAssignment(ctx echo.Context) error {
	orderID, err := pathOrderID(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	var req RetryRequest
	if err = ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if req.Reason == "" {
		req.Reason = "manual retry"
	}

	cmd, err := commands.NewStartReassignmentCommand(orderID, req.Reason, nil)
	if err != nil {
		return s.fail(ctx, err)
	}
	if err = s.h.StartReassignment.Handle(ctx.Request().Context(), cmd); err != nil {
		return s.fail(ctx, err)
	}
	return ctx.NoContent(http.StatusAccepted)
}

// ConfirmPickup handles POST /api/v1/orders/{id}/pickup.
//
//	@Summary	Driver picked the order up
//	@Tags		delivery
//	@Accept		json
//	@Param		id		path	string			true	"Order ID"
//	@Param		body	body	DriverAction	true	"Driver"
//	@Success	204
//	@Failure	400	{object}	Error
//	@Failure	409	{object}	Error
//	@Router		/api/v1/orders/{id}/pickup [post]
func (s *Server) ConfirmPickup(ctx echo.Context) error {
	orderID, driverID, _, err := driverAction(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	cmd, err := commands.NewConfirmPickupCommand(orderID, driverID)
	if err != nil {
		return s.fail(ctx, err)
	}
	if err = s.h.ConfirmPickup.Handle(ctx.Request().Context(), cmd); err != nil {
		return s.fail(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ConfirmDelivery handles POST /api/v1/orders/{id}/deliver.
//
//	@Summary	Driver delivered the order
//	@Tags		delivery
//	@Accept		json
//	@Param		id		path	string			true	"Order ID"
//	@Param		body	body	DriverAction	true	"Driver"
//	@Success	204
//	@Failure	400	{object}	Error
//	@Failure	409	{object}	Error
//	@Router		/api/v1/orders/{id}/deliver [post]
func (s *Server) ConfirmDelivery(ctx echo.Context) error {
	orderID, driverID, _, err := driverAction(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	cmd, err := commands.NewConfirmDeliveryCommand(orderID, driverID)
	if err != nil {
		return s.fail(ctx, err)
	}
	if err = s.h.ConfirmDelivery.Handle(ctx.Request().Context(), cmd); err != nil {
		return s.fail(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}
