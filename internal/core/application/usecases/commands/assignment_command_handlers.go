package commands

import (
	"context"
	"log/slog"
	"time"

	"ordersaga/internal/core/domain/model/driver"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/services"
	"ordersaga/internal/core/ports"
)

// AcceptAssignmentCommandHandler binds the offered driver to the order and
// refreshes the delivery estimate from the driver's position.
type AcceptAssignmentCommandHandler struct {
	writer    *OrderWriter
	registry  ports.DriverRegistry
	estimator services.DeliveryEstimator
	logger    *slog.Logger
}

func NewAcceptAssignmentCommandHandler(
	writer *OrderWriter,
	registry ports.DriverRegistry,
	estimator services.DeliveryEstimator,
	logger *slog.Logger,
) AcceptAssignmentCommandHandler {
	return AcceptAssignmentCommandHandler{
		writer:    writer,
		registry:  registry,
		estimator: estimator,
		logger:    logger.With("component", "accept_assignment"),
	}
}

func (h AcceptAssignmentCommandHandler) Handle(ctx context.Context, cmd AcceptAssignmentCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	driverAt, hasPosition := h.driverPosition(ctx, cmd)
	_, err := h.writer.Update(ctx, "accept_assignment", cmd.OrderID(), nil, func(o *order.Order, now time.Time) error {
		from := o.RestaurantLocation()
		if hasPosition {
			from = driverAt.Location
		}
		eta := h.estimator.AtAssignment(from, o.RestaurantLocation(), o.DeliveryLocation(), now)
		return o.AcceptAssignment(cmd.DriverID(), eta, now)
	})
	if err != nil {
		return err
	}

	if err = h.registry.Accept(ctx, cmd.OrderID(), cmd.DriverID()); err != nil {
		h.logger.WarnContext(ctx, "registry did not accept offer, load follows driver_assigned",
			"order_id", cmd.OrderID(), "driver_id", cmd.DriverID(), "error", err)
	}
	return nil
}

func (h AcceptAssignmentCommandHandler) driverPosition(ctx context.Context, cmd AcceptAssignmentCommand) (driver.Snapshot, bool) {
	snapshot, err := h.registry.Driver(ctx, cmd.DriverID())
	if err != nil {
		return driver.Snapshot{}, false
	}
	return snapshot, true
}

// RejectAssignmentCommandHandler records a declined offer. The driver is
// excluded for this order and the search continues on
// order.assignment_rejected.
type RejectAssignmentCommandHandler struct {
	writer   *OrderWriter
	registry ports.DriverRegistry
	logger   *slog.Logger
}

func NewRejectAssignmentCommandHandler(
	writer *OrderWriter,
	registry ports.DriverRegistry,
	logger *slog.Logger,
) RejectAssignmentCommandHandler {
	return RejectAssignmentCommandHandler{
		writer:   writer,
		registry: registry,
		logger:   logger.With("component", "reject_assignment"),
	}
}

func (h RejectAssignmentCommandHandler) Handle(ctx context.Context, cmd RejectAssignmentCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	_, err := h.writer.Update(ctx, "reject_assignment", cmd.OrderID(), nil, func(o *order.Order, now time.Time) error {
		return o.RejectAssignment(cmd.DriverID(), cmd.Reason(), now)
	})
	if err != nil {
		return err
	}

	if err = h.registry.Reject(ctx, cmd.OrderID(), cmd.DriverID()); err != nil {
		h.logger.DebugContext(ctx, "registry offer already gone",
			"order_id", cmd.OrderID(), "driver_id", cmd.DriverID(), "error", err)
	}
	return nil
}

// CancelAssignmentCommandHandler releases the assigned driver before pickup.
// The driver's load is released when order.assignment_cancelled is consumed.
type CancelAssignmentCommandHandler struct {
	writer *OrderWriter
}

func NewCancelAssignmentCommandHandler(writer *OrderWriter) CancelAssignmentCommandHandler {
	return CancelAssignmentCommandHandler{writer: writer}
}

func (h CancelAssignmentCommandHandler) Handle(ctx context.Context, cmd CancelAssignmentCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	_, err := h.writer.Update(ctx, "cancel_assignment", cmd.OrderID(), nil, func(o *order.Order, now time.Time) error {
		return o.CancelAssignment(cmd.DriverID(), cmd.Reason(), now)
	})
	return err
}
