package commands

import (
	"context"
	"errors"
	"time"

	"ordersaga/internal/core/domain/model/driver"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"
	"ordersaga/internal/pkg/guard"
)

var ErrRecordDriverHeartbeatCommandIsNotConstructed = errors.New(
	"RecordDriverHeartbeatCommand must be created via NewRecordDriverHeartbeatCommand constructor",
)

// RecordDriverHeartbeatCommand refreshes a driver's position and
// availability. A zero at means now.
type RecordDriverHeartbeatCommand struct {
	heartbeat ports.DriverHeartbeat

	guard guard.ConstructorGuard
}

func NewRecordDriverHeartbeatCommand(
	driverID kernel.UUID,
	location kernel.Location,
	isAvailable bool,
	avgRating *float64,
	at time.Time,
) (RecordDriverHeartbeatCommand, error) {
	if err := errors.Join(driverID.Validate(), location.Validate()); err != nil {
		return RecordDriverHeartbeatCommand{}, err
	}
	if avgRating != nil && (*avgRating < driver.MinRating || *avgRating > driver.MaxRating) {
		return RecordDriverHeartbeatCommand{}, errs.NewValueIsOutOfRangeError("avg_rating", *avgRating, driver.MinRating, driver.MaxRating)
	}
	return RecordDriverHeartbeatCommand{
		heartbeat: ports.DriverHeartbeat{
			DriverID:    driverID,
			Location:    location,
			IsAvailable: isAvailable,
			AvgRating:   avgRating,
			At:          at,
		},
		guard: guard.NewConstructorGuard(),
	}, nil
}

func (c RecordDriverHeartbeatCommand) Validate() error {
	return c.guard.Validate(ErrRecordDriverHeartbeatCommandIsNotConstructed)
}

func (c RecordDriverHeartbeatCommand) Heartbeat() ports.DriverHeartbeat { return c.heartbeat }

type RecordDriverHeartbeatCommandHandler struct {
	registry ports.DriverRegistry
	clock    ports.Clock
}

func NewRecordDriverHeartbeatCommandHandler(registry ports.DriverRegistry, clock ports.Clock) RecordDriverHeartbeatCommandHandler {
	return RecordDriverHeartbeatCommandHandler{registry: registry, clock: clock}
}

func (h RecordDriverHeartbeatCommandHandler) Handle(ctx context.Context, cmd RecordDriverHeartbeatCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	hb := cmd.Heartbeat()
	if hb.At.IsZero() {
		hb.At = h.clock.Now()
	}
	return h.registry.Heartbeat(ctx, hb)
}
