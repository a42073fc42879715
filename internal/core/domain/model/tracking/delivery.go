package tracking

import (
	"fmt"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
)

// Delivery is the tracker's own projection of an order, built from order
// events. It holds just enough to authorize samples and the mirrored position.
type Delivery struct {
	OrderID  kernel.UUID
	DriverID *kernel.UUID
	Status   order.Status
	// Version is the sequence number of the last order event applied.
	Version  int64
	Position *Position
}

func NewDelivery(orderID kernel.UUID) *Delivery {
	return &Delivery{OrderID: orderID, Status: order.Unknown}
}

// Apply folds an order event into the projection. Events at or below the
// current version are ignored and reported as false.
func (d *Delivery) Apply(env order.Envelope) bool {
	if env.SequenceNo <= d.Version {
		return false
	}
	switch env.EventType { //nolint:exhaustive // only driver and transit changes matter
	case order.EventDriverAssigned:
		driverID := env.Payload.DriverID
		d.DriverID = &driverID
		d.Status = order.DriverAssigned
	case order.EventPickedUp:
		d.Status = order.PickedUp
	case order.EventDelivered:
		d.Status = order.Delivered
	case order.EventAssignmentCancelled:
		d.DriverID = nil
		d.Status = order.Reassigning
	case order.EventOrderCancelled:
		d.Status = order.Cancelled
	}
	d.Version = env.SequenceNo
	return true
}

// Authorize accepts samples only for an in-transit order from its driver.
func (d *Delivery) Authorize(s Sample) error {
	if !d.Status.InTransit() {
		return fmt.Errorf("%w: order %s is %s", ErrStaleOrUnauthorizedSample, d.OrderID, d.Status)
	}
	if d.DriverID == nil || !d.DriverID.IsEqual(s.DriverID) {
		return fmt.Errorf("%w: driver %s is not assigned to order %s", ErrStaleOrUnauthorizedSample, s.DriverID, d.OrderID)
	}
	return nil
}

// Mirror moves the current position to s when s is newer than it. It reports
// whether the position changed.
func (d *Delivery) Mirror(s Sample) bool {
	if d.Position != nil && !s.RecordedAt.After(d.Position.RecordedAt) {
		return false
	}
	d.Position = &Position{OrderID: s.OrderID, Location: s.Location, RecordedAt: s.RecordedAt}
	return true
}
