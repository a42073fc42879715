package commands

import (
	"errors"
	"fmt"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/errs"
	"ordersaga/internal/pkg/guard"
)

var ErrRestaurantSignalCommandIsNotConstructed = errors.New(
	"RestaurantSignalCommand must be created via NewRestaurantSignalCommand constructor",
)

// RestaurantSignal is an inbound decision of the restaurant about an order.
type RestaurantSignal string

const (
	RestaurantConfirmed RestaurantSignal = "confirmed"
	RestaurantRejected  RestaurantSignal = "rejected"
	RestaurantPreparing RestaurantSignal = "preparing"
	RestaurantReady     RestaurantSignal = "ready"
)

func ParseRestaurantSignal(s string) (RestaurantSignal, error) {
	switch sig := RestaurantSignal(s); sig {
	case RestaurantConfirmed, RestaurantRejected, RestaurantPreparing, RestaurantReady:
		return sig, nil
	default:
		return "", errs.NewValueIsInvalidErrorWithCause("signal", fmt.Errorf("unknown restaurant signal %q", s))
	}
}

// RestaurantSignalCommand applies a restaurant signal. It arrives either
// through the API or as a restaurant.* event; ref is set in the latter case.
type RestaurantSignalCommand struct {
	orderID kernel.UUID
	signal  RestaurantSignal
	reason  string
	ref     *MessageRef

	guard guard.ConstructorGuard
}

func NewRestaurantSignalCommand(
	orderID kernel.UUID,
	signal RestaurantSignal,
	reason string,
	ref *MessageRef,
) (RestaurantSignalCommand, error) {
	if err := orderID.Validate(); err != nil {
		return RestaurantSignalCommand{}, err
	}
	if _, err := ParseRestaurantSignal(string(signal)); err != nil {
		return RestaurantSignalCommand{}, err
	}
	return RestaurantSignalCommand{
		orderID: orderID,
		signal:  signal,
		reason:  reason,
		ref:     ref,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (c RestaurantSignalCommand) Validate() error {
	return c.guard.Validate(ErrRestaurantSignalCommandIsNotConstructed)
}

func (c RestaurantSignalCommand) OrderID() kernel.UUID     { return c.orderID }
func (c RestaurantSignalCommand) Signal() RestaurantSignal { return c.signal }
func (c RestaurantSignalCommand) Reason() string           { return c.reason }
func (c RestaurantSignalCommand) Ref() *MessageRef         { return c.ref }
