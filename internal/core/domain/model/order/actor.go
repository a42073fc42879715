package order

import (
	"fmt"

	"ordersaga/internal/pkg/errs"
)

// Actor identifies who requested a cancellation.
type Actor string

const (
	ActorCustomer   Actor = "customer"
	ActorRestaurant Actor = "restaurant"
	ActorDriver     Actor = "driver"
	ActorSystem     Actor = "system"
)

func ParseActor(s string) (Actor, error) {
	switch a := Actor(s); a {
	case ActorCustomer, ActorRestaurant, ActorDriver, ActorSystem:
		return a, nil
	default:
		return "", errs.NewValueIsInvalidErrorWithCause("cancelled_by", fmt.Errorf("%q is not a known actor", s))
	}
}

func (a Actor) String() string {
	return string(a)
}
