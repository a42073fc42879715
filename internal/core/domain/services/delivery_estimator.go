package services

import (
	"time"

	"ordersaga/internal/core/domain/model/kernel"
)

// DeliveryEstimator predicts when an order reaches the customer.
type DeliveryEstimator struct {
	PrepTime      time.Duration
	SpeedMPS      float64
	HandoverSlack time.Duration
}

func DefaultDeliveryEstimator() DeliveryEstimator {
	return DeliveryEstimator{
		PrepTime:      20 * time.Minute,
		SpeedMPS:      6.5,
		HandoverSlack: 5 * time.Minute,
	}
}

// AtCreation estimates preparation plus the ride from restaurant to customer.
func (e DeliveryEstimator) AtCreation(restaurant, destination kernel.Location, now time.Time) time.Time {
	return now.Add(e.PrepTime + e.travel(restaurant, destination) + e.HandoverSlack)
}

// AtAssignment estimates the ride of the assigned driver to the restaurant
// and on to the customer.
func (e DeliveryEstimator) AtAssignment(driverAt, restaurant, destination kernel.Location, now time.Time) time.Time {
	return now.Add(e.travel(driverAt, restaurant) + e.travel(restaurant, destination) + e.HandoverSlack)
}

func (e DeliveryEstimator) travel(from, to kernel.Location) time.Duration {
	d, err := from.DistanceMeters(to)
	if err != nil || e.SpeedMPS <= 0 {
		return 0
	}
	return time.Duration(d / e.SpeedMPS * float64(time.Second))
}
