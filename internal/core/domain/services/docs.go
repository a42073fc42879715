// Package services provides domain services that span more than one aggregate
// or need policy input the aggregates do not own.
//
// The package includes:
//   - DriverMatcher: filters and ranks driver candidates for an order
//   - RetryPolicy: capped exponential backoff and the stalled-order sweep decision
//   - DeliveryEstimator: estimated delivery time at creation and at assignment
package services
