package driver

import (
	"errors"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/errs"
)

// Offer is a pending proposal of an order to a driver.
type Offer struct {
	OrderID   kernel.UUID `json:"order_id"`
	DriverID  kernel.UUID `json:"driver_id"`
	OfferedAt time.Time   `json:"offered_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func NewOffer(orderID, driverID kernel.UUID, offeredAt, expiresAt time.Time) (Offer, error) {
	if err := errors.Join(orderID.Validate(), driverID.Validate()); err != nil {
		return Offer{}, err
	}
	if !expiresAt.After(offeredAt) {
		return Offer{}, errs.NewValueIsInvalidError("offer expiry must be after the offer time")
	}
	return Offer{
		OrderID:   orderID,
		DriverID:  driverID,
		OfferedAt: offeredAt.UTC(),
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

func (o Offer) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
