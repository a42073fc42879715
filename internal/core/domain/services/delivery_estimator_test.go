package services_test

import (
	"testing"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/services"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryEstimator(t *testing.T) {
	e := services.DeliveryEstimator{PrepTime: 10 * time.Minute, SpeedMPS: 10}
	from := kernel.MustNewLocation(0, 0)
	to := kernel.MustNewLocation(0.1, 0) // ~11.1 km

	eta := e.AtCreation(from, to, t0)

	assert.WithinDuration(t, t0.Add(10*time.Minute+1112*time.Second), eta, 5*time.Second)
	assert.True(t, e.AtAssignment(from, from, to, t0).Before(eta))
}
