package driver_test

import (
	"sync"
	"testing"
	"time"

	"ordersaga/internal/core/domain/model/driver"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newCandidate(t *testing.T) *driver.Candidate {
	t.Helper()
	c, err := driver.NewCandidate(kernel.NewUUID(), kernel.MustNewLocation(52.52, 13.40), true, 4.5, t0)
	require.NoError(t, err)
	return c
}

func TestNewCandidate(t *testing.T) {
	t.Run("should create available candidate", func(t *testing.T) {
		c := newCandidate(t)

		require.NoError(t, c.Validate())
		assert.True(t, c.IsAvailable())
		assert.Equal(t, 0, c.ActiveDeliveryCount())
		assert.InDelta(t, 4.5, c.AvgRating(), 1e-9)
		_, pending := c.PendingOffer()
		assert.False(t, pending)
	})

	t.Run("should join validation errors", func(t *testing.T) {
		c, err := driver.NewCandidate(kernel.UUID{}, kernel.Location{}, true, 7, t0)

		require.Error(t, err)
		assert.Nil(t, c)
		assert.Contains(t, err.Error(), "UUID must be created")
		assert.Contains(t, err.Error(), "location must be created")
		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	})

	t.Run("nil candidate is not constructed", func(t *testing.T) {
		var c *driver.Candidate

		require.ErrorIs(t, c.Validate(), driver.ErrCandidateIsNotConstructed)
	})
}

func TestCandidate_Heartbeat(t *testing.T) {
	c := newCandidate(t)
	moved := kernel.MustNewLocation(52.50, 13.38)

	applied, err := c.Heartbeat(moved, false, nil, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.False(t, c.IsAvailable())
	assert.Equal(t, t0.Add(time.Minute), c.LastHeartbeatAt())

	applied, err = c.Heartbeat(kernel.MustNewLocation(1, 1), true, nil, t0)
	require.NoError(t, err)
	assert.False(t, applied, "older heartbeats are ignored")
	assert.Equal(t, moved, c.Location())

	assert.True(t, c.IsFresh(t0.Add(6*time.Minute), 5*time.Minute))
	assert.False(t, c.IsFresh(t0.Add(7*time.Minute), 5*time.Minute))
}

func TestCandidate_Offer(t *testing.T) {
	t.Run("should reject a second offer with DriverBusy", func(t *testing.T) {
		c := newCandidate(t)
		o1, o2 := kernel.NewUUID(), kernel.NewUUID()

		_, err := c.Offer(o1, t0, t0.Add(30*time.Second))
		require.NoError(t, err)
		assert.False(t, c.CanTakeDelivery(2))

		_, err = c.Offer(o2, t0, t0.Add(30*time.Second))
		require.ErrorIs(t, err, driver.ErrDriverBusy)

		again, err := c.Offer(o1, t0, t0.Add(30*time.Second))
		require.NoError(t, err)
		assert.True(t, again.OrderID.IsEqual(o1))
	})

	t.Run("should expire and free the driver", func(t *testing.T) {
		c := newCandidate(t)
		orderID := kernel.NewUUID()
		_, err := c.Offer(orderID, t0, t0.Add(30*time.Second))
		require.NoError(t, err)

		_, expired := c.ExpireOffer(t0.Add(29 * time.Second))
		assert.False(t, expired)

		offer, expired := c.ExpireOffer(t0.Add(30 * time.Second))
		require.True(t, expired)
		assert.True(t, offer.OrderID.IsEqual(orderID))
		assert.True(t, c.CanTakeDelivery(2))

		_, err = c.ResolveOffer(orderID)
		require.ErrorIs(t, err, driver.ErrOfferNotFound)
	})

	t.Run("should reject an offer that expires before it is made", func(t *testing.T) {
		c := newCandidate(t)

		_, err := c.Offer(kernel.NewUUID(), t0, t0)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})
}

func TestCandidate_Load(t *testing.T) {
	c := newCandidate(t)
	o1, o2 := kernel.NewUUID(), kernel.NewUUID()

	require.NoError(t, c.TakeDelivery(o1))
	require.NoError(t, c.TakeDelivery(o1))
	assert.Equal(t, 1, c.ActiveDeliveryCount())

	require.NoError(t, c.TakeDelivery(o2))
	assert.False(t, c.CanTakeDelivery(2))

	c.CompleteDelivery(o1)
	assert.Equal(t, 1, c.ActiveDeliveryCount())
	assert.True(t, c.CanTakeDelivery(2))

	snap := c.Snapshot()
	assert.Equal(t, 1, snap.ActiveDeliveryCount)
	assert.True(t, snap.DriverID.IsEqual(c.ID()))
}

// Offers are serialized by the registry; this guards the invariant the
// registry relies on when a caller shares a candidate under a mutex.
func TestCandidate_OfferMutualExclusion(t *testing.T) {
	c := newCandidate(t)
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		granted int
	)

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			if _, err := c.Offer(kernel.NewUUID(), t0, t0.Add(time.Minute)); err == nil {
				granted++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, granted)
}
