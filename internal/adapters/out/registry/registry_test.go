package registry_test

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ordersaga/internal/adapters/out/registry"
	"ordersaga/internal/core/domain/model/driver"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/services"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0         = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	restaurant = kernel.MustNewLocation(52.5200, 13.4050)
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func newRegistry(t *testing.T) (*registry.Registry, *fixedClock) {
	t.Helper()
	matcher, err := services.NewDriverMatcher(services.DefaultMatchingPolicy())
	require.NoError(t, err)
	clock := &fixedClock{now: t0}
	r := registry.New(registry.Config{Partitions: 4}, matcher, clock, slog.New(slog.DiscardHandler))
	t.Cleanup(r.Stop)
	return r, clock
}

func heartbeat(t *testing.T, r *registry.Registry, id kernel.UUID, lat, lng float64, at time.Time) {
	t.Helper()
	rating := 4.5
	require.NoError(t, r.Heartbeat(t.Context(), ports.DriverHeartbeat{
		DriverID:    id,
		Location:    kernel.MustNewLocation(lat, lng),
		IsAvailable: true,
		AvgRating:   &rating,
		At:          at,
	}))
}

func TestRegistry_FindCandidate(t *testing.T) {
	ctx := t.Context()
	r, _ := newRegistry(t)
	near, far := kernel.NewUUID(), kernel.NewUUID()
	heartbeat(t, r, near, 52.5201, 13.4051, t0)
	heartbeat(t, r, far, 52.5400, 13.4300, t0)

	got, err := r.FindCandidate(ctx, restaurant, nil)
	require.NoError(t, err)
	assert.Equal(t, near, got.DriverID)

	got, err = r.FindCandidate(ctx, restaurant, []kernel.UUID{near})
	require.NoError(t, err)
	assert.Equal(t, far, got.DriverID)

	_, err = r.FindCandidate(ctx, restaurant, []kernel.UUID{near, far})
	require.ErrorIs(t, err, driver.ErrNoEligibleDriver)
}

func TestRegistry_Offer(t *testing.T) {
	ctx := t.Context()
	r, clock := newRegistry(t)
	d := kernel.NewUUID()
	heartbeat(t, r, d, 52.5201, 13.4051, t0)
	o1, o2 := kernel.NewUUID(), kernel.NewUUID()

	offer, err := r.Offer(ctx, o1, d, t0.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, o1, offer.OrderID)

	again, err := r.Offer(ctx, o1, d, t0.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, offer, again)

	_, err = r.Offer(ctx, o2, d, t0.Add(30*time.Second))
	require.ErrorIs(t, err, driver.ErrDriverBusy)

	_, err = r.FindCandidate(ctx, restaurant, nil)
	require.ErrorIs(t, err, driver.ErrNoEligibleDriver)

	require.NoError(t, r.Reject(ctx, o1, d))
	_, err = r.Offer(ctx, o2, d, t0.Add(30*time.Second))
	require.NoError(t, err)

	clock.now = t0.Add(31 * time.Second)
	expired, err := r.ExpireOffers(ctx, clock.now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, o2, expired[0].OrderID)

	_, err = r.Offer(ctx, o1, kernel.NewUUID(), t0.Add(time.Minute))
	require.ErrorIs(t, err, errs.ErrObjectNotFound)
}

func TestRegistry_ConcurrentOffersToOneDriver(t *testing.T) {
	ctx := t.Context()
	r, _ := newRegistry(t)
	d := kernel.NewUUID()
	heartbeat(t, r, d, 52.5201, 13.4051, t0)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
		busy atomic.Int32
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Offer(ctx, kernel.NewUUID(), d, t0.Add(30*time.Second))
			switch {
			case err == nil:
				wins.Add(1)
			case assert.ErrorIs(t, err, driver.ErrDriverBusy):
				busy.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(49), busy.Load())
}

func TestRegistry_DeliveryLoad(t *testing.T) {
	ctx := t.Context()
	r, _ := newRegistry(t)
	d := kernel.NewUUID()
	heartbeat(t, r, d, 52.5201, 13.4051, t0)
	o1, o2 := kernel.NewUUID(), kernel.NewUUID()

	_, err := r.Offer(ctx, o1, d, t0.Add(30*time.Second))
	require.NoError(t, err)
	require.NoError(t, r.Accept(ctx, o1, d))
	require.NoError(t, r.TrackDelivery(ctx, d, o1))
	require.NoError(t, r.TrackDelivery(ctx, d, o2))

	snapshot, err := r.Driver(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.ActiveDeliveryCount)
	assert.False(t, snapshot.HasPendingOffer)

	_, err = r.FindCandidate(ctx, restaurant, nil)
	require.ErrorIs(t, err, driver.ErrNoEligibleDriver, "driver at the concurrency cap")

	require.NoError(t, r.ReleaseDelivery(ctx, d, o1))
	require.NoError(t, r.ReleaseDelivery(ctx, d, o1))
	snapshot, err = r.Driver(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.ActiveDeliveryCount)

	require.NoError(t, r.TrackDelivery(ctx, kernel.NewUUID(), o1), "unknown drivers are ignored")
}

func TestRegistry_PurgeAndAvailable(t *testing.T) {
	ctx := t.Context()
	r, _ := newRegistry(t)
	stale, busy, fresh := kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID()
	heartbeat(t, r, stale, 52.5201, 13.4051, t0)
	heartbeat(t, r, busy, 52.5202, 13.4052, t0)
	heartbeat(t, r, fresh, 52.5203, 13.4053, t0.Add(10*time.Minute))
	require.NoError(t, r.TrackDelivery(ctx, busy, kernel.NewUUID()))

	now := t0.Add(11 * time.Minute)
	available, err := r.Available(ctx, now)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, fresh, available[0].DriverID)

	purged, err := r.PurgeStale(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = r.Driver(ctx, stale)
	require.ErrorIs(t, err, errs.ErrObjectNotFound)
	_, err = r.Driver(ctx, busy)
	require.NoError(t, err)
}

func TestRegistry_Stop(t *testing.T) {
	r, _ := newRegistry(t)
	r.Stop()

	err := r.Heartbeat(t.Context(), ports.DriverHeartbeat{
		DriverID: kernel.NewUUID(), Location: restaurant, IsAvailable: true, At: t0,
	})
	require.ErrorIs(t, err, registry.ErrRegistryStopped)
}
