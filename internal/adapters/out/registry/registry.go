// Package registry is the in-memory Driver Registry.
//
// Drivers are partitioned by ID. Each partition is owned by one goroutine
// that applies every change to its drivers in arrival order, so a driver has
// exactly one writer and no lock is shared between partitions. Queries that
// span drivers ask every partition for snapshots and rank them with the
// DriverMatcher.
package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ordersaga/internal/core/domain/model/driver"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/services"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"
)

var ErrRegistryStopped = errors.New("driver registry is stopped")

type Config struct {
	Partitions int
}

type Registry struct {
	matcher services.DriverMatcher
	clock   ports.Clock
	logger  *slog.Logger

	partitions []*partition
	stop       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

var _ ports.DriverRegistry = (*Registry)(nil)

type partition struct {
	drivers map[kernel.UUID]*driver.Candidate
	inbox   chan func(p *partition)
}

// New starts the partition goroutines. Stop releases them.
func New(cfg Config, matcher services.DriverMatcher, clock ports.Clock, logger *slog.Logger) *Registry {
	if cfg.Partitions < 1 {
		cfg.Partitions = 1
	}
	r := &Registry{
		matcher:    matcher,
		clock:      clock,
		logger:     logger.With("component", "driver_registry"),
		partitions: make([]*partition, cfg.Partitions),
		stop:       make(chan struct{}),
	}
	for i := range r.partitions {
		p := &partition{
			drivers: make(map[kernel.UUID]*driver.Candidate),
			inbox:   make(chan func(p *partition)),
		}
		r.partitions[i] = p
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			p.run(r.stop)
		}()
	}
	return r
}

func (p *partition) run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case fn := <-p.inbox:
			fn(p)
		}
	}
}

func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
}

// exec runs fn on the goroutine owning p and waits for it.
func (r *Registry) exec(ctx context.Context, p *partition, fn func(p *partition)) error {
	done := make(chan struct{})
	task := func(p *partition) {
		defer close(done)
		fn(p)
	}
	select {
	case p.inbox <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stop:
		return ErrRegistryStopped
	}
	select {
	case <-done:
		return nil
	case <-r.stop:
		return ErrRegistryStopped
	}
}

func (r *Registry) owner(driverID kernel.UUID) *partition {
	h := fnv.New32a()
	b := driverID.Bytes()
	_, _ = h.Write(b[:])
	return r.partitions[h.Sum32()%uint32(len(r.partitions))]
}

// withDriver runs fn on driverID's candidate. Unknown drivers are reported as
// errs.ObjectNotFoundError.
func (r *Registry) withDriver(ctx context.Context, driverID kernel.UUID, fn func(c *driver.Candidate) error) error {
	if err := driverID.Validate(); err != nil {
		return err
	}
	var result error
	err := r.exec(ctx, r.owner(driverID), func(p *partition) {
		c, ok := p.drivers[driverID]
		if !ok {
			result = errs.NewObjectNotFoundError("driver", driverID.String())
			return
		}
		result = fn(c)
	})
	return cmp.Or(err, result)
}

// each runs fn on every partition, one at a time.
func (r *Registry) each(ctx context.Context, fn func(p *partition)) error {
	for _, p := range r.partitions {
		if err := r.exec(ctx, p, fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Heartbeat(ctx context.Context, hb ports.DriverHeartbeat) error {
	if err := hb.DriverID.Validate(); err != nil {
		return err
	}
	at := hb.At
	if at.IsZero() {
		at = r.clock.Now()
	}

	var result error
	err := r.exec(ctx, r.owner(hb.DriverID), func(p *partition) {
		if c, ok := p.drivers[hb.DriverID]; ok {
			_, result = c.Heartbeat(hb.Location, hb.IsAvailable, hb.AvgRating, at)
			return
		}
		rating := driver.MinRating
		if hb.AvgRating != nil {
			rating = *hb.AvgRating
		}
		c, newErr := driver.NewCandidate(hb.DriverID, hb.Location, hb.IsAvailable, rating, at)
		if newErr != nil {
			result = newErr
			return
		}
		p.drivers[hb.DriverID] = c
	})
	return cmp.Or(err, result)
}

func (r *Registry) FindCandidate(
	ctx context.Context,
	restaurant kernel.Location,
	excluded []kernel.UUID,
) (driver.Snapshot, error) {
	snapshots, err := r.snapshots(ctx)
	if err != nil {
		return driver.Snapshot{}, err
	}
	best, err := r.matcher.Match(restaurant, snapshots, excluded, r.clock.Now())
	if err != nil {
		return driver.Snapshot{}, err
	}
	r.logger.DebugContext(ctx, "candidate found", "driver_id", best.DriverID,
		"distance_m", best.DistanceMeters, "score", best.Score, "eligible_pool", len(snapshots))
	return best.Snapshot, nil
}

// Offer reserves the driver. The check runs on the driver's own partition,
// so of two concurrent offers to one driver exactly one wins.
func (r *Registry) Offer(ctx context.Context, orderID, driverID kernel.UUID, expiresAt time.Time) (driver.Offer, error) {
	var offer driver.Offer
	err := r.withDriver(ctx, driverID, func(c *driver.Candidate) error {
		if pending, ok := c.PendingOffer(); ok && pending.OrderID.IsEqual(orderID) {
			offer = pending
			return nil
		}
		if !c.CanTakeDelivery(r.matcher.Policy().MaxActiveDeliveries) {
			return fmt.Errorf("%w: driver %s cannot take order %s", driver.ErrDriverBusy, driverID, orderID)
		}
		var offerErr error
		offer, offerErr = c.Offer(orderID, r.clock.Now(), expiresAt)
		return offerErr
	})
	return offer, err
}

// Accept binds the order to the driver. The delivery is counted even when the
// registry already expired the offer: the order holds the assignment.
func (r *Registry) Accept(ctx context.Context, orderID, driverID kernel.UUID) error {
	return r.withDriver(ctx, driverID, func(c *driver.Candidate) error {
		return c.TakeDelivery(orderID)
	})
}

func (r *Registry) Reject(ctx context.Context, orderID, driverID kernel.UUID) error {
	return r.withDriver(ctx, driverID, func(c *driver.Candidate) error {
		_, err := c.ResolveOffer(orderID)
		return err
	})
}

func (r *Registry) ExpireOffers(ctx context.Context, now time.Time) ([]driver.Offer, error) {
	var expired []driver.Offer
	err := r.each(ctx, func(p *partition) {
		for _, c := range p.drivers {
			if offer, ok := c.ExpireOffer(now); ok {
				expired = append(expired, offer)
			}
		}
	})
	return expired, err
}

func (r *Registry) PurgeStale(ctx context.Context, now time.Time) (int, error) {
	window := r.matcher.Policy().FreshnessWindow
	purged := 0
	err := r.each(ctx, func(p *partition) {
		for id, c := range p.drivers {
			_, pending := c.PendingOffer()
			if c.IsFresh(now, window) || pending || c.ActiveDeliveryCount() > 0 {
				continue
			}
			delete(p.drivers, id)
			purged++
		}
	})
	if purged > 0 {
		r.logger.InfoContext(ctx, "stale drivers purged", "count", purged)
	}
	return purged, err
}

// TrackDelivery is idempotent. A driver the registry does not know is not an
// error: it comes back with its next heartbeat.
func (r *Registry) TrackDelivery(ctx context.Context, driverID, orderID kernel.UUID) error {
	err := r.withDriver(ctx, driverID, func(c *driver.Candidate) error {
		return c.TakeDelivery(orderID)
	})
	if errors.Is(err, errs.ErrObjectNotFound) {
		return nil
	}
	return err
}

func (r *Registry) ReleaseDelivery(ctx context.Context, driverID, orderID kernel.UUID) error {
	err := r.withDriver(ctx, driverID, func(c *driver.Candidate) error {
		c.CompleteDelivery(orderID)
		return nil
	})
	if errors.Is(err, errs.ErrObjectNotFound) {
		return nil
	}
	return err
}

func (r *Registry) Driver(ctx context.Context, driverID kernel.UUID) (driver.Snapshot, error) {
	var snapshot driver.Snapshot
	err := r.withDriver(ctx, driverID, func(c *driver.Candidate) error {
		snapshot = c.Snapshot()
		return nil
	})
	return snapshot, err
}

// Available lists fresh, available drivers, most recent heartbeat first.
func (r *Registry) Available(ctx context.Context, now time.Time) ([]driver.Snapshot, error) {
	window := r.matcher.Policy().FreshnessWindow
	snapshots, err := r.snapshots(ctx)
	if err != nil {
		return nil, err
	}
	available := slices.DeleteFunc(snapshots, func(s driver.Snapshot) bool {
		return !s.IsAvailable || now.Sub(s.LastHeartbeatAt) > window
	})
	slices.SortFunc(available, func(a, b driver.Snapshot) int {
		return b.LastHeartbeatAt.Compare(a.LastHeartbeatAt)
	})
	return available, nil
}

func (r *Registry) snapshots(ctx context.Context) ([]driver.Snapshot, error) {
	var snapshots []driver.Snapshot
	err := r.each(ctx, func(p *partition) {
		for _, c := range p.drivers {
			snapshots = append(snapshots, c.Snapshot())
		}
	})
	return snapshots, err
}
