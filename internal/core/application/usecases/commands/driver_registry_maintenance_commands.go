package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/guard"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrExpireDriverOffersCommandIsNotConstructed = errors.New(
		"ExpireDriverOffersCommand must be created via NewExpireDriverOffersCommand constructor",
	)
	ErrPurgeStaleDriversCommandIsNotConstructed = errors.New(
		"PurgeStaleDriversCommand must be created via NewPurgeStaleDriversCommand constructor",
	)
)

// ExpireDriverOffersCommand clears lapsed offers and announces them.
type ExpireDriverOffersCommand struct {
	guard guard.ConstructorGuard
}

func NewExpireDriverOffersCommand() ExpireDriverOffersCommand {
	return ExpireDriverOffersCommand{guard: guard.NewConstructorGuard()}
}

func (c ExpireDriverOffersCommand) Validate() error {
	return c.guard.Validate(ErrExpireDriverOffersCommandIsNotConstructed)
}

// ExpireDriverOffersCommandHandler publishes driver.offer_expired for every
// lapsed offer, retrying the publish with backoff. An announcement that is
// lost anyway is recovered by RequestDriver, which times out expired offers
// it finds on the order.
type ExpireDriverOffersCommandHandler struct {
	registry  ports.DriverRegistry
	publisher ports.EventPublisher
	clock     ports.Clock
	logger    *slog.Logger
	maxWait   time.Duration
}

func NewExpireDriverOffersCommandHandler(
	registry ports.DriverRegistry,
	publisher ports.EventPublisher,
	clock ports.Clock,
	logger *slog.Logger,
) ExpireDriverOffersCommandHandler {
	return ExpireDriverOffersCommandHandler{
		registry:  registry,
		publisher: publisher,
		clock:     clock,
		logger:    logger.With("component", "offer_expiry"),
		maxWait:   10 * time.Second,
	}
}

func (h ExpireDriverOffersCommandHandler) Handle(ctx context.Context, cmd ExpireDriverOffersCommand) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	offers, err := h.registry.ExpireOffers(ctx, h.clock.Now())
	if err != nil {
		return 0, err
	}

	var errList []error
	for _, offer := range offers {
		msg, msgErr := offerExpiredMessage(DriverOfferExpired{
			OrderID:   offer.OrderID,
			DriverID:  offer.DriverID,
			ExpiresAt: offer.ExpiresAt,
		})
		if msgErr != nil {
			errList = append(errList, msgErr)
			continue
		}

		policy := backoff.NewExponentialBackOff()
		policy.MaxElapsedTime = h.maxWait
		pubErr := backoff.Retry(func() error {
			return h.publisher.Publish(ctx, msg)
		}, backoff.WithContext(policy, ctx))
		if pubErr != nil {
			h.logger.WarnContext(ctx, "offer expiry not announced", "order_id", offer.OrderID,
				"driver_id", offer.DriverID, "error", pubErr)
			errList = append(errList, pubErr)
			continue
		}
		h.logger.InfoContext(ctx, "driver offer expired", "order_id", offer.OrderID, "driver_id", offer.DriverID)
	}
	return len(offers), errors.Join(errList...)
}

// PurgeStaleDriversCommand drops drivers that stopped sending heartbeats.
type PurgeStaleDriversCommand struct {
	guard guard.ConstructorGuard
}

func NewPurgeStaleDriversCommand() PurgeStaleDriversCommand {
	return PurgeStaleDriversCommand{guard: guard.NewConstructorGuard()}
}

func (c PurgeStaleDriversCommand) Validate() error {
	return c.guard.Validate(ErrPurgeStaleDriversCommandIsNotConstructed)
}

type PurgeStaleDriversCommandHandler struct {
	registry ports.DriverRegistry
	clock    ports.Clock
}

func NewPurgeStaleDriversCommandHandler(registry ports.DriverRegistry, clock ports.Clock) PurgeStaleDriversCommandHandler {
	return PurgeStaleDriversCommandHandler{registry: registry, clock: clock}
}

func (h PurgeStaleDriversCommandHandler) Handle(ctx context.Context, cmd PurgeStaleDriversCommand) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}
	return h.registry.PurgeStale(ctx, h.clock.Now())
}
