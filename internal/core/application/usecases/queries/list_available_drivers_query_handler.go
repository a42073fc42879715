package queries

import (
	"cmp"
	"context"
	"slices"

	"ordersaga/internal/core/ports"
)

type ListAvailableDriversQueryHandler struct {
	registry ports.DriverRegistry
	clock    ports.Clock
}

func NewListAvailableDriversQueryHandler(
	registry ports.DriverRegistry,
	clock ports.Clock,
) ListAvailableDriversQueryHandler {
	return ListAvailableDriversQueryHandler{registry: registry, clock: clock}
}

// Handle returns drivers sorted by ID for stable output.
func (h ListAvailableDriversQueryHandler) Handle(
	ctx context.Context,
	query ListAvailableDriversQuery,
) ([]DriverView, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	snapshots, err := h.registry.Available(ctx, h.clock.Now())
	if err != nil {
		return nil, err
	}

	drivers := make([]DriverView, 0, len(snapshots))
	for _, s := range snapshots {
		drivers = append(drivers, newDriverView(s))
	}
	slices.SortFunc(drivers, func(a, b DriverView) int {
		return cmp.Compare(a.DriverID.String(), b.DriverID.String())
	})
	return drivers, nil
}
