package http

import (
	"log/slog"

	"ordersaga/internal/core/application/usecases/commands"
	"ordersaga/internal/core/application/usecases/queries"
	"ordersaga/internal/core/ports"
)

// Handlers groups the use cases exposed over HTTP.
type Handlers struct {
	// Command handlers
	CreateOrder       commands.CreateOrderCommandHandler
	CancelOrder       commands.CancelOrderCommandHandler
	RestaurantSignal  commands.RestaurantSignalCommandHandler
	AcceptAssignment  commands.AcceptAssignmentCommandHandler
	RejectAssignment  commands.RejectAssignmentCommandHandler
	CancelAssignment  commands.CancelAssignmentCommandHandler
	StartReassignment commands.StartReassignmentCommandHandler
	ConfirmPickup     commands.ConfirmPickupCommandHandler
	ConfirmDelivery   commands.ConfirmDeliveryCommandHandler
	RecordHeartbeat   commands.RecordDriverHeartbeatCommandHandler
	SubmitLocation    commands.SubmitDriverLocationCommandHandler

	// Query handlers
	GetOrder           queries.GetOrderQueryHandler
	ListOrders         queries.ListOrdersQueryHandler
	GetOrderEvents     queries.GetOrderEventsQueryHandler
	GetTrail           queries.GetTrailQueryHandler
	GetCurrentLocation queries.GetCurrentLocationQueryHandler
	ListDrivers        queries.ListAvailableDriversQueryHandler
}

// Server adapts HTTP requests to the application use cases.
type Server struct {
	h      Handlers
	clock  ports.Clock
	logger *slog.Logger
}

// NewServer creates a new HTTP server with the required command and query handlers.
func NewServer(h Handlers, clock ports.Clock, logger *slog.Logger) *Server {
	return &Server{
		h:      h,
		clock:  clock,
		logger: logger.With("component", "http"),
	}
}
