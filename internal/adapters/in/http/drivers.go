package http

import (
	"errors"
	"net/http"

	"ordersaga/internal/core/application/usecases/commands"
	"ordersaga/internal/core/application/usecases/queries"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/tracking"

	"github.com/labstack/echo/v4"
)

// RecordHeartbeat handles POST /api/v1/drivers/{id}/heartbeat.
//
//	@Summary	Driver heartbeat
//	@Tags		drivers
//	@Accept		json
//	@Param		id		path	string		true	"Driver ID"
//	@Param		body	body	Heartbeat	true	"Position and availability"
//	@Success	202
//	@Failure	400	{object}	Error
//	@Router		/api/v1/drivers/{id}/heartbeat [post]
func (s *Server) RecordHeartbeat(ctx echo.Context) error {
	driverID, err := kernel.ParseUUID("driver_id", ctx.Param("id"))
	if err != nil {
		return s.fail(ctx, err)
	}
	var req Heartbeat
	if err = ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	location, err := req.location()
	if err != nil {
		return s.fail(ctx, err)
	}

	cmd, err := commands.NewRecordDriverHeartbeatCommand(driverID, location, req.IsAvailable, req.AvgRating, req.At)
	if err != nil {
		return s.fail(ctx, err)
	}
	if err = s.h.RecordHeartbeat.Handle(ctx.Request().Context(), cmd); err != nil {
		return s.fail(ctx, err)
	}
	return ctx.NoContent(http.StatusAccepted)
}

// ListAvailableDrivers handles GET /api/v1/drivers/available.
//
//	@Summary	Drivers that can take an offer now
//	@Tags		drivers
//	@Produce	json
//	@Success	200	{array}	queries.DriverView
//	@Router		/api/v1/drivers/available [get]
func (s *Server) ListAvailableDrivers(ctx echo.Context) error {
	drivers, err := s.h.ListDrivers.Handle(ctx.Request().Context(), queries.NewListAvailableDriversQuery())
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, drivers)
}

// SubmitLocation handles POST /api/v1/orders/{id}/locations. A sample the
// tracker drops still answers 202 with accepted=false.
//
//	@Summary	Driver location sample
//	@Tags		tracking
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string			true	"Order ID"
//	@Param		body	body		LocationSample	true	"Sample"
//	@Success	202		{object}	SampleResult
//	@Failure	400		{object}	Error
//	@Router		/api/v1/orders/{id}/locations [post]
func (s *Server) SubmitLocation(ctx echo.Context) error {
	orderID, err := pathOrderID(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	var req LocationSample
	if err = ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	driverID, err := kernel.ParseUUID("driver_id", req.DriverID)
	if err != nil {
		return s.fail(ctx, err)
	}
	location, err := req.location()
	if err != nil {
		return s.fail(ctx, err)
	}
	recordedAt := req.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = s.clock.Now()
	}

	sample, err := tracking.NewSample(orderID, driverID, location, recordedAt)
	if err != nil {
		return s.fail(ctx, err)
	}
	cmd, err := commands.NewSubmitDriverLocationCommand(sample)
	if err != nil {
		return s.fail(ctx, err)
	}
	err = s.h.SubmitLocation.Handle(ctx.Request().Context(), cmd)
	if errors.Is(err, tracking.ErrStaleOrUnauthorizedSample) {
		return ctx.JSON(http.StatusAccepted, SampleResult{Accepted: false})
	}
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusAccepted, SampleResult{Accepted: true})
}

// GetTrail handles GET /api/v1/orders/{id}/trail.
//
//	@Summary	Delivery trail
//	@Tags		tracking
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	queries.TrailView
//	@Failure	404	{object}	Error
//	@Router		/api/v1/orders/{id}/trail [get]
func (s *Server) GetTrail(ctx echo.Context) error {
	orderID, err := pathOrderID(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	query, err := queries.NewGetTrailQuery(orderID)
	if err != nil {
		return s.fail(ctx, err)
	}

	trail, err := s.h.GetTrail.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, trail)
}

// GetCurrentLocation handles GET /api/v1/orders/{id}/location.
//
//	@Summary	Current position of the order
//	@Tags		tracking
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	tracking.Position
//	@Failure	404	{object}	Error
//	@Router		/api/v1/orders/{id}/location [get]
func (s *Server) GetCurrentLocation(ctx echo.Context) error {
	orderID, err := pathOrderID(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	query, err := queries.NewGetCurrentLocationQuery(orderID)
	if err != nil {
		return s.fail(ctx, err)
	}

	position, err := s.h.GetCurrentLocation.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, position)
}
