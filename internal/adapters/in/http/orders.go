package http

import (
	"net/http"

	"ordersaga/internal/core/application/usecases/commands"
	"ordersaga/internal/core/application/usecases/queries"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"

	"github.com/labstack/echo/v4"
)

func pathOrderID(ctx echo.Context) (kernel.UUID, error) {
	return kernel.ParseUUID("order_id", ctx.Param("id"))
}

// CreateOrder handles POST /api/v1/orders - places an order and starts its saga.
//
//	@Summary	Create order
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Param		order	body		NewOrder	true	"Checkout data"
//	@Success	201		{object}	CreatedOrder
//	@Failure	400		{object}	Error
//	@Failure	409		{object}	Error
//	@Router		/api/v1/orders [post]
func (s *Server) CreateOrder(ctx echo.Context) error {
	var req NewOrder
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	cmd, err := req.command()
	if err != nil {
		return s.fail(ctx, err)
	}
	if err = s.h.CreateOrder.Handle(ctx.Request().Context(), cmd); err != nil {
		return s.fail(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, CreatedOrder{OrderID: cmd.OrderID()})
}

// GetOrder handles GET /api/v1/orders/{id}.
//
//	@Summary	Get order
//	@Tags		orders
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	queries.OrderView
//	@Failure	404	{object}	Error
//	@Router		/api/v1/orders/{id} [get]
func (s *Server) GetOrder(ctx echo.Context) error {
	orderID, err := pathOrderID(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	query, err := queries.NewGetOrderQuery(orderID)
	if err != nil {
		return s.fail(ctx, err)
	}

	view, err := s.h.GetOrder.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, view)
}

// ListOrders handles GET /api/v1/orders.
//
//	@Summary	List orders
//	@Tags		orders
//	@Produce	json
//	@Param		customer_id		query		string	false	"Customer ID"
//	@Param		restaurant_id	query		string	false	"Restaurant ID"
//	@Param		status			query		string	false	"Order status"
//	@Param		limit			query		int		false	"Page size"
//	@Param		offset			query		int		false	"Page offset"
//	@Success	200				{array}		queries.OrderView
//	@Failure	400				{object}	Error
//	@Router		/api/v1/orders [get]
func (s *Server) ListOrders(ctx echo.Context) error {
	params := queries.ListOrdersParams{
		CustomerID:   ctx.QueryParam("customer_id"),
		RestaurantID: ctx.QueryParam("restaurant_id"),
		Status:       ctx.QueryParam("status"),
	}
	if err := echo.QueryParamsBinder(ctx).
		Int("limit", &params.Limit).
		Int("offset", &params.Offset).
		BindError(); err != nil {
		return badRequest(ctx, "limit and offset must be integers")
	}

	query, err := queries.NewListOrdersQuery(params)
	if err != nil {
		return s.fail(ctx, err)
	}
	views, err := s.h.ListOrders.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, views)
}

// CancelOrder handles POST /api/v1/orders/{id}/cancel. An order in a terminal
// state answers 409.
//
//	@Summary	Cancel order
//	@Tags		orders
//	@Accept		json
//	@Param		id		path	string			true	"Order ID"
//	@Param		body	body	CancelRequest	true	"Who cancels and why"
//	@Success	204
//	@Failure	400	{object}	Error
//	@Failure	404	{object}	Error
//	@Failure	409	{object}	Error
//	@Router		/api/v1/orders/{id}/cancel [post]
func (s *Server) CancelOrder(ctx echo.Context) error {
	orderID, err := pathOrderID(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	var req CancelRequest
	if err = ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if req.RequestedBy == "" {
		req.RequestedBy = string(order.ActorCustomer)
	}
	actor, err := order.ParseActor(req.RequestedBy)
	if err != nil {
		return s.fail(ctx, err)
	}

	cmd, err := commands.NewCancelOrderCommand(orderID, actor, req.Reason)
	if err != nil {
		return s.fail(ctx, err)
	}
	if err = s.h.CancelOrder.Handle(ctx.Request().Context(), cmd); err != nil {
		return s.fail(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// GetOrderEvents handles GET /api/v1/orders/{id}/events.
//
//	@Summary	Order event log
//	@Tags		orders
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{array}		queries.EventView
//	@Failure	404	{object}	Error
//	@Router		/api/v1/orders/{id}/events [get]
func (s *Server) GetOrderEvents(ctx echo.Context) error {
	orderID, err := pathOrderID(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	query, err := queries.NewGetOrderEventsQuery(orderID)
	if err != nil {
		return s.fail(ctx, err)
	}

	events, err := s.h.GetOrderEvents.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, events)
}

// RestaurantSignal handles POST /api/v1/orders/{id}/restaurant/{signal}.
//
//	@Summary	Restaurant decision
//	@Tags		restaurant
//	@Accept		json
//	@Param		id		path	string					true	"Order ID"
//	@Param		signal	path	string					true	"confirmed, rejected, preparing or ready"
//	@Param		body	body	RestaurantSignalRequest	false	"Rejection reason"
//	@Success	204
//	@Failure	400	{object}	Error
//	@Failure	404	{object}	Error
//	@Failure	409	{object}	Error
//	@Router		/api/v1/orders/{id}/restaurant/{signal} [post]
func (s *Server) RestaurantSignal(ctx echo.Context) error {
	orderID, err := pathOrderID(ctx)
	if err != nil {
		return s.fail(ctx, err)
	}
	signal, err := commands.ParseRestaurantSignal(ctx.Param("signal"))
	if err != nil {
		return s.fail(ctx, err)
	}
	var req RestaurantSignalRequest
	if err = ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	cmd, err := commands.NewRestaurantSignalCommand(orderID, signal, req.Reason, nil)
	if err != nil {
		return s.fail(ctx, err)
	}
	if err = s.h.RestaurantSignal.Handle(ctx.Request().Context(), cmd); err != nil {
		return s.fail(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}
