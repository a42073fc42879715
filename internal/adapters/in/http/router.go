package http

import (
	"net/http"

	_ "ordersaga/internal/adapters/in/http/docs" // swagger spec

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter builds the echo instance serving the API, health, metrics and
// swagger endpoints.
func NewRouter(s *Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(echo.WrapMiddleware(otelhttp.NewMiddleware("ordersaga.http")))
	e.Use(Metrics())

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1")

	api.POST("/orders", s.CreateOrder)
	api.GET("/orders", s.ListOrders)
	api.GET("/orders/:id", s.GetOrder)
	api.POST("/orders/:id/cancel", s.CancelOrder)
	api.GET("/orders/:id/events", s.GetOrderEvents)
	api.POST("/orders/:id/restaurant/:signal", s.RestaurantSignal)

	api.POST("/orders/:id/assignment/accept", s.AcceptAssignment)
	api.POST("/orders/:id/assignment/reject", s.RejectAssignment)
	api.POST("/orders/:id/assignment/cancel", s.CancelAssignment)
	api.POST("/orders/:id/assignment/retry", s.RetryAssignment)
	api.POST("/orders/:id/pickup", s.ConfirmPickup)
	api.POST("/orders/:id/deliver", s.ConfirmDelivery)

	api.POST("/orders/:id/locations", s.SubmitLocation)
	api.GET("/orders/:id/trail", s.GetTrail)
	api.GET("/orders/:id/location", s.GetCurrentLocation)

	api.POST("/drivers/:id/heartbeat", s.RecordHeartbeat)
	api.GET("/drivers/available", s.ListAvailableDrivers)

	return e
}
