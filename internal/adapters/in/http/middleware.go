package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ordersaga/internal/pkg/metrics"

	"github.com/labstack/echo/v4"
)

// Metrics records the count and latency of every request, labelled by the
// route template rather than the raw path.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			metrics.HTTPRequest(c.Request().Method, path, strconv.Itoa(status), time.Since(start).Seconds())
			return err
		}
	}
}
