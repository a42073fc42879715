package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpapi "ordersaga/internal/adapters/in/http"
	"ordersaga/internal/adapters/out/memory"
	"ordersaga/internal/adapters/out/registry"
	"ordersaga/internal/core/application/usecases/commands"
	"ordersaga/internal/core/application/usecases/queries"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/model/order/ordertest"
	"ordersaga/internal/core/domain/services"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/clock"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...ports.Message) error { return nil }

type apiFixture struct {
	e     *echo.Echo
	store *memory.UnitOfWorkFactory
	clock *clock.Manual
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := memory.NewUnitOfWorkFactory(memory.NewStore())
	orders, tracks, _ := commands.FromUnitOfWork(factory)
	clk := clock.NewManual(testNow)

	matcher, err := services.NewDriverMatcher(services.DefaultMatchingPolicy())
	require.NoError(t, err)
	reg := registry.New(registry.Config{Partitions: 2}, matcher, clk, logger)
	t.Cleanup(reg.Stop)

	writer := commands.NewOrderWriter(orders, nopPublisher{}, clk, logger)
	estimator := services.DefaultDeliveryEstimator()

	server := httpapi.NewServer(httpapi.Handlers{
		CreateOrder:        commands.NewCreateOrderCommandHandler(writer, clk, estimator, order.DefaultTaxRate),
		CancelOrder:        commands.NewCancelOrderCommandHandler(writer),
		RestaurantSignal:   commands.NewRestaurantSignalCommandHandler(writer),
		AcceptAssignment:   commands.NewAcceptAssignmentCommandHandler(writer, reg, estimator, logger),
		RejectAssignment:   commands.NewRejectAssignmentCommandHandler(writer, reg, logger),
		CancelAssignment:   commands.NewCancelAssignmentCommandHandler(writer),
		StartReassignment:  commands.NewStartReassignmentCommandHandler(writer),
		ConfirmPickup:      commands.NewConfirmPickupCommandHandler(writer),
		ConfirmDelivery:    commands.NewConfirmDeliveryCommandHandler(writer),
		RecordHeartbeat:    commands.NewRecordDriverHeartbeatCommandHandler(reg, clk),
		SubmitLocation:     commands.NewSubmitDriverLocationCommandHandler(tracks, logger),
		GetOrder:           queries.NewGetOrderQueryHandler(factory),
		ListOrders:         queries.NewListOrdersQueryHandler(factory),
		GetOrderEvents:     queries.NewGetOrderEventsQueryHandler(factory),
		GetTrail:           queries.NewGetTrailQueryHandler(factory),
		GetCurrentLocation: queries.NewGetCurrentLocationQueryHandler(factory),
		ListDrivers:        queries.NewListAvailableDriversQueryHandler(reg, clk),
	}, clk, logger)

	return &apiFixture{e: httpapi.NewRouter(server), store: factory, clock: clk}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) seed(t *testing.T, o *order.Order) kernel.UUID {
	t.Helper()
	require.NoError(t, f.store.Create().OrderRepository().Save(t.Context(), o))
	return o.ID()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const checkout = `{
	"customer_id": "6f1c7a52-2d1e-4a53-9a7c-3f0f2f6b8e01",
	"restaurant_id": "0b8e4d0e-5b3a-4d55-8f61-0e0f6a1f2c11",
	"restaurant_location": {"lat": 52.52, "lng": 13.405},
	"items": [{"name": "Pad thai", "quantity": 2, "unit_price": 10.00}],
	"delivery_fee": 3.00,
	"payment_method": "card",
	"delivery_address": {"lat": 52.53, "lng": 13.41, "text": "Invalidenstr. 1"}
}`

func TestCreateOrder(t *testing.T) {
	t.Run("should create order and expose its pricing", func(t *testing.T) {
		api := newAPI(t)

		rec := api.do(t, http.MethodPost, "/api/v1/orders", checkout)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		created := decode[httpapi.CreatedOrder](t, rec)

		rec = api.do(t, http.MethodGet, "/api/v1/orders/"+created.OrderID.String(), "")
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[queries.OrderView](t, rec)

		assert.Equal(t, "payment_pending", view.Status)
		assert.Equal(t, int64(2000), view.Pricing.Subtotal.Cents())
		assert.Equal(t, int64(160), view.Pricing.Tax.Cents())
		assert.Equal(t, int64(2460), view.Pricing.Total.Cents())
		assert.Nil(t, view.DriverID)
	})

	t.Run("should reject an empty cart", func(t *testing.T) {
		api := newAPI(t)
		body := strings.Replace(checkout, `[{"name": "Pad thai", "quantity": 2, "unit_price": 10.00}]`, `[]`, 1)

		rec := api.do(t, http.MethodPost, "/api/v1/orders", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should reject negative amounts", func(t *testing.T) {
		api := newAPI(t)
		body := strings.Replace(checkout, `"delivery_fee": 3.00`, `"delivery_fee": -1`, 1)

		rec := api.do(t, http.MethodPost, "/api/v1/orders", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, http.StatusBadRequest, decode[httpapi.Error](t, rec).Code)
	})

	t.Run("should reject malformed JSON", func(t *testing.T) {
		api := newAPI(t)

		rec := api.do(t, http.MethodPost, "/api/v1/orders", `{"items":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetOrder(t *testing.T) {
	api := newAPI(t)

	t.Run("should answer 404 for an unknown order", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/v1/orders/"+kernel.NewUUID().String(), "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("should answer 400 for a malformed id", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListOrders(t *testing.T) {
	api := newAPI(t)
	paid := ordertest.Paid(t, testNow)
	api.seed(t, paid)
	api.seed(t, ordertest.Preparing(t, testNow))

	rec := api.do(t, http.MethodGet, "/api/v1/orders?status=paid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	views := decode[[]queries.OrderView](t, rec)
	require.Len(t, views, 1)
	assert.Equal(t, paid.ID(), views[0].ID)

	rec = api.do(t, http.MethodGet, "/api/v1/orders?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/orders?status=teleported", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelOrder(t *testing.T) {
	t.Run("should cancel an order being prepared", func(t *testing.T) {
		api := newAPI(t)
		id := api.seed(t, ordertest.Preparing(t, testNow))

		rec := api.do(t, http.MethodPost, "/api/v1/orders/"+id.String()+"/cancel",
			`{"requested_by": "customer", "reason": "changed my mind"}`)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		view := decode[queries.OrderView](t, api.do(t, http.MethodGet, "/api/v1/orders/"+id.String(), ""))
		assert.Equal(t, "cancelled", view.Status)
		assert.Equal(t, "customer", view.CancelledBy)
	})

	t.Run("should answer 409 once the order is terminal", func(t *testing.T) {
		api := newAPI(t)
		id := api.seed(t, ordertest.Preparing(t, testNow))
		path := "/api/v1/orders/" + id.String() + "/cancel"
		require.Equal(t, http.StatusNoContent, api.do(t, http.MethodPost, path, `{}`).Code)

		rec := api.do(t, http.MethodPost, path, `{}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("should reject an unknown actor", func(t *testing.T) {
		api := newAPI(t)
		id := api.seed(t, ordertest.Preparing(t, testNow))

		rec := api.do(t, http.MethodPost, "/api/v1/orders/"+id.String()+"/cancel", `{"requested_by": "alien"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRestaurantSignal(t *testing.T) {
	api := newAPI(t)
	id := api.seed(t, ordertest.Paid(t, testNow))
	base := "/api/v1/orders/" + id.String() + "/restaurant/"

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, base+"sleeping", "").Code)
	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodPost, base+"confirmed", "").Code)
	assert.Equal(t, http.StatusConflict, api.do(t, http.MethodPost, base+"ready", "").Code)

	events := decode[[]queries.EventView](t, api.do(t, http.MethodGet, "/api/v1/orders/"+id.String()+"/events", ""))
	assert.Equal(t, order.EventRestaurantConfirmed, events[len(events)-1].EventType)
}

func TestDriverEndpoints(t *testing.T) {
	api := newAPI(t)
	driverID := kernel.NewUUID()

	rec := api.do(t, http.MethodPost, "/api/v1/drivers/"+driverID.String()+"/heartbeat",
		`{"lat": 52.52, "lng": 13.40, "is_available": true, "avg_rating": 4.8}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/api/v1/drivers/"+kernel.NewUUID().String()+"/heartbeat",
		`{"lat": 152.52, "lng": 13.40, "is_available": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/drivers/available", "")
	require.Equal(t, http.StatusOK, rec.Code)
	drivers := decode[[]queries.DriverView](t, rec)
	require.Len(t, drivers, 1)
	assert.Equal(t, driverID, drivers[0].DriverID)
}

func TestAssignmentEndpoints(t *testing.T) {
	api := newAPI(t)
	id := api.seed(t, ordertest.Preparing(t, testNow))

	rec := api.do(t, http.MethodPost, "/api/v1/orders/"+id.String()+"/assignment/accept",
		`{"driver_id": "`+kernel.NewUUID().String()+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/orders/"+id.String()+"/pickup", `{"driver_id": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/orders/"+id.String()+"/assignment/retry", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTrackingEndpoints(t *testing.T) {
	api := newAPI(t)
	orderID := kernel.NewUUID()

	rec := api.do(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/locations",
		`{"driver_id": "`+kernel.NewUUID().String()+`", "lat": 52.5, "lng": 13.4}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.False(t, decode[httpapi.SampleResult](t, rec).Accepted)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/v1/orders/"+orderID.String()+"/trail", "").Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/v1/orders/"+orderID.String()+"/location", "").Code)
}

func TestOperationalEndpoints(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Healthy", rec.Body.String())

	api.do(t, http.MethodGet, "/api/v1/orders/"+kernel.NewUUID().String(), "")
	rec = api.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `path="/api/v1/orders/:id"`)

	rec = api.do(t, http.MethodGet, "/swagger/doc.json", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/orders/{id}/trail")
}
