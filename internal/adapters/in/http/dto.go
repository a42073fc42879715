package http

import (
	"errors"
	"time"

	"ordersaga/internal/core/application/usecases/commands"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
)

// Error is the body of every non-2xx response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) location() (kernel.Location, error) {
	return kernel.NewLocation(c.Lat, c.Lng)
}

type NewLineItem struct {
	MenuItemID string  `json:"menu_item_id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
}

type NewDeliveryAddress struct {
	Coordinate
	Text         string `json:"text"`
	Instructions string `json:"instructions"`
}

// NewOrder is the checkout request. Amounts are decimals in the order
// currency. OrderID is optional; a client that sets it can retry safely.
type NewOrder struct {
	OrderID            string             `json:"order_id,omitempty"`
	CustomerID         string             `json:"customer_id"`
	RestaurantID       string             `json:"restaurant_id"`
	RestaurantLocation Coordinate         `json:"restaurant_location"`
	Items              []NewLineItem      `json:"items"`
	DeliveryFee        float64            `json:"delivery_fee"`
	Tip                float64            `json:"tip"`
	Discount           float64            `json:"discount"`
	PaymentMethod      string             `json:"payment_method"`
	DeliveryAddress    NewDeliveryAddress `json:"delivery_address"`
}

func (r NewOrder) command() (commands.CreateOrderCommand, error) {
	orderID := kernel.NewUUID()
	if r.OrderID != "" {
		id, err := kernel.ParseUUID("order_id", r.OrderID)
		if err != nil {
			return commands.CreateOrderCommand{}, err
		}
		orderID = id
	}
	customerID, errCustomer := kernel.ParseUUID("customer_id", r.CustomerID)
	restaurantID, errRestaurant := kernel.ParseUUID("restaurant_id", r.RestaurantID)
	restaurantAt, errRestaurantAt := r.RestaurantLocation.location()
	deliveryAt, errDeliveryAt := r.DeliveryAddress.location()
	deliveryFee, errFee := kernel.MoneyFromFloat("delivery_fee", r.DeliveryFee)
	tip, errTip := kernel.MoneyFromFloat("tip", r.Tip)
	discount, errDiscount := kernel.MoneyFromFloat("discount", r.Discount)
	items, errItems := r.lineItems()
	if err := errors.Join(errCustomer, errRestaurant, errRestaurantAt, errDeliveryAt,
		errFee, errTip, errDiscount, errItems); err != nil {
		return commands.CreateOrderCommand{}, err
	}

	return commands.NewCreateOrderCommand(orderID, customerID,
		commands.CartSnapshot{
			RestaurantID:       restaurantID,
			RestaurantLocation: restaurantAt,
			Items:              items,
			DeliveryFee:        deliveryFee,
			Tip:                tip,
			Discount:           discount,
		},
		r.PaymentMethod,
		commands.DeliveryAddress{
			Location:     deliveryAt,
			Text:         r.DeliveryAddress.Text,
			Instructions: r.DeliveryAddress.Instructions,
		},
	)
}

func (r NewOrder) lineItems() ([]order.LineItem, error) {
	items := make([]order.LineItem, 0, len(r.Items))
	for _, it := range r.Items {
		var menuItemID kernel.UUID
		if it.MenuItemID != "" {
			id, err := kernel.ParseUUID("menu_item_id", it.MenuItemID)
			if err != nil {
				return nil, err
			}
			menuItemID = id
		}
		price, err := kernel.MoneyFromFloat("unit_price", it.UnitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, order.LineItem{
			MenuItemID: menuItemID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  price,
		})
	}
	return items, nil
}

type CreatedOrder struct {
	OrderID kernel.UUID `json:"order_id"`
}

type CancelRequest struct {
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason"`
}

// DriverAction is the body of the assignment, pickup and delivery endpoints.
type DriverAction struct {
	DriverID string `json:"driver_id"`
	Reason   string `json:"reason,omitempty"`
}

type RestaurantSignalRequest struct {
	Reason string `json:"reason,omitempty"`
}

type RetryRequest struct {
	Reason string `json:"reason,omitempty"`
}

type Heartbeat struct {
	Coordinate
	IsAvailable bool      `json:"is_available"`
	AvgRating   *float64  `json:"avg_rating,omitempty"`
	At          time.Time `json:"at,omitzero"`
}

type LocationSample struct {
	DriverID string `json:"driver_id"`
	Coordinate
	RecordedAt time.Time `json:"recorded_at,omitzero"`
}

// SampleResult tells whether a sample joined the trail. Dropped samples are
// not an error for the client.
type SampleResult struct {
	Accepted bool `json:"accepted"`
}
