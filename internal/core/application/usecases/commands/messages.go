package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/model/tracking"
	"ordersaga/internal/core/ports"
)

// Topics published besides the order event topics.
const (
	TopicNotificationRequested = "notification.requested"
	TopicBillingRequested      = "billing.requested"
	TopicDriverLocationUpdated = "driver.location_updated"
	TopicDriverOfferExpired    = "driver.offer_expired"
)

// NotificationRequest is the obligation raised for every order event. The
// notification collaborator decides whom to tell and how.
type NotificationRequest struct {
	OrderID    kernel.UUID     `json:"order_id"`
	CustomerID kernel.UUID     `json:"customer_id"`
	DriverID   *kernel.UUID    `json:"driver_id,omitempty"`
	EventType  order.EventType `json:"event_type"`
	Status     string          `json:"status"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// BillingRequest is the obligation raised for financial and terminal events.
type BillingRequest struct {
	OrderID       kernel.UUID     `json:"order_id"`
	CustomerID    kernel.UUID     `json:"customer_id"`
	EventType     order.EventType `json:"event_type"`
	PaymentStatus string          `json:"payment_status"`
	PaymentRef    string          `json:"payment_ref,omitempty"`
	Pricing       order.Pricing   `json:"pricing"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// DriverOfferExpired is published when a driver let an offer lapse.
type DriverOfferExpired struct {
	OrderID   kernel.UUID `json:"order_id"`
	DriverID  kernel.UUID `json:"driver_id"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// DriverLocationUpdated is published for every accepted location sample.
type DriverLocationUpdated struct {
	tracking.Sample
	Mirrored bool `json:"mirrored"`
}

// orderMessages builds the outbox messages for events just recorded on o:
// the domain event itself, a notification obligation and, for financial
// events, a billing obligation. Message IDs derive from the event ID so that
// republishing never creates new identities.
func orderMessages(o *order.Order, events []*order.Event) ([]ports.Message, error) {
	msgs := make([]ports.Message, 0, len(events)*2)
	for _, e := range events {
		key := e.OrderID().String()

		body, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", e, err)
		}
		msgs = append(msgs, ports.Message{
			ID:         e.ID().String(),
			Topic:      e.Type().Topic(),
			Key:        key,
			Payload:    body,
			OccurredAt: e.OccurredAt(),
		})

		notification, err := json.Marshal(NotificationRequest{
			OrderID:    o.ID(),
			CustomerID: o.CustomerID(),
			DriverID:   o.Driver(),
			EventType:  e.Type(),
			Status:     o.StatusAfter(e).String(),
			OccurredAt: e.OccurredAt(),
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, ports.Message{
			ID:         e.ID().String() + ":notification",
			Topic:      TopicNotificationRequested,
			Key:        key,
			Payload:    notification,
			OccurredAt: e.OccurredAt(),
		})

		if !e.Type().IsFinancial() {
			continue
		}
		billing, err := json.Marshal(BillingRequest{
			OrderID:       o.ID(),
			CustomerID:    o.CustomerID(),
			EventType:     e.Type(),
			PaymentStatus: o.PaymentStatus().String(),
			PaymentRef:    o.PaymentRef(),
			Pricing:       o.Pricing(),
			OccurredAt:    e.OccurredAt(),
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, ports.Message{
			ID:         e.ID().String() + ":billing",
			Topic:      TopicBillingRequested,
			Key:        key,
			Payload:    billing,
			OccurredAt: e.OccurredAt(),
		})
	}
	return msgs, nil
}

func offerExpiredMessage(offer DriverOfferExpired) (ports.Message, error) {
	body, err := json.Marshal(offer)
	if err != nil {
		return ports.Message{}, err
	}
	return ports.Message{
		ID:         fmt.Sprintf("offer_expired:%s:%s:%d", offer.OrderID, offer.DriverID, offer.ExpiresAt.UnixNano()),
		Topic:      TopicDriverOfferExpired,
		Key:        offer.OrderID.String(),
		Payload:    body,
		OccurredAt: offer.ExpiresAt,
	}, nil
}

func locationMessage(s tracking.Sample, mirrored bool) (ports.Message, error) {
	body, err := json.Marshal(DriverLocationUpdated{Sample: s, Mirrored: mirrored})
	if err != nil {
		return ports.Message{}, err
	}
	return ports.Message{
		ID:         fmt.Sprintf("location:%s:%s:%d", s.OrderID, s.DriverID, s.RecordedAt.UnixNano()),
		Topic:      TopicDriverLocationUpdated,
		Key:        s.OrderID.String(),
		Payload:    body,
		OccurredAt: s.RecordedAt,
	}, nil
}
