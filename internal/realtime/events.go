package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/google/uuid"
)

// Event is the envelope of every message on the push channel.
type Event struct {
	Type   enums.PushEventType `json:"type"`
	Data   json.RawMessage     `json:"data,omitempty"`
	SentAt time.Time           `json:"sent_at"`
}

// OrderUpdated is the payload of order:updated.
type OrderUpdated struct {
	OrderID    uuid.UUID         `json:"order_id"`
	Status     enums.OrderStatus `json:"status"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// DiscountStatusChanged is the payload of discount:statusChanged.
type DiscountStatusChanged struct {
	DiscountID uuid.UUID `json:"discount_id"`
	IsActive   bool      `json:"is_active"`
}

// ErrorPayload is the payload of error events.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newEvent(eventType enums.PushEventType, data any, now time.Time) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s: %w", eventType, err)
	}
	return Event{Type: eventType, Data: raw, SentAt: now.UTC()}, nil
}

// DecodeEvent parses an envelope from the wire.
func DecodeEvent(raw []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		return Event{}, fmt.Errorf("decode push event: %w", err)
	}
	if !evt.Type.IsValid() {
		return Event{}, fmt.Errorf("unknown push event type %q", evt.Type)
	}
	return evt, nil
}

// OrderUpdate decodes the payload of an order:updated event.
func (e Event) OrderUpdate() (OrderUpdated, error) {
	var out OrderUpdated
	if e.Type != enums.PushEventOrderUpdated {
		return out, fmt.Errorf("event %s is not %s", e.Type, enums.PushEventOrderUpdated)
	}
	if err := json.Unmarshal(e.Data, &out); err != nil {
		return out, fmt.Errorf("decode order update: %w", err)
	}
	return out, nil
}

// DiscountStatus decodes the payload of a discount:statusChanged event.
func (e Event) DiscountStatus() (DiscountStatusChanged, error) {
	var out DiscountStatusChanged
	if e.Type != enums.PushEventDiscountStatusChanged {
		return out, fmt.Errorf("event %s is not %s", e.Type, enums.PushEventDiscountStatusChanged)
	}
	if err := json.Unmarshal(e.Data, &out); err != nil {
		return out, fmt.Errorf("decode discount status: %w", err)
	}
	return out, nil
}

// AccountChannel is the per-account channel. Vendors listen on their vendor id.
func AccountChannel(prefix string, id uuid.UUID) string {
	return fmt.Sprintf("%s:account:%s", prefix, id)
}

// BroadcastChannel carries events for every session.
func BroadcastChannel(prefix string) string {
	return prefix + ":broadcast"
}
