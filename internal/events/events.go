package events

import "context"

// Event types
const (
	EventRequestCreated       = "request_created"
	EventRequestStatusChanged = "request_status_changed"
	EventPaymentConfirmed     = "payment_confirmed"
)

// StreamRequests carries all request lifecycle events.
const StreamRequests = "splitpay:events:requests"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
