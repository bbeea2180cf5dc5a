package kafka

import "time"

// EventType определяет тип события checkout.
type EventType string

const (
	// Checkout события
	EventTypeCheckoutStarted   EventType = "checkout.started"
	EventTypeCheckoutCompleted EventType = "checkout.completed"
	EventTypeCheckoutFailed    EventType = "checkout.failed"

	// Order события
	EventTypeOrderCreated EventType = "order.created"

	// Реконсиляция корзины
	EventTypeCartClearFailed  EventType = "cart.clear_failed"
	EventTypeCartClearRetried EventType = "cart.clear_retried"
)

// Topics для Kafka
const (
	TopicCheckoutEvents = "checkout.events"
	TopicOrderEvents    = "checkout.order.events"
	// TopicReconcileDLQ принимает задачи реконсиляции, исчерпавшие retry.
	TopicReconcileDLQ = "checkout.reconcile.dlq"
)

// CheckoutEvent представляет событие жизненного цикла попытки checkout.
type CheckoutEvent struct {
	EventType EventType              `json:"event_type"`
	UserID    string                 `json:"user_id"`
	OrderID   string                 `json:"order_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewCheckoutEvent создает новое событие checkout.
func NewCheckoutEvent(eventType EventType, userID, orderID string, metadata map[string]interface{}) *CheckoutEvent {
	return &CheckoutEvent{
		EventType: eventType,
		UserID:    userID,
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}
