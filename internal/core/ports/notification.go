package ports

import (
	"context"

	"github.com/druksewa/marketplace/internal/core/domain"
)

// NotificationLog is the append-only store behind the notification bus.
type NotificationLog interface {
	// Append assigns the next sequence number and persists n.
	Append(ctx context.Context, n *domain.Notification) error
	ListByRole(ctx context.Context, role domain.Role, afterSeq int64) ([]*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, afterSeq int64) ([]*domain.Notification, error)
}

// NotificationBus publishes workflow events and replays them per recipient.
type NotificationBus interface {
	Publish(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	ListFor(ctx context.Context, role domain.Role, afterSeq int64) ([]*domain.Notification, error)
	ListForUser(ctx context.Context, userID string, afterSeq int64) ([]*domain.Notification, error)
}

// Delivery is an out-of-band message such as an email.
type Delivery struct {
	Recipient string
	Subject   string
	Body      string
}

// Deliverer hands deliveries to background workers.
type Deliverer interface {
	Enqueue(d Delivery)
}

// Notifier sends a single delivery.
type Notifier interface {
	Notify(ctx context.Context, d Delivery) error
}
