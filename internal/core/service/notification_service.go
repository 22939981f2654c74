package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/ports"
	"github.com/druksewa/marketplace/internal/metrics"
)

// NotificationService is the notification bus. Every published entry is
// appended to the log and mirrored to the out-of-band deliverer.
type NotificationService struct {
	// appendMu keeps appends from this process in sequence order, so a
	// reader never sees seq N+1 committed before seq N.
	appendMu  sync.Mutex
	log       ports.NotificationLog
	deliverer ports.Deliverer
	logger    zerolog.Logger
}

func NewNotificationService(log ports.NotificationLog, deliverer ports.Deliverer, logger zerolog.Logger) *NotificationService {
	return &NotificationService{log: log, deliverer: deliverer, logger: logger}
}

// Publish appends n to the log. ID and CreatedAt are filled in when empty.
func (s *NotificationService) Publish(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if n.RecipientRole == "" || n.Message == "" {
		return nil, fmt.Errorf("publish notification: recipient and message are required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Kind == "" {
		n.Kind = domain.KindInfo
	}

	s.appendMu.Lock()
	err := s.log.Append(ctx, n)
	s.appendMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("publish notification: %w", err)
	}
	metrics.NotificationsPublishedTotal.WithLabelValues(string(n.RecipientRole), string(n.Kind)).Inc()

	recipient := string(n.RecipientRole)
	if n.RecipientUserID != "" {
		recipient = n.RecipientUserID
	}
	s.deliverer.Enqueue(ports.Delivery{
		Recipient: recipient,
		Subject:   "Provider application update",
		Body:      n.Message,
	})

	s.logger.Debug().
		Str("notification_id", n.ID).
		Int64("seq", n.Seq).
		Str("recipient_role", string(n.RecipientRole)).
		Msg("notification published")
	return n, nil
}

// ListFor returns role-wide notifications with a sequence number above afterSeq.
func (s *NotificationService) ListFor(ctx context.Context, role domain.Role, afterSeq int64) ([]*domain.Notification, error) {
	return s.log.ListByRole(ctx, role, afterSeq)
}

// ListForUser returns notifications addressed to userID with a sequence number above afterSeq.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, afterSeq int64) ([]*domain.Notification, error) {
	return s.log.ListByUser(ctx, userID, afterSeq)
}
