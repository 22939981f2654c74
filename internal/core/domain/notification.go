package domain

import "time"

// NotificationKind classifies how a notification should be presented.
type NotificationKind string

const (
	KindInfo    NotificationKind = "info"
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
)

// Notification is an append-only workflow event addressed to a recipient role.
type Notification struct {
	ID                   string           `json:"id" bson:"_id"`
	Seq                  int64            `json:"seq" bson:"seq"`
	RecipientRole        Role             `json:"recipient_role" bson:"recipient_role"`
	RecipientUserID      string           `json:"recipient_user_id,omitempty" bson:"recipient_user_id,omitempty"`
	Message              string           `json:"message" bson:"message"`
	Kind                 NotificationKind `json:"kind" bson:"kind"`
	RelatedApplicationID string           `json:"related_application_id,omitempty" bson:"related_application_id,omitempty"`
	CreatedAt            time.Time        `json:"created_at" bson:"created_at"`
}
