package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
)

type Notification struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Severity Severity
	Title    string
	Message  string
	Read     bool
	// Data carries contextual references (page ID, review ID, ...) for the
	// dashboard to deep-link from the notification.
	Data      map[string]any
	CreatedAt time.Time
}

type NotificationPage struct {
	Notifications []Notification
	Total         int
	UnreadCount   int
}

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) (*Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int, unreadOnly bool) (*NotificationPage, error)
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, read bool) error
	Delete(ctx context.Context, userID, notificationID uuid.UUID) error
}
