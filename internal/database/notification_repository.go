package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pagepulse/pagepulse/internal/domain"
)

// notificationColumns must match the Scan order in scanNotification.
const notificationColumns = `id, user_id, severity, title, message, read, data, created_at`

// NotificationRepo implements domain.NotificationRepository backed by PostgreSQL.
type NotificationRepo struct {
	db *DB
}

func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

var _ domain.NotificationRepository = (*NotificationRepo)(nil)

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.Severity, &n.Title, &n.Message,
		&n.Read, &n.Data, &n.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	data := n.Data
	if data == nil {
		data = map[string]any{}
	}

	saved, err := scanNotification(r.db.Pool.QueryRow(ctx, `
		INSERT INTO notifications (user_id, severity, title, message, data, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING `+notificationColumns+`
	`, n.UserID, n.Severity, n.Title, n.Message, data))
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return saved, nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int, unreadOnly bool) (*domain.NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	filter := ""
	if unreadOnly {
		filter = " AND NOT read"
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1`+filter+`
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	result := &domain.NotificationPage{Notifications: []domain.Notification{}}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		result.Notifications = append(result.Notifications, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE TRUE`+filter+`),
			COUNT(*) FILTER (WHERE NOT read)
		FROM notifications
		WHERE user_id = $1
	`, userID).Scan(&result.Total, &result.UnreadCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	return result, nil
}

// MarkRead updates the read flag on the given notifications. An empty ids
// slice means all of the user's notifications.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, read bool) error {
	var err error
	if len(ids) == 0 {
		_, err = r.db.Pool.Exec(ctx, `
			UPDATE notifications SET read = $1 WHERE user_id = $2
		`, read, userID)
	} else {
		_, err = r.db.Pool.Exec(ctx, `
			UPDATE notifications SET read = $1 WHERE user_id = $2 AND id = ANY($3)
		`, read, userID, ids)
	}
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return nil
}

func (r *NotificationRepo) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM notifications WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}

	return nil
}
