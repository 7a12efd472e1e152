package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// NotificationUpdate is the message published via Redis Pub/Sub when a
// notification is created for a user.
type NotificationUpdate struct {
	ID       uuid.UUID      `json:"id"`
	Severity string         `json:"severity"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
}

func notificationChannel(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}

// PubSub provides cross-instance notification broadcast via Redis Pub/Sub.
// Each server instance subscribes for its connected users and forwards
// updates to their WebSocket connections.
type PubSub struct {
	rdb *goredis.Client
}

func NewPubSub(client *Client) *PubSub {
	return &PubSub{rdb: client.rdb}
}

// PublishNotification publishes an update to the user's channel.
func (ps *PubSub) PublishNotification(ctx context.Context, userID uuid.UUID, update NotificationUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}
	return ps.rdb.Publish(ctx, notificationChannel(userID), data).Err()
}

// Subscription represents an active Pub/Sub subscription for a user.
type Subscription struct {
	sub    *goredis.PubSub
	Ch     <-chan NotificationUpdate
	cancel context.CancelFunc
}

// Close unsubscribes and closes the subscription.
func (s *Subscription) Close() {
	s.cancel()
	_ = s.sub.Close()
}

// SubscribeUser subscribes to notification updates for a user.
// Call subscription.Close() when done.
func (ps *PubSub) SubscribeUser(ctx context.Context, userID uuid.UUID) *Subscription {
	sub := ps.rdb.Subscribe(ctx, notificationChannel(userID))

	subCtx, cancel := context.WithCancel(ctx)
	ch := make(chan NotificationUpdate, 16)

	go func() {
		defer close(ch)
		msgCh := sub.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				var update NotificationUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					slog.Error("Failed to unmarshal pubsub message", "error", err)
					continue
				}
				select {
				case ch <- update:
				default:
					// Drop if receiver is slow
				}
			case <-subCtx.Done():
				return
			}
		}
	}()

	return &Subscription{
		sub:    sub,
		Ch:     ch,
		cancel: cancel,
	}
}
