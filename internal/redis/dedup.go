package redis

import (
	"context"
	"fmt"
	"time"
)

// dedupTTL bounds how long a delivery hash is remembered. Meta retries failed
// deliveries for up to an hour, so anything past that is a fresh delivery.
const dedupTTL = 24 * time.Hour

// DedupStore remembers webhook delivery hashes so redelivered payloads are
// acknowledged without being reprocessed.
type DedupStore struct {
	client *Client
}

func NewDedupStore(client *Client) *DedupStore {
	return &DedupStore{client: client}
}

func deliveryKey(hash string) string {
	return "webhook:delivery:" + hash
}

// MarkDelivery records the delivery hash and reports whether it was seen
// before. Returns (true, nil) for a duplicate.
func (s *DedupStore) MarkDelivery(ctx context.Context, hash string) (bool, error) {
	set, err := s.client.rdb.SetNX(ctx, deliveryKey(hash), 1, dedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark delivery: %w", err)
	}
	return !set, nil
}
