package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pagepulse/pagepulse/internal/metrics"
	"github.com/pagepulse/pagepulse/internal/redis"
)

// maxBodySize bounds webhook payloads. Meta batches at most 1000 changes per
// delivery; 1 MiB is generous headroom.
const maxBodySize = 1 << 20

// ActionApplier executes the actions the normalizer emits.
type ActionApplier interface {
	ApplyActions(ctx context.Context, actions []Action) error
}

// Handler is the HTTP shell around the normalizer: it verifies subscription
// handshakes, authenticates deliveries, drops duplicates, and walks the
// entry/change batch with per-change error containment.
type Handler struct {
	normalizer  *Normalizer
	applier     ActionApplier
	dedup       *redis.DedupStore
	verifyToken string
	secret      []byte
}

func NewHandler(normalizer *Normalizer, applier ActionApplier, dedup *redis.DedupStore, verifyToken, secret string) *Handler {
	return &Handler{
		normalizer:  normalizer,
		applier:     applier,
		dedup:       dedup,
		verifyToken: verifyToken,
		secret:      []byte(secret),
	}
}

// HandleVerification answers the subscription handshake Meta sends when the
// webhook is registered: echo the challenge iff mode and token match.
func (h *Handler) HandleVerification(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		slog.Info("Webhook verification succeeded")
		return c.String(http.StatusOK, challenge)
	}

	slog.Warn("Webhook verification failed", "mode", mode)
	return c.String(http.StatusForbidden, "Forbidden")
}

// HandleDelivery processes a webhook POST. It always answers 200 for
// authenticated payloads, even when individual changes fail: Meta retries
// non-200 responses and a poison change must not wedge the whole delivery.
func (h *Handler) HandleDelivery(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize))
	if err != nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues("malformed").Inc()
		return c.String(http.StatusBadRequest, "Bad Request")
	}

	if !h.verifySignature(body, c.Request().Header.Get("X-Hub-Signature-256")) {
		slog.Warn("Webhook delivery with invalid signature rejected")
		metrics.WebhookDeliveriesTotal.WithLabelValues("invalid_signature").Inc()
		return c.String(http.StatusUnauthorized, "Invalid signature")
	}

	ctx := c.Request().Context()

	if h.dedup != nil {
		hash := sha256.Sum256(body)
		duplicate, err := h.dedup.MarkDelivery(ctx, hex.EncodeToString(hash[:]))
		if err != nil {
			// Redis being down must not drop deliveries; process anyway.
			slog.Warn("Delivery dedup unavailable, processing without it", "error", err)
		} else if duplicate {
			slog.Info("Duplicate webhook delivery acknowledged")
			metrics.WebhookDeliveriesTotal.WithLabelValues("duplicate").Inc()
			return c.String(http.StatusOK, "EVENT_RECEIVED")
		}
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.Warn("Malformed webhook payload", "error", err)
		metrics.WebhookDeliveriesTotal.WithLabelValues("malformed").Inc()
		return c.String(http.StatusBadRequest, "Bad Request")
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			h.processChange(ctx, entry.ID, change)
		}
	}

	metrics.WebhookDeliveriesTotal.WithLabelValues("ok").Inc()
	return c.String(http.StatusOK, "EVENT_RECEIVED")
}

// processChange normalizes and applies a single change. Failures are logged
// and counted but never propagate: each change is its own blast radius.
func (h *Handler) processChange(ctx context.Context, metaPageID string, change Change) {
	start := time.Now()
	defer func() {
		metrics.WebhookChangeDuration.Observe(time.Since(start).Seconds())
	}()

	actions, err := h.normalizer.Normalize(ctx, metaPageID, change)
	if err != nil {
		slog.Error("Failed to normalize webhook change",
			"field", change.Field, "meta_page_id", metaPageID, "error", err)
		return
	}
	if len(actions) == 0 {
		return
	}

	if err := h.applier.ApplyActions(ctx, actions); err != nil {
		slog.Error("Failed to apply webhook actions",
			"field", change.Field, "meta_page_id", metaPageID, "error", err)
		metrics.WebhookChangesTotal.WithLabelValues(change.Field, "apply_error").Inc()
	}
}

func (h *Handler) verifySignature(body []byte, header string) bool {
	const prefix = "sha256="
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}

	expected, err := hex.DecodeString(header[len(prefix):])
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}
