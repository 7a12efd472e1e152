package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pagepulse/pagepulse/internal/domain"
	"github.com/pagepulse/pagepulse/internal/meta"
	"github.com/pagepulse/pagepulse/internal/metrics"
	"github.com/pagepulse/pagepulse/internal/sentiment"
)

// PageLookup resolves a platform page ID to the internal page record.
type PageLookup interface {
	GetByMetaPageID(ctx context.Context, metaPageID string) (*domain.Page, error)
}

// UserLookup resolves the owning user of a page.
type UserLookup interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// Normalizer maps webhook changes to domain actions. It holds no state
// beyond its lookup collaborators and is safe for concurrent use.
type Normalizer struct {
	pages PageLookup
	users UserLookup
}

func NewNormalizer(pages PageLookup, users UserLookup) *Normalizer {
	return &Normalizer{pages: pages, users: users}
}

// Normalize converts one change for one page into zero or more actions.
//
// Deliveries can arrive for pages that were never onboarded or have been
// disconnected, so an unresolvable page or owner is a dropped event (zero
// actions, nil error), not a failure. A malformed payload is an error; the
// caller contains it per change and keeps processing the batch.
func (n *Normalizer) Normalize(ctx context.Context, metaPageID string, change Change) ([]Action, error) {
	ev, err := parseChange(change)
	if err != nil {
		metrics.WebhookChangesTotal.WithLabelValues(change.Field, "malformed").Inc()
		return nil, err
	}

	if unknown, ok := ev.(unknownChange); ok {
		slog.Debug("Unhandled webhook field", "field", unknown.Field, "meta_page_id", metaPageID)
		metrics.WebhookChangesTotal.WithLabelValues(change.Field, "unhandled_field").Inc()
		return nil, nil
	}

	page, err := n.pages.GetByMetaPageID(ctx, metaPageID)
	if err != nil {
		if errors.Is(err, domain.ErrPageNotFound) {
			slog.Info("Webhook for unknown page dropped", "meta_page_id", metaPageID, "field", change.Field)
			metrics.WebhookChangesTotal.WithLabelValues(change.Field, "page_unresolved").Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("page lookup failed: %w", err)
	}

	// Messaging events only reference the page; every other branch also
	// notifies the owning user, so that user must resolve.
	if msg, ok := ev.(messagingChange); ok {
		actions := n.normalizeMessaging(page, msg)
		metrics.WebhookChangesTotal.WithLabelValues(change.Field, "ok").Inc()
		return actions, nil
	}

	user, err := n.users.GetByID(ctx, page.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			slog.Info("Webhook for page without owner dropped", "meta_page_id", metaPageID, "user_id", page.UserID)
			metrics.WebhookChangesTotal.WithLabelValues(change.Field, "user_unresolved").Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	var actions []Action
	switch ev := ev.(type) {
	case ratingChange:
		actions = n.normalizeRating(page, user, ev)
	case feedChange:
		actions = normalizeFeed(page, user, ev)
	case conversationChange:
		actions = normalizeConversation(page, user, ev)
	}

	metrics.WebhookChangesTotal.WithLabelValues(change.Field, "ok").Inc()
	return actions, nil
}

func (n *Normalizer) normalizeRating(page *domain.Page, user *domain.User, ev ratingChange) []Action {
	if ev.Verb != "add" {
		return nil
	}

	result := sentiment.Analyze(ev.Rating.ReviewText)
	metrics.SentimentScoredTotal.WithLabelValues(string(result.Sentiment)).Inc()

	severity := domain.SeverityWarning
	if ev.Rating.Rating >= 4 {
		severity = domain.SeveritySuccess
	}

	return []Action{
		UpsertReview{
			MetaReviewID:       ev.Rating.ID,
			PageID:             page.ID,
			ReviewerName:       ev.Rating.ReviewerName,
			ReviewerID:         ev.Rating.ReviewerID,
			Message:            ev.Rating.ReviewText,
			Rating:             ev.Rating.Rating,
			Sentiment:          result.Sentiment,
			RecommendationType: ev.Rating.RecommendationType,
		},
		CreateNotification{
			UserID:   user.ID,
			Severity: severity,
			Title:    "New Review",
			Message:  fmt.Sprintf("New %d-star review on %s", ev.Rating.Rating, page.Name),
			Data: map[string]any{
				"pageId":   page.ID.String(),
				"reviewId": ev.Rating.ID,
			},
		},
	}
}

func normalizeFeed(page *domain.Page, user *domain.User, ev feedChange) []Action {
	if ev.Verb != "add" {
		return nil
	}

	content := ev.Post.Message
	if content == "" {
		content = ev.Post.Story
	}

	return []Action{
		UpsertPost{
			MetaPostID:  ev.Post.ID,
			PageID:      page.ID,
			Content:     content,
			Type:        ev.Post.Type,
			Status:      domain.PostStatusPublished,
			PublishedAt: meta.ParseTime(ev.Post.CreatedTime),
			Permalink:   ev.Post.PermalinkURL,
		},
		CreateNotification{
			UserID:   user.ID,
			Severity: domain.SeverityInfo,
			Title:    "New Post Published",
			Message:  fmt.Sprintf("Post published on %s", page.Name),
			Data: map[string]any{
				"pageId": page.ID.String(),
				"postId": ev.Post.ID,
			},
		},
	}
}

func normalizeConversation(page *domain.Page, user *domain.User, ev conversationChange) []Action {
	if ev.Verb != "add" {
		return nil
	}

	return []Action{
		CreateNotification{
			UserID:   user.ID,
			Severity: domain.SeverityInfo,
			Title:    "New Message",
			Message:  fmt.Sprintf("New message on %s", page.Name),
			Data: map[string]any{
				"pageId":         page.ID.String(),
				"conversationId": ev.ConversationID,
			},
		},
	}
}

func (n *Normalizer) normalizeMessaging(page *domain.Page, ev messagingChange) []Action {
	var actions []Action
	for _, event := range ev.Messaging {
		if event.Message == nil {
			// Delivery receipts, read receipts, and postbacks are observed
			// but carry nothing the dashboard surfaces.
			slog.Debug("Messaging event without message ignored",
				"page_id", page.ID, "sender_id", event.Sender.ID)
			continue
		}

		actions = append(actions, CreateNotification{
			UserID:   page.UserID,
			Severity: domain.SeverityInfo,
			Title:    "New Message Received",
			Message:  event.Message.Text,
			Data: map[string]any{
				"pageId":   page.ID.String(),
				"senderId": event.Sender.ID,
			},
		})
	}
	return actions
}
