package webhook

import (
	"time"

	"github.com/google/uuid"

	"github.com/pagepulse/pagepulse/internal/domain"
	"github.com/pagepulse/pagepulse/internal/sentiment"
)

// Action is a side-effect-free description of one persistence or
// notification operation. The normalizer emits actions; the app service
// executes them.
type Action interface{ isAction() }

// UpsertReview mirrors a platform review, keyed by MetaReviewID so webhook
// redeliveries collapse to a single stored row.
type UpsertReview struct {
	MetaReviewID       string
	PageID             uuid.UUID
	ReviewerName       string
	ReviewerID         string
	Message            string
	Rating             int
	Sentiment          sentiment.Label
	RecommendationType string
}

// UpsertPost mirrors a platform post, keyed by MetaPostID. Webhook payloads
// carry no engagement counts, so counters start zeroed and are filled in by
// the next sync.
type UpsertPost struct {
	MetaPostID  string
	PageID      uuid.UUID
	Content     string
	Type        string
	Status      domain.PostStatus
	PublishedAt time.Time
	Engagement  domain.Engagement
	Permalink   string
}

// CreateNotification records a user-facing notification. It has no
// idempotency key; dedup happens at the delivery level in the handler.
type CreateNotification struct {
	UserID   uuid.UUID
	Severity domain.Severity
	Title    string
	Message  string
	Data     map[string]any
}

func (UpsertReview) isAction()       {}
func (UpsertPost) isAction()         {}
func (CreateNotification) isAction() {}
