package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pagepulse/pagepulse/internal/sentiment"
)

type Review struct {
	ID           uuid.UUID
	PageID       uuid.UUID
	MetaReviewID string
	ReviewerName string
	ReviewerID   string
	Message      string
	Rating       int // 1-5
	Sentiment    sentiment.Label
	// RecommendationType is the platform's own positive/negative/
	// no_recommendation flag, independent of our sentiment label.
	RecommendationType string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type ReviewRepository interface {
	ListByPage(ctx context.Context, pageID uuid.UUID, limit int) ([]Review, error)
	// UpsertByMetaReviewID keys on the platform-assigned review ID so webhook
	// redeliveries and repeated syncs collapse to a single row.
	UpsertByMetaReviewID(ctx context.Context, review *Review) (*Review, error)
}
