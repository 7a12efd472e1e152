package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
)

type Engagement struct {
	Likes    int
	Comments int
	Shares   int
}

// Total is the engagement score used for ranking posts.
func (e Engagement) Total() int {
	return e.Likes + e.Comments + e.Shares
}

type Post struct {
	ID          uuid.UUID
	PageID      uuid.UUID
	MetaPostID  string // empty until published to the platform
	Content     string
	Type        string // status, photo, video, link
	Status      PostStatus
	ScheduledAt *time.Time
	PublishedAt *time.Time
	Engagement  Engagement
	Permalink   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type PostRepository interface {
	GetByID(ctx context.Context, postID uuid.UUID) (*Post, error)
	ListByPage(ctx context.Context, pageID uuid.UUID, limit int) ([]Post, error)
	Create(ctx context.Context, post *Post) (*Post, error)
	// UpsertByMetaPostID keys on the platform-assigned post ID so webhook
	// redeliveries and repeated syncs collapse to a single row.
	UpsertByMetaPostID(ctx context.Context, post *Post) (*Post, error)
	MarkPublished(ctx context.Context, postID uuid.UUID, metaPostID string, publishedAt time.Time) error
	Delete(ctx context.Context, postID uuid.UUID) error
}
