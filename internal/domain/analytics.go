package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Overview aggregates headline numbers across all of a user's connected pages.
type Overview struct {
	TotalPages      int     `json:"totalPages"`
	TotalPosts      int     `json:"totalPosts"`
	TotalReviews    int     `json:"totalReviews"`
	AverageRating   float64 `json:"averageRating"`
	TotalEngagement int     `json:"totalEngagement"`
}

// SentimentBreakdown counts reviews per sentiment label.
type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// EngagementPoint is one day of summed post engagement.
type EngagementPoint struct {
	Date     time.Time `json:"date"`
	Likes    int       `json:"likes"`
	Comments int       `json:"comments"`
	Shares   int       `json:"shares"`
}

// TopPost is a post ranked by total engagement.
type TopPost struct {
	Post       Post `json:"post"`
	Engagement int  `json:"engagement"`
}

type AnalyticsRepository interface {
	Overview(ctx context.Context, userID uuid.UUID) (*Overview, error)
	SentimentBreakdown(ctx context.Context, userID uuid.UUID) (*SentimentBreakdown, error)
	// EngagementOverTime returns one point per day for the last days days,
	// including zero-valued points for days without posts.
	EngagementOverTime(ctx context.Context, userID uuid.UUID, days int) ([]EngagementPoint, error)
	TopPosts(ctx context.Context, userID uuid.UUID, limit int) ([]TopPost, error)
}
