package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/pagepulse/internal/domain"
	"github.com/pagepulse/pagepulse/internal/sentiment"
)

func seedAnalyticsData(t *testing.T, db *DB) *domain.User {
	t.Helper()
	ctx := context.Background()

	user := createTestUser(t, db)
	page := createTestPage(t, db, user.ID)

	posts := NewPostRepo(db)
	publishedAt := time.Now().Add(-2 * time.Hour)
	_, err := posts.UpsertByMetaPostID(ctx, &domain.Post{
		PageID: page.ID, MetaPostID: "p-1", Content: "top", Type: "status",
		Status: domain.PostStatusPublished, PublishedAt: &publishedAt,
		Engagement: domain.Engagement{Likes: 10, Comments: 5, Shares: 2},
	})
	require.NoError(t, err)
	_, err = posts.UpsertByMetaPostID(ctx, &domain.Post{
		PageID: page.ID, MetaPostID: "p-2", Content: "quiet", Type: "status",
		Status: domain.PostStatusPublished, PublishedAt: &publishedAt,
		Engagement: domain.Engagement{Likes: 1},
	})
	require.NoError(t, err)

	reviews := NewReviewRepo(db)
	for _, r := range []struct {
		id        string
		rating    int
		sentiment sentiment.Label
	}{
		{"r-1", 5, sentiment.Positive},
		{"r-2", 4, sentiment.Positive},
		{"r-3", 1, sentiment.Negative},
		{"r-4", 3, sentiment.Neutral},
	} {
		_, err := reviews.UpsertByMetaReviewID(ctx, &domain.Review{
			PageID: page.ID, MetaReviewID: r.id, Rating: r.rating, Sentiment: r.sentiment,
		})
		require.NoError(t, err)
	}

	return user
}

func TestAnalyticsRepo_Overview(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalyticsRepo(db)
	user := seedAnalyticsData(t, db)

	overview, err := repo.Overview(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, overview.TotalPages)
	assert.Equal(t, 2, overview.TotalPosts)
	assert.Equal(t, 4, overview.TotalReviews)
	assert.InDelta(t, 3.25, overview.AverageRating, 0.001)
	assert.Equal(t, 18, overview.TotalEngagement)
}

func TestAnalyticsRepo_OverviewEmptyUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalyticsRepo(db)

	user := createTestUser(t, db)

	overview, err := repo.Overview(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, overview.TotalPages)
	assert.Zero(t, overview.TotalReviews)
	assert.Zero(t, overview.AverageRating)
	assert.Zero(t, overview.TotalEngagement)
}

func TestAnalyticsRepo_SentimentBreakdown(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalyticsRepo(db)
	user := seedAnalyticsData(t, db)

	breakdown, err := repo.SentimentBreakdown(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, breakdown.Positive)
	assert.Equal(t, 1, breakdown.Negative)
	assert.Equal(t, 1, breakdown.Neutral)
}

func TestAnalyticsRepo_EngagementOverTime(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalyticsRepo(db)
	user := seedAnalyticsData(t, db)

	points, err := repo.EngagementOverTime(context.Background(), user.ID, 7)
	require.NoError(t, err)
	require.Len(t, points, 7)

	// Gap days carry zero points; the seeded engagement shows up in the sum.
	var totalLikes, totalComments, totalShares int
	for _, p := range points {
		totalLikes += p.Likes
		totalComments += p.Comments
		totalShares += p.Shares
	}
	assert.Equal(t, 11, totalLikes)
	assert.Equal(t, 5, totalComments)
	assert.Equal(t, 2, totalShares)

	// Out-of-range day counts fall back to the 30-day default.
	fallback, err := repo.EngagementOverTime(context.Background(), user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, fallback, 30)
}

func TestAnalyticsRepo_TopPosts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalyticsRepo(db)
	user := seedAnalyticsData(t, db)

	top, err := repo.TopPosts(context.Background(), user.ID, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "p-1", top[0].Post.MetaPostID)
	assert.Equal(t, 17, top[0].Engagement)

	all, err := repo.TopPosts(context.Background(), user.ID, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "p-1", all[0].Post.MetaPostID)
	assert.Equal(t, "p-2", all[1].Post.MetaPostID)
}
