package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pagepulse/pagepulse/internal/domain"
)

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

// AnalyticsRepo implements domain.AnalyticsRepository with aggregation
// queries over the mirrored pages, posts and reviews.
type AnalyticsRepo struct {
	db *DB
}

func NewAnalyticsRepo(db *DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

var _ domain.AnalyticsRepository = (*AnalyticsRepo)(nil)

func (r *AnalyticsRepo) Overview(ctx context.Context, userID uuid.UUID) (*domain.Overview, error) {
	var o domain.Overview
	err := r.db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM pages WHERE user_id = $1 AND connected),
			(SELECT COUNT(*) FROM posts p JOIN pages pg ON p.page_id = pg.id WHERE pg.user_id = $1),
			(SELECT COUNT(*) FROM reviews rv JOIN pages pg ON rv.page_id = pg.id WHERE pg.user_id = $1),
			(SELECT COALESCE(AVG(rating), 0) FROM reviews rv JOIN pages pg ON rv.page_id = pg.id WHERE pg.user_id = $1 AND rating > 0),
			(SELECT COALESCE(SUM(likes + comments + shares), 0) FROM posts p JOIN pages pg ON p.page_id = pg.id WHERE pg.user_id = $1)
	`, userID).Scan(&o.TotalPages, &o.TotalPosts, &o.TotalReviews, &o.AverageRating, &o.TotalEngagement)
	if err != nil {
		return nil, fmt.Errorf("failed to query overview: %w", err)
	}

	return &o, nil
}

func (r *AnalyticsRepo) SentimentBreakdown(ctx context.Context, userID uuid.UUID) (*domain.SentimentBreakdown, error) {
	var b domain.SentimentBreakdown
	err := r.db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE sentiment = 'positive'),
			COUNT(*) FILTER (WHERE sentiment = 'negative'),
			COUNT(*) FILTER (WHERE sentiment = 'neutral')
		FROM reviews rv
		JOIN pages pg ON rv.page_id = pg.id
		WHERE pg.user_id = $1
	`, userID).Scan(&b.Positive, &b.Negative, &b.Neutral)
	if err != nil {
		return nil, fmt.Errorf("failed to query sentiment breakdown: %w", err)
	}

	return &b, nil
}

// EngagementOverTime sums engagement per publish day. generate_series fills
// days without posts with zero points so charts have no gaps.
func (r *AnalyticsRepo) EngagementOverTime(ctx context.Context, userID uuid.UUID, days int) ([]domain.EngagementPoint, error) {
	if days < 1 || days > 365 {
		days = 30
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT
			d.day,
			COALESCE(SUM(p.likes), 0),
			COALESCE(SUM(p.comments), 0),
			COALESCE(SUM(p.shares), 0)
		FROM generate_series(
			date_trunc('day', NOW()) - ($2 - 1) * INTERVAL '1 day',
			date_trunc('day', NOW()),
			INTERVAL '1 day'
		) AS d(day)
		LEFT JOIN posts p
			ON date_trunc('day', p.published_at) = d.day
			AND p.page_id IN (SELECT id FROM pages WHERE user_id = $1)
		GROUP BY d.day
		ORDER BY d.day
	`, userID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query engagement over time: %w", err)
	}
	defer rows.Close()

	var points []domain.EngagementPoint
	for rows.Next() {
		var p domain.EngagementPoint
		if err := rows.Scan(&p.Date, &p.Likes, &p.Comments, &p.Shares); err != nil {
			return nil, fmt.Errorf("failed to scan engagement point: %w", err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

func (r *AnalyticsRepo) TopPosts(ctx context.Context, userID uuid.UUID, limit int) ([]domain.TopPost, error) {
	if limit < 1 || limit > 50 {
		limit = 5
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+prefixColumns("p", postColumns)+`
		FROM posts p
		JOIN pages pg ON p.page_id = pg.id
		WHERE pg.user_id = $1 AND p.status = 'published'
		ORDER BY (p.likes + p.comments + p.shares) DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top posts: %w", err)
	}
	defer rows.Close()

	var top []domain.TopPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan top post: %w", err)
		}
		top = append(top, domain.TopPost{Post: *post, Engagement: post.Engagement.Total()})
	}

	return top, rows.Err()
}
