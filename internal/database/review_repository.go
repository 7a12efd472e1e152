package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pagepulse/pagepulse/internal/domain"
)

// reviewColumns must match the Scan order in scanReview.
const reviewColumns = `id, page_id, meta_review_id, reviewer_name, reviewer_id, message, rating, sentiment, recommendation_type, created_at, updated_at`

// ReviewRepo implements domain.ReviewRepository backed by PostgreSQL.
type ReviewRepo struct {
	db *DB
}

func NewReviewRepo(db *DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

var _ domain.ReviewRepository = (*ReviewRepo)(nil)

func scanReview(row pgx.Row) (*domain.Review, error) {
	var review domain.Review
	err := row.Scan(
		&review.ID, &review.PageID, &review.MetaReviewID,
		&review.ReviewerName, &review.ReviewerID, &review.Message,
		&review.Rating, &review.Sentiment, &review.RecommendationType,
		&review.CreatedAt, &review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepo) ListByPage(ctx context.Context, pageID uuid.UUID, limit int) ([]domain.Review, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE page_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, pageID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, *review)
	}

	return reviews, rows.Err()
}

func (r *ReviewRepo) UpsertByMetaReviewID(ctx context.Context, review *domain.Review) (*domain.Review, error) {
	saved, err := scanReview(r.db.Pool.QueryRow(ctx, `
		INSERT INTO reviews (page_id, meta_review_id, reviewer_name, reviewer_id, message, rating, sentiment, recommendation_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (meta_review_id) DO UPDATE SET
			reviewer_name = EXCLUDED.reviewer_name,
			message = EXCLUDED.message,
			rating = EXCLUDED.rating,
			sentiment = EXCLUDED.sentiment,
			recommendation_type = EXCLUDED.recommendation_type,
			updated_at = NOW()
		RETURNING `+reviewColumns+`
	`, review.PageID, review.MetaReviewID, review.ReviewerName, review.ReviewerID,
		review.Message, review.Rating, review.Sentiment, review.RecommendationType))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert review: %w", err)
	}

	return saved, nil
}
