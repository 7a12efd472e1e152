package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pagepulse/pagepulse/internal/domain"
)

// postColumns must match the Scan order in scanPost.
const postColumns = `id, page_id, meta_post_id, content, type, status, scheduled_at, published_at, likes, comments, shares, permalink, created_at, updated_at`

// PostRepo implements domain.PostRepository backed by PostgreSQL.
type PostRepo struct {
	db *DB
}

func NewPostRepo(db *DB) *PostRepo {
	return &PostRepo{db: db}
}

var _ domain.PostRepository = (*PostRepo)(nil)

func scanPost(row pgx.Row) (*domain.Post, error) {
	var post domain.Post
	err := row.Scan(
		&post.ID, &post.PageID, &post.MetaPostID, &post.Content, &post.Type,
		&post.Status, &post.ScheduledAt, &post.PublishedAt,
		&post.Engagement.Likes, &post.Engagement.Comments, &post.Engagement.Shares,
		&post.Permalink, &post.CreatedAt, &post.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepo) GetByID(ctx context.Context, postID uuid.UUID) (*domain.Post, error) {
	return scanPost(r.db.Pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, postID))
}

func (r *PostRepo) ListByPage(ctx context.Context, pageID uuid.UUID, limit int) ([]domain.Post, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE page_id = $1
		ORDER BY COALESCE(published_at, created_at) DESC
		LIMIT $2
	`, pageID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}

	return posts, rows.Err()
}

func (r *PostRepo) Create(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	saved, err := scanPost(r.db.Pool.QueryRow(ctx, `
		INSERT INTO posts (page_id, meta_post_id, content, type, status, scheduled_at, published_at, likes, comments, shares, permalink, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING `+postColumns+`
	`, post.PageID, post.MetaPostID, post.Content, post.Type, post.Status,
		post.ScheduledAt, post.PublishedAt,
		post.Engagement.Likes, post.Engagement.Comments, post.Engagement.Shares,
		post.Permalink))
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return saved, nil
}

func (r *PostRepo) UpsertByMetaPostID(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if post.MetaPostID == "" {
		return nil, fmt.Errorf("meta post ID is required for upsert")
	}

	saved, err := scanPost(r.db.Pool.QueryRow(ctx, `
		INSERT INTO posts (page_id, meta_post_id, content, type, status, published_at, likes, comments, shares, permalink, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (meta_post_id) WHERE meta_post_id <> '' DO UPDATE SET
			content = EXCLUDED.content,
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			published_at = EXCLUDED.published_at,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			permalink = EXCLUDED.permalink,
			updated_at = NOW()
		RETURNING `+postColumns+`
	`, post.PageID, post.MetaPostID, post.Content, post.Type, post.Status,
		post.PublishedAt,
		post.Engagement.Likes, post.Engagement.Comments, post.Engagement.Shares,
		post.Permalink))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert post: %w", err)
	}

	return saved, nil
}

func (r *PostRepo) MarkPublished(ctx context.Context, postID uuid.UUID, metaPostID string, publishedAt time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE posts
		SET meta_post_id = $1, status = $2, published_at = $3, updated_at = NOW()
		WHERE id = $4
	`, metaPostID, domain.PostStatusPublished, publishedAt, postID)
	if err != nil {
		return fmt.Errorf("failed to mark post published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}

	return nil
}

func (r *PostRepo) Delete(ctx context.Context, postID uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}

	return nil
}
