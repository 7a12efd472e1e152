package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the shared pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings for production use
	cfg.MaxConns = 25
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.ConnConfig.Tracer = &MetricsTracer{}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

func (db *DB) Close() {
	db.Pool.Close()
}

func (db *DB) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			meta_user_id TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			picture TEXT NOT NULL DEFAULT '',
			access_token TEXT NOT NULL,
			token_expiry TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_meta_user_id ON users(meta_user_id)`,
		`CREATE TABLE IF NOT EXISTS pages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			meta_page_id TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			platform TEXT NOT NULL DEFAULT 'facebook',
			access_token TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			picture TEXT NOT NULL DEFAULT '',
			connected BOOLEAN NOT NULL DEFAULT TRUE,
			last_sync_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_user_id ON pages(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_meta_page_id ON pages(meta_page_id)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			page_id UUID NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
			meta_post_id TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT 'status',
			status TEXT NOT NULL DEFAULT 'draft',
			scheduled_at TIMESTAMPTZ,
			published_at TIMESTAMPTZ,
			likes INTEGER NOT NULL DEFAULT 0,
			comments INTEGER NOT NULL DEFAULT 0,
			shares INTEGER NOT NULL DEFAULT 0,
			permalink TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_meta_post_id ON posts(meta_post_id) WHERE meta_post_id <> ''`,
		`CREATE INDEX IF NOT EXISTS idx_posts_page_id ON posts(page_id)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			page_id UUID NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
			meta_review_id TEXT UNIQUE NOT NULL,
			reviewer_name TEXT NOT NULL DEFAULT '',
			reviewer_id TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			rating INTEGER NOT NULL DEFAULT 0,
			sentiment TEXT NOT NULL DEFAULT 'neutral',
			recommendation_type TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_page_id ON reviews(page_id)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			severity TEXT NOT NULL DEFAULT 'info',
			title TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			read BOOLEAN NOT NULL DEFAULT FALSE,
			data JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(user_id) WHERE NOT read`,
	}

	for _, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	slog.Info("Database migrations completed successfully")
	return nil
}
