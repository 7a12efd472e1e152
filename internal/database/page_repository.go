package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pagepulse/pagepulse/internal/crypto"
	"github.com/pagepulse/pagepulse/internal/domain"
)

// pageColumns must match the Scan order in scanPage.
const pageColumns = `id, user_id, meta_page_id, name, platform, access_token, category, picture, connected, last_sync_at, created_at, updated_at`

// PageRepo implements domain.PageRepository backed by PostgreSQL. Page access
// tokens are encrypted at rest like user tokens.
type PageRepo struct {
	db     *DB
	crypto crypto.Service
}

func NewPageRepo(db *DB, cryptoService crypto.Service) *PageRepo {
	return &PageRepo{db: db, crypto: cryptoService}
}

var _ domain.PageRepository = (*PageRepo)(nil)

func (r *PageRepo) scanPage(row pgx.Row) (*domain.Page, error) {
	var page domain.Page
	err := row.Scan(
		&page.ID, &page.UserID, &page.MetaPageID, &page.Name, &page.Platform,
		&page.AccessToken, &page.Category, &page.Picture, &page.Connected,
		&page.LastSyncAt, &page.CreatedAt, &page.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPageNotFound
	}
	if err != nil {
		return nil, err
	}

	page.AccessToken, err = r.crypto.Decrypt(page.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt page token: %w", err)
	}
	return &page, nil
}

func (r *PageRepo) GetByID(ctx context.Context, pageID uuid.UUID) (*domain.Page, error) {
	return r.scanPage(r.db.Pool.QueryRow(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = $1`, pageID))
}

func (r *PageRepo) GetByMetaPageID(ctx context.Context, metaPageID string) (*domain.Page, error) {
	return r.scanPage(r.db.Pool.QueryRow(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE meta_page_id = $1`, metaPageID))
}

func (r *PageRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Page, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		var page domain.Page
		err := rows.Scan(
			&page.ID, &page.UserID, &page.MetaPageID, &page.Name, &page.Platform,
			&page.AccessToken, &page.Category, &page.Picture, &page.Connected,
			&page.LastSyncAt, &page.CreatedAt, &page.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		page.AccessToken, err = r.crypto.Decrypt(page.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt page token: %w", err)
		}
		pages = append(pages, page)
	}

	return pages, rows.Err()
}

func (r *PageRepo) Upsert(ctx context.Context, page *domain.Page) (*domain.Page, error) {
	encToken, err := r.crypto.Encrypt(page.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt page token: %w", err)
	}

	saved, err := r.scanPage(r.db.Pool.QueryRow(ctx, `
		INSERT INTO pages (user_id, meta_page_id, name, platform, access_token, category, picture, connected, last_sync_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW(), NOW())
		ON CONFLICT (meta_page_id) DO UPDATE SET
			name = EXCLUDED.name,
			platform = EXCLUDED.platform,
			access_token = EXCLUDED.access_token,
			category = EXCLUDED.category,
			picture = EXCLUDED.picture,
			connected = TRUE,
			last_sync_at = NOW(),
			updated_at = NOW()
		RETURNING `+pageColumns+`
	`, page.UserID, page.MetaPageID, page.Name, page.Platform, encToken, page.Category, page.Picture))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert page: %w", err)
	}

	return saved, nil
}

func (r *PageRepo) Disconnect(ctx context.Context, pageID uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE pages
		SET connected = FALSE, updated_at = NOW()
		WHERE id = $1
	`, pageID)
	if err != nil {
		return fmt.Errorf("failed to disconnect page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPageNotFound
	}

	return nil
}
