package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pagepulse/pagepulse/internal/crypto"
	"github.com/pagepulse/pagepulse/internal/domain"
)

// userColumns must match the Scan order in scanUser.
const userColumns = `id, meta_user_id, name, email, picture, access_token, token_expiry, created_at, updated_at`

// UserRepo implements domain.UserRepository backed by PostgreSQL. Access
// tokens are encrypted before storage and decrypted on read.
type UserRepo struct {
	db     *DB
	crypto crypto.Service
}

func NewUserRepo(db *DB, cryptoService crypto.Service) *UserRepo {
	return &UserRepo{db: db, crypto: cryptoService}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.MetaUserID, &user.Name, &user.Email, &user.Picture,
		&user.AccessToken, &user.TokenExpiry, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	user.AccessToken, err = r.crypto.Decrypt(user.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) Upsert(ctx context.Context, metaUserID, name, email, picture, accessToken string, tokenExpiry time.Time) (*domain.User, error) {
	encToken, err := r.crypto.Encrypt(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	user, err := r.scanUser(r.db.Pool.QueryRow(ctx, `
		INSERT INTO users (meta_user_id, name, email, picture, access_token, token_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (meta_user_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			picture = EXCLUDED.picture,
			access_token = EXCLUDED.access_token,
			token_expiry = EXCLUDED.token_expiry,
			updated_at = NOW()
		RETURNING `+userColumns+`
	`, metaUserID, name, email, picture, encToken, tokenExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return r.scanUser(r.db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

func (r *UserRepo) GetByMetaUserID(ctx context.Context, metaUserID string) (*domain.User, error) {
	return r.scanUser(r.db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE meta_user_id = $1`, metaUserID))
}

func (r *UserRepo) UpdateToken(ctx context.Context, userID uuid.UUID, accessToken string, tokenExpiry time.Time) error {
	encToken, err := r.crypto.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE users
		SET access_token = $1, token_expiry = $2, updated_at = NOW()
		WHERE id = $3
	`, encToken, tokenExpiry, userID)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}
