package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/pagepulse/internal/domain"
)

func TestUserRepo_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db, testCrypto)
	ctx := context.Background()

	expiry := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	user, err := repo.Upsert(ctx, "fb-1", "Alice", "alice@example.com", "https://example.com/p.jpg", "token-1", expiry)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "token-1", user.AccessToken)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "token-1", got.AccessToken)
	assert.WithinDuration(t, expiry, got.TokenExpiry, time.Second)

	byMeta, err := repo.GetByMetaUserID(ctx, "fb-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byMeta.ID)
}

func TestUserRepo_UpsertIsIdempotentOnMetaUserID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db, testCrypto)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, "fb-1", "Alice", "alice@example.com", "", "token-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	second, err := repo.Upsert(ctx, "fb-1", "Alice Renamed", "new@example.com", "", "token-2", time.Now().Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Alice Renamed", second.Name)
	assert.Equal(t, "token-2", second.AccessToken)

	var count int
	require.NoError(t, db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUserRepo_TokenEncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db, testCrypto)
	ctx := context.Background()

	user, err := repo.Upsert(ctx, "fb-1", "Alice", "", "", "plaintext-token", time.Now().Add(time.Hour))
	require.NoError(t, err)

	var stored string
	require.NoError(t, db.Pool.QueryRow(ctx, "SELECT access_token FROM users WHERE id = $1", user.ID).Scan(&stored))
	assert.NotEqual(t, "plaintext-token", stored)
	assert.NotContains(t, stored, "plaintext")

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "plaintext-token", got.AccessToken)
}

func TestUserRepo_UpdateToken(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db, testCrypto)
	ctx := context.Background()

	user := createTestUser(t, db)

	newExpiry := time.Now().Add(60 * 24 * time.Hour).Truncate(time.Second)
	require.NoError(t, repo.UpdateToken(ctx, user.ID, "refreshed-token", newExpiry))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "refreshed-token", got.AccessToken)
	assert.WithinDuration(t, newExpiry, got.TokenExpiry, time.Second)
}

func TestUserRepo_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db, testCrypto)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.GetByMetaUserID(ctx, "never-seen")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	err = repo.UpdateToken(ctx, uuid.New(), "token", time.Now())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
