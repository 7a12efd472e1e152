package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/pagepulse/internal/domain"
)

func TestPageRepo_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPageRepo(db, testCrypto)
	ctx := context.Background()

	user := createTestUser(t, db)

	page, err := repo.Upsert(ctx, &domain.Page{
		UserID:      user.ID,
		MetaPageID:  "page-1",
		Name:        "Coffee Corner",
		Platform:    domain.PlatformFacebook,
		AccessToken: "page-token",
		Category:    "Cafe",
	})
	require.NoError(t, err)
	assert.True(t, page.Connected)
	assert.NotNil(t, page.LastSyncAt)
	assert.Equal(t, "page-token", page.AccessToken)

	got, err := repo.GetByID(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee Corner", got.Name)
	assert.Equal(t, "page-token", got.AccessToken)

	byMeta, err := repo.GetByMetaPageID(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, page.ID, byMeta.ID)
}

func TestPageRepo_UpsertReconnects(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPageRepo(db, testCrypto)
	ctx := context.Background()

	user := createTestUser(t, db)

	page, err := repo.Upsert(ctx, &domain.Page{
		UserID: user.ID, MetaPageID: "page-1", Name: "Old Name",
		Platform: domain.PlatformFacebook, AccessToken: "t1",
	})
	require.NoError(t, err)

	require.NoError(t, repo.Disconnect(ctx, page.ID))
	disconnected, err := repo.GetByID(ctx, page.ID)
	require.NoError(t, err)
	assert.False(t, disconnected.Connected)

	// A re-sync upserts the same meta page ID and reconnects it.
	reconnected, err := repo.Upsert(ctx, &domain.Page{
		UserID: user.ID, MetaPageID: "page-1", Name: "New Name",
		Platform: domain.PlatformFacebook, AccessToken: "t2",
	})
	require.NoError(t, err)
	assert.Equal(t, page.ID, reconnected.ID)
	assert.True(t, reconnected.Connected)
	assert.Equal(t, "New Name", reconnected.Name)
	assert.Equal(t, "t2", reconnected.AccessToken)
}

func TestPageRepo_ListByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPageRepo(db, testCrypto)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)

	for _, name := range []string{"Bakery", "Aquarium"} {
		_, err := repo.Upsert(ctx, &domain.Page{
			UserID: alice.ID, MetaPageID: "page-" + name, Name: name,
			Platform: domain.PlatformFacebook, AccessToken: "t",
		})
		require.NoError(t, err)
	}
	createTestPage(t, db, bob.ID)

	pages, err := repo.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	// Ordered by name.
	assert.Equal(t, "Aquarium", pages[0].Name)
	assert.Equal(t, "Bakery", pages[1].Name)
}

func TestPageRepo_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPageRepo(db, testCrypto)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrPageNotFound)

	_, err = repo.GetByMetaPageID(ctx, "never-seen")
	assert.ErrorIs(t, err, domain.ErrPageNotFound)

	err = repo.Disconnect(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrPageNotFound)
}
