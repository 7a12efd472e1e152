package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

type Page struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	MetaPageID string
	Name       string
	Platform   Platform
	// Page-scoped access token issued by the platform, encrypted at rest.
	AccessToken string
	Category    string
	Picture     string
	Connected   bool
	LastSyncAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type PageRepository interface {
	GetByID(ctx context.Context, pageID uuid.UUID) (*Page, error)
	GetByMetaPageID(ctx context.Context, metaPageID string) (*Page, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Page, error)
	Upsert(ctx context.Context, page *Page) (*Page, error)
	Disconnect(ctx context.Context, pageID uuid.UUID) error
}
