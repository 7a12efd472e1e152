package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID
	MetaUserID string
	Name       string
	Email      string
	Picture    string
	// The long-lived Graph API user token lives on the User struct because
	// the two share a lifecycle: the token is obtained when the user signs
	// in and replaced when they re-authenticate or it is refreshed.
	// Encryption happens at the repository layer, not here.
	AccessToken string
	TokenExpiry time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)
	GetByMetaUserID(ctx context.Context, metaUserID string) (*User, error)
	Upsert(ctx context.Context, metaUserID, name, email, picture, accessToken string, tokenExpiry time.Time) (*User, error)
	UpdateToken(ctx context.Context, userID uuid.UUID, accessToken string, tokenExpiry time.Time) error
}
