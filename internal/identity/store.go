package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store describes persistence operations required by the identity subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	Credentials(ctx context.Context) CredentialStore
	RefreshTokens(ctx context.Context) RefreshTokenStore
}

// UserStore manages user records.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*User, error)
}

// CredentialStore manages stored password hashes, one per user.
type CredentialStore interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Credential, error)
	SetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// RefreshTokenStore manages the refresh token lifecycle.
type RefreshTokenStore interface {
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	Create(ctx context.Context, tok *RefreshToken) error
	// DeleteIfExpired removes the row only when its expiry is before now.
	// It reports whether the row was deleted, so two concurrent refresh
	// attempts cannot both treat a stale token as live.
	DeleteIfExpired(ctx context.Context, id string, now time.Time) (bool, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
