// Package identity implements credential verification, token issuance,
// refresh token rotation and the authentication flows built on them.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Roles carried on the user record and inside token claims.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Authorities (coarse account class, orthogonal to role).
const (
	AuthorityCustomer = "CUSTOMER"
	AuthoritySysAdmin = "SYS_ADMIN"
)

// User is an account within a tenant. Users are never hard-deleted here.
type User struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenantId"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	Role      string    `json:"role"`
	Authority string    `json:"authority"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Credential is the stored password hash, one per user.
type Credential struct {
	UserID       uuid.UUID
	PasswordHash string
	UpdatedAt    time.Time
}

// RefreshToken is one persisted refresh token row. A user may hold several
// concurrent tokens (one per device/session).
type RefreshToken struct {
	ID        string
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
}

// Principal is a resolved, authenticated identity.
type Principal struct {
	User *User
}

// SignUpRequest carries the fields needed to create an account.
type SignUpRequest struct {
	TenantID  uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// ProfileUpdate replaces the mutable display fields of a user.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Phone     string
	Avatar    string
}
