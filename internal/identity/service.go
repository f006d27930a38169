package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"authline.org/internal/auditlog"
	"authline.org/internal/ids"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// Service orchestrates login, refresh, logout and password management,
// coupling every authentication outcome to an audit record.
type Service struct {
	store  Store
	issuer *TokenIssuer
	audit  auditlog.Recorder

	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithAccessTTL configures the access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithBcryptCost configures the hashing cost for new passwords.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the authentication service.
func NewService(store Store, issuer *TokenIssuer, audit auditlog.Recorder, opts ...ServiceOption) (*Service, error) {
	if store == nil || issuer == nil || audit == nil {
		return nil, errors.New("store, issuer and audit recorder are required")
	}
	svc := &Service{
		store:      store,
		issuer:     issuer,
		audit:      audit,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// AccessTTL reports the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// Login verifies credentials and issues a fresh token pair. Every attempt,
// successful or not, produces exactly one audit entry.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		s.recordLoginFailure(ctx, email)
		return TokenPair{}, Principal{}, ErrInvalidCredentials
	}

	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.recordLoginFailure(ctx, email)
			return TokenPair{}, Principal{}, ErrInvalidCredentials
		}
		return TokenPair{}, Principal{}, err
	}
	cred, err := s.store.Credentials(ctx).FindByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.recordLoginFailure(ctx, email)
			return TokenPair{}, Principal{}, ErrInvalidCredentials
		}
		return TokenPair{}, Principal{}, err
	}
	if err := VerifyPassword(cred.PasswordHash, password); err != nil {
		s.recordLoginFailure(ctx, email)
		return TokenPair{}, Principal{}, ErrInvalidCredentials
	}

	pair, err := s.mintTokens(ctx, user)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}

	s.audit.Record(ctx, auditlog.Entry{
		TenantID:     user.TenantID,
		UserID:       user.ID,
		EntityType:   auditlog.EntityUser,
		EntityID:     user.ID,
		ActionType:   auditlog.ActionLogin,
		ActionStatus: auditlog.StatusSuccess,
		ActionData:   map[string]any{"email": email},
	})
	return pair, Principal{User: user}, nil
}

// Refresh exchanges a live refresh token for a new token pair. The presented
// token stays valid afterwards; only expiry or logout removes it.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, Principal, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		s.recordRefreshFailure(ctx, refreshToken, "refresh token is required")
		return TokenPair{}, Principal{}, ErrTokenNotFound
	}

	tokens := s.store.RefreshTokens(ctx)
	tok, err := tokens.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) || errors.Is(err, ErrNotFound) {
			s.recordRefreshFailure(ctx, refreshToken, "refresh token is not found")
			return TokenPair{}, Principal{}, ErrTokenNotFound
		}
		return TokenPair{}, Principal{}, err
	}

	// Expiry is decided from the fetched row. The compare-and-delete only
	// prunes it: a concurrent refresh, logout or sweep may have removed the
	// row first, and the loser of that race must still fail as expired.
	now := s.now().UTC()
	if tok.ExpiresAt.Before(now) {
		if _, err := tokens.DeleteIfExpired(ctx, tok.ID, now); err != nil {
			return TokenPair{}, Principal{}, err
		}
		s.recordRefreshFailure(ctx, refreshToken, "refresh token was expired, please make a new login request")
		return TokenPair{}, Principal{}, ErrTokenExpired
	}

	user, err := s.store.Users(ctx).Find(ctx, tok.UserID)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}

	pair, err := s.mintTokens(ctx, user)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}

	s.audit.Record(ctx, auditlog.Entry{
		TenantID:     user.TenantID,
		UserID:       user.ID,
		EntityType:   auditlog.EntityUser,
		EntityID:     user.ID,
		ActionType:   auditlog.ActionRefreshToken,
		ActionStatus: auditlog.StatusSuccess,
	})
	return pair, Principal{User: user}, nil
}

// Logout revokes every outstanding refresh token for the current principal.
// An unauthenticated caller is a no-op success and writes no audit entry.
func (s *Service) Logout(ctx context.Context) error {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil
	}
	user := principal.User

	revoked, err := s.store.RefreshTokens(ctx).DeleteAllForUser(ctx, user.ID)
	if err != nil {
		return err
	}
	s.audit.Record(ctx, auditlog.Entry{
		TenantID:     user.TenantID,
		UserID:       user.ID,
		EntityType:   auditlog.EntityUser,
		EntityID:     user.ID,
		ActionType:   auditlog.ActionLogout,
		ActionStatus: auditlog.StatusSuccess,
		ActionData:   map[string]any{"revokedSessions": revoked},
	})
	return nil
}

// ChangePassword re-verifies the current password and replaces the stored
// hash. A wrong current password leaves the hash untouched.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	user := principal.User

	if strings.TrimSpace(next) == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}

	creds := s.store.Credentials(ctx)
	cred, err := creds.FindByUserID(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(cred.PasswordHash, current); err != nil {
		s.audit.Record(ctx, auditlog.Entry{
			TenantID:       user.TenantID,
			UserID:         user.ID,
			EntityType:     auditlog.EntityUser,
			EntityID:       user.ID,
			ActionType:     auditlog.ActionPasswordChange,
			ActionStatus:   auditlog.StatusFailure,
			FailureDetails: "current password does not match",
		})
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(next, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := creds.SetPassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.audit.Record(ctx, auditlog.Entry{
		TenantID:     user.TenantID,
		UserID:       user.ID,
		EntityType:   auditlog.EntityUser,
		EntityID:     user.ID,
		ActionType:   auditlog.ActionPasswordChange,
		ActionStatus: auditlog.StatusSuccess,
	})
	return nil
}

// SignUp creates a user and its credential in one flow.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	user := &User{
		ID:        uuid.New(),
		TenantID:  req.TenantID,
		Email:     email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
		Role:      RoleUser,
		Authority: AuthorityCustomer,
	}
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	if err := s.store.Credentials(ctx).SetPassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditlog.Entry{
		TenantID:     user.TenantID,
		UserID:       user.ID,
		EntityType:   auditlog.EntityUser,
		EntityID:     user.ID,
		ActionType:   auditlog.ActionSignUp,
		ActionStatus: auditlog.StatusSuccess,
		ActionData:   map[string]any{"email": email},
	})
	return user, nil
}

// Authenticate validates an access token and loads its user. Used by the
// session context resolver at the HTTP boundary.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	claims, err := s.issuer.ParseAndValidate(accessToken)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	user, err := s.store.Users(ctx).Find(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}
	return Principal{User: user}, nil
}

// CurrentUser resolves the authenticated principal from the context.
func (s *Service) CurrentUser(ctx context.Context) (Principal, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, ErrUnauthorized
	}
	return principal, nil
}

// UpdateProfile replaces the current user's display fields.
func (s *Service) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*User, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	user, err := s.store.Users(ctx).UpdateProfile(ctx, principal.User.ID, upd)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, auditlog.Entry{
		TenantID:     user.TenantID,
		UserID:       user.ID,
		EntityType:   auditlog.EntityUser,
		EntityID:     user.ID,
		ActionType:   auditlog.ActionProfileUpdate,
		ActionStatus: auditlog.StatusSuccess,
	})
	return user, nil
}

// SweepExpired removes refresh tokens whose expiry has passed.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.store.RefreshTokens(ctx).DeleteExpired(ctx, s.now().UTC())
}

func (s *Service) mintTokens(ctx context.Context, user *User) (TokenPair, error) {
	access, _, err := s.issuer.Generate(user, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, expiresAt, err := s.issuer.Generate(user, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	rec := &RefreshToken{
		ID:        ids.New(),
		Token:     refresh,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.RefreshTokens(ctx).Create(ctx, rec); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    s.accessTTL,
	}, nil
}

// recordLoginFailure writes the FAILURE audit row for a login attempt whose
// identity could not be resolved. No actor or tenant is attached.
func (s *Service) recordLoginFailure(ctx context.Context, email string) {
	s.audit.Record(ctx, auditlog.Entry{
		EntityType:     auditlog.EntityUser,
		ActionType:     auditlog.ActionLogin,
		ActionStatus:   auditlog.StatusFailure,
		FailureDetails: "incorrect email or password",
		ActionData:     map[string]any{"email": email},
	})
}

func (s *Service) recordRefreshFailure(ctx context.Context, token, details string) {
	s.audit.Record(ctx, auditlog.Entry{
		EntityType:     auditlog.EntityUser,
		ActionType:     auditlog.ActionRefreshToken,
		ActionStatus:   auditlog.StatusFailure,
		FailureDetails: details,
		ActionData:     map[string]any{"refreshToken": token},
	})
}
