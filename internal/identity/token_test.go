package identity

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testUser() *User {
	return &User{
		ID:        uuid.MustParse("7b9c4a6e-1f2d-4c3b-9a8e-5d6f7a8b9c0d"),
		TenantID:  uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		Email:     "alice@example.com",
		Role:      RoleUser,
		Authority: AuthorityCustomer,
	}
}

func TestTokenIssuerRejectsShortSecret(t *testing.T) {
	if _, err := NewTokenIssuer([]byte("too-short"), "authline"); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, "authline")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	user := testUser()

	token, expiresAt, err := issuer.Generate(user, 15*time.Minute)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if until := time.Until(expiresAt); until < 14*time.Minute || until > 16*time.Minute {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	claims, err := issuer.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != user.ID.String() {
		t.Errorf("subject = %q, want %q", claims.Subject, user.ID)
	}
	if claims.TenantID != user.TenantID.String() {
		t.Errorf("tenant = %q, want %q", claims.TenantID, user.TenantID)
	}
	if claims.Email != user.Email {
		t.Errorf("email = %q, want %q", claims.Email, user.Email)
	}
	if claims.Role != RoleUser || claims.Authority != AuthorityCustomer {
		t.Errorf("role/authority = %q/%q", claims.Role, claims.Authority)
	}
	if claims.ID == "" {
		t.Error("missing jti")
	}
}

func TestTokenExpiryRejected(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	issuer, err := NewTokenIssuer(testSecret, "authline", WithIssuerClock(clock))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, _, err := issuer.Generate(testUser(), time.Minute)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := issuer.ParseAndValidate(token); err != nil {
		t.Fatalf("token should be valid before expiry: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := issuer.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestTokenTamperRejected(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, "authline")
	token, _, err := issuer.Generate(testUser(), time.Minute)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Flip a character in the payload segment.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("malformed token %q", token)
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := issuer.ParseAndValidate(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, "authline")
	other, _ := NewTokenIssuer([]byte("ffffffffffffffffffffffffffffffff"), "authline")

	token, _, err := issuer.Generate(testUser(), time.Minute)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := other.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestTokenWrongIssuerRejected(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, "authline")
	other, _ := NewTokenIssuer(testSecret, "someone-else")

	token, _, err := issuer.Generate(testUser(), time.Minute)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := other.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}
}

func TestTokenEmptyAndGarbageRejected(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, "authline")
	for _, tok := range []string{"", "   ", "not-a-jwt", "a.b.c"} {
		if _, err := issuer.ParseAndValidate(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ParseAndValidate(%q): expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestGenerateValidation(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, "authline")
	if _, _, err := issuer.Generate(nil, time.Minute); err == nil {
		t.Error("expected error for nil user")
	}
	if _, _, err := issuer.Generate(&User{}, time.Minute); err == nil {
		t.Error("expected error for user without id")
	}
	if _, _, err := issuer.Generate(testUser(), 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}
