package identity

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

// fakePGErr mimics the driver error shape for constraint violations.
type fakePGErr struct{ code string }

func (e *fakePGErr) Error() string    { return "pg error " + e.code }
func (e *fakePGErr) SQLState() string { return e.code }

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewPGStore(db), mock
}

func TestUserStoreFindByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	userID := uuid.New()
	tenantID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`select ` + userColumns + ` from app_user where email=$1`)).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "email", "first_name", "last_name", "phone",
			"avatar", "role", "authority", "created_at", "updated_at",
		}).AddRow(userID, tenantID, "alice@example.com", "Alice", "", "", "", RoleUser, AuthorityCustomer, now, now))

	u, err := store.Users(context.Background()).FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u.ID != userID || u.TenantID != tenantID || u.Email != "alice@example.com" {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestUserStoreFindByEmailNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`from app_user where email=$1`)).
		WithArgs("missing@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Users(context.Background()).FindByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUserStoreCreateDuplicate(t *testing.T) {
	store, mock := newMockStore(t)
	u := testUser()

	mock.ExpectExec(regexp.QuoteMeta(`insert into app_user`)).
		WithArgs(u.ID, u.TenantID, u.Email, u.FirstName, u.LastName, u.Phone, u.Avatar, u.Role, u.Authority).
		WillReturnError(&fakePGErr{code: "23505"})

	err := store.Users(context.Background()).Create(context.Background(), u)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestCredentialStoreSetPassword(t *testing.T) {
	store, mock := newMockStore(t)
	userID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`insert into user_credential`)).
		WithArgs(userID, "hash-value").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Credentials(context.Background()).SetPassword(context.Background(), userID, "hash-value"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
}

func TestRefreshTokenStoreFindByTokenNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`from refresh_token where token=$1`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.RefreshTokens(context.Background()).FindByToken(context.Background(), "nope")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("err = %v, want ErrTokenNotFound", err)
	}
}

func TestRefreshTokenStoreDeleteIfExpired(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`delete from refresh_token where id=$1 and expires_at < $2`)).
		WithArgs("row-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`delete from refresh_token where id=$1 and expires_at < $2`)).
		WithArgs("row-2", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tokens := store.RefreshTokens(context.Background())
	deleted, err := tokens.DeleteIfExpired(context.Background(), "row-1", now)
	if err != nil || !deleted {
		t.Fatalf("expired row: deleted=%v err=%v", deleted, err)
	}
	deleted, err = tokens.DeleteIfExpired(context.Background(), "row-2", now)
	if err != nil || deleted {
		t.Fatalf("live row: deleted=%v err=%v", deleted, err)
	}
}

func TestRefreshTokenStoreDeleteAllForUser(t *testing.T) {
	store, mock := newMockStore(t)
	userID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`delete from refresh_token where user_id=$1`)).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.RefreshTokens(context.Background()).DeleteAllForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("DeleteAllForUser: %v", err)
	}
	if n != 3 {
		t.Errorf("revoked = %d, want 3", n)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&fakePGErr{code: "23505"}) {
		t.Error("23505 should be a unique violation")
	}
	if isUniqueViolation(&fakePGErr{code: "23503"}) {
		t.Error("23503 is not a unique violation")
	}
	if isUniqueViolation(errors.New("plain")) {
		t.Error("plain error is not a unique violation")
	}
	if isUniqueViolation(nil) {
		t.Error("nil is not a unique violation")
	}
}
