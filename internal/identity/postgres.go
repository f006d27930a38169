package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(ctx context.Context) UserStore { return &userStore{db: s.db} }
func (s *PGStore) Credentials(ctx context.Context) CredentialStore {
	return &credentialStore{db: s.db}
}
func (s *PGStore) RefreshTokens(ctx context.Context) RefreshTokenStore {
	return &refreshTokenStore{db: s.db}
}

// User store ---------------------------------------------------------------
type userStore struct{ db *sql.DB }

const userColumns = `id, tenant_id, email, first_name, last_name, phone, avatar, role, authority, created_at, updated_at`

func (s *userStore) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into app_user(id, tenant_id, email, first_name, last_name, phone, avatar, role, authority)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.TenantID, u.Email, u.FirstName, u.LastName, u.Phone, u.Avatar, u.Role, u.Authority,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *userStore) Find(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from app_user where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from app_user where email=$1`, email)
	return scanUser(row)
}

func (s *userStore) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`update app_user set first_name=$2, last_name=$3, phone=$4, avatar=$5, updated_at=now()
		 where id=$1
		 returning `+userColumns,
		id, upd.FirstName, upd.LastName, upd.Phone, upd.Avatar,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.FirstName, &u.LastName, &u.Phone,
		&u.Avatar, &u.Role, &u.Authority, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Credential store ---------------------------------------------------------
type credentialStore struct{ db *sql.DB }

func (s *credentialStore) FindByUserID(ctx context.Context, userID uuid.UUID) (*Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`select user_id, password_hash, updated_at from user_credential where user_id=$1`, userID)
	var c Credential
	err := row.Scan(&c.UserID, &c.PasswordHash, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *credentialStore) SetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`insert into user_credential(user_id, password_hash, updated_at) values($1,$2,now())
		 on conflict (user_id) do update set password_hash=excluded.password_hash, updated_at=now()`,
		userID, passwordHash,
	)
	return err
}

// Refresh token store ------------------------------------------------------
type refreshTokenStore struct{ db *sql.DB }

func (s *refreshTokenStore) FindByToken(ctx context.Context, token string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, token, user_id, expires_at, created_at from refresh_token where token=$1`, token)
	var t RefreshToken
	err := row.Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *refreshTokenStore) Create(ctx context.Context, tok *RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_token(id, token, user_id, expires_at, created_at) values($1,$2,$3,$4,$5)`,
		tok.ID, tok.Token, tok.UserID, tok.ExpiresAt, tok.CreatedAt,
	)
	return err
}

// DeleteIfExpired is a single compare-and-delete statement, so concurrent
// refresh attempts against the same stale token serialize on the row.
func (s *refreshTokenStore) DeleteIfExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from refresh_token where id=$1 and expires_at < $2`, id, now)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *refreshTokenStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from refresh_token where user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *refreshTokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from refresh_token where expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// isUniqueViolation detects a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	type pgError interface{ SQLState() string }
	var pgErr pgError
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
