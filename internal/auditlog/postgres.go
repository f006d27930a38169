package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

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

func (s *PGStore) Append(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry.ActionData)
	if err != nil {
		return fmt.Errorf("marshal action data: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`insert into audit_log(id, tenant_id, user_id, entity_type, entity_id, action_type, action_status, action_failure_details, action_data, created_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		entry.ID, nullUUID(entry.TenantID), nullUUID(entry.UserID), entry.EntityType,
		nullUUID(entry.EntityID), entry.ActionType, entry.ActionStatus,
		nullString(entry.FailureDetails), data, entry.CreatedAt,
	)
	return err
}

func (s *PGStore) Search(ctx context.Context, q Query) (Page, error) {
	where, args := buildFilters(q)

	var total int64
	countQuery := `select count(*) from audit_log where ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return Page{}, err
	}

	limitArg := len(args) + 1
	offsetArg := len(args) + 2
	args = append(args, q.PageSize, q.Page*q.PageSize)

	query := fmt.Sprintf(
		`select id, tenant_id, user_id, entity_type, entity_id, action_type, action_status, action_failure_details, action_data, created_at
		 from audit_log where %s order by %s %s limit $%d offset $%d`,
		where, q.SortProperty, q.SortOrder, limitArg, offsetArg,
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry    Entry
			tenantID uuid.NullUUID
			userID   uuid.NullUUID
			entityID uuid.NullUUID
			details  sql.NullString
			data     []byte
		)
		if err := rows.Scan(&entry.ID, &tenantID, &userID, &entry.EntityType, &entityID,
			&entry.ActionType, &entry.ActionStatus, &details, &data, &entry.CreatedAt); err != nil {
			return Page{}, err
		}
		entry.TenantID = tenantID.UUID
		entry.UserID = userID.UUID
		entry.EntityID = entityID.UUID
		entry.FailureDetails = details.String
		if len(data) > 0 {
			_ = json.Unmarshal(data, &entry.ActionData)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}

	totalPages := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	return Page{
		Entries:       entries,
		TotalElements: total,
		TotalPages:    totalPages,
		HasNext:       q.Page+1 < totalPages,
	}, nil
}

// buildFilters renders the WHERE clause for a query. Tenant scoping is
// always the first condition.
func buildFilters(q Query) (string, []any) {
	conds := []string{"tenant_id = $1"}
	args := []any{q.TenantID}

	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.EntityType != "" {
		add("entity_type = $%d", q.EntityType)
	}
	if q.EntityID != uuid.Nil {
		add("entity_id = $%d", q.EntityID)
	}
	if q.UserID != uuid.Nil {
		add("user_id = $%d", q.UserID)
	}
	if q.ActionType != "" {
		add("action_type = $%d", q.ActionType)
	}
	if q.ActionStatus != "" {
		add("action_status = $%d", q.ActionStatus)
	}
	if q.StartTS > 0 {
		add("created_at >= to_timestamp($%d::double precision / 1000)", q.StartTS)
	}
	if q.EndTS > 0 {
		add("created_at <= to_timestamp($%d::double precision / 1000)", q.EndTS)
	}
	if text := strings.TrimSpace(q.SearchText); text != "" {
		op := "ilike"
		if q.MatchCase {
			op = "like"
		}
		args = append(args, "%"+escapeLike(text)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(action_data::text %s $%d or coalesce(action_failure_details, '') %s $%d)", op, n, op, n))
	}
	return strings.Join(conds, " and "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE/ILIKE wildcards so search text matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
